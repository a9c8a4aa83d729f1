package dice

import (
	"math/rand"
)

// randomRoller implements Roller with a pseudo-random source.
type randomRoller struct {
	rng *rand.Rand
}

// NewRandomRoller creates a roller backed by the shared math/rand source.
func NewRandomRoller() Roller {
	return &randomRoller{}
}

// NewSeededRoller creates a roller with its own seeded source, for
// reproducible sequences.
func NewSeededRoller(seed int64) Roller {
	return &randomRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randomRoller) intn(n int) int {
	if r.rng != nil {
		return r.rng.Intn(n)
	}
	return rand.Intn(n)
}

// Roll implements Roller.Roll.
func (r *randomRoller) Roll(n *Notation) *RollResult {
	result := &RollResult{
		Rolls:    make([]int, n.Count),
		Modifier: n.Modifier,
	}

	sum := 0
	for i := 0; i < n.Count; i++ {
		face := r.intn(n.Sides) + 1
		result.Rolls[i] = face
		sum += face
	}
	result.Total = sum + n.Modifier

	if n.Count == 1 && n.Sides == 20 {
		result.IsNat20 = result.Rolls[0] == 20
		result.IsNat1 = result.Rolls[0] == 1
	}

	return result
}

// RollD20 implements Roller.RollD20.
func (r *randomRoller) RollD20() int {
	return r.intn(20) + 1
}
