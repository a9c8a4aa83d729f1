package dice

import (
	"fmt"
	"sync"
)

// MockRoller implements Roller for testing with predetermined face values.
type MockRoller struct {
	mu        sync.Mutex
	faces     []int
	faceIndex int
}

// NewMockRoller creates a new mock dice roller
func NewMockRoller() *MockRoller {
	return &MockRoller{
		faces: []int{},
	}
}

// SetNextRoll queues the next face value
func (m *MockRoller) SetNextRoll(face int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append(m.faces, face)
}

// SetRolls replaces the queued face values
func (m *MockRoller) SetRolls(faces []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
	m.faceIndex = 0
}

// Reset clears all queued faces and resets the index
func (m *MockRoller) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = []int{}
	m.faceIndex = 0
}

func (m *MockRoller) nextFace() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faceIndex >= len(m.faces) {
		panic(fmt.Sprintf("no more predetermined rolls available (used %d of %d)", m.faceIndex, len(m.faces)))
	}

	face := m.faces[m.faceIndex]
	m.faceIndex++
	return face
}

// Roll implements Roller.Roll with queued face values.
func (m *MockRoller) Roll(n *Notation) *RollResult {
	result := &RollResult{
		Rolls:    make([]int, n.Count),
		Modifier: n.Modifier,
	}

	sum := 0
	for i := 0; i < n.Count; i++ {
		face := m.nextFace()
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

// RollD20 implements Roller.RollD20 with the next queued face value.
func (m *MockRoller) RollD20() int {
	return m.nextFace()
}
