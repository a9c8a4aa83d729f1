package dice

//go:generate mockgen -destination=mock/mock_roller.go -package=mockdice -source=roller.go

// RollResult is the outcome of rolling one parsed notation.
type RollResult struct {
	Rolls    []int
	Modifier int
	Total    int
	// IsNat20/IsNat1 flag a single d20 landing on its extreme. Cosmetic
	// only; nothing downstream branches on them.
	IsNat20 bool
	IsNat1  bool
}

// Roller produces dice results. Injecting it keeps everything above it
// deterministic under test.
type Roller interface {
	// Roll draws the dice described by n and applies its modifier.
	Roll(n *Notation) *RollResult

	// RollD20 draws a single d20 face value, used for initiative.
	RollD20() int
}
