package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomRoller_Roll(t *testing.T) {
	roller := NewSeededRoller(42)

	t.Run("faces stay in range and total includes modifier", func(t *testing.T) {
		n := &Notation{Count: 10, Sides: 6, Modifier: 4}
		for i := 0; i < 100; i++ {
			result := roller.Roll(n)
			require.Len(t, result.Rolls, 10)
			sum := 0
			for _, face := range result.Rolls {
				assert.GreaterOrEqual(t, face, 1)
				assert.LessOrEqual(t, face, 6)
				sum += face
			}
			assert.Equal(t, sum+4, result.Total)
		}
	})

	t.Run("same seed gives same sequence", func(t *testing.T) {
		a := NewSeededRoller(7)
		b := NewSeededRoller(7)
		n := &Notation{Count: 5, Sides: 20}
		for i := 0; i < 20; i++ {
			assert.Equal(t, a.Roll(n).Rolls, b.Roll(n).Rolls)
		}
	})

	t.Run("d20 range", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			face := roller.RollD20()
			assert.GreaterOrEqual(t, face, 1)
			assert.LessOrEqual(t, face, 20)
		}
	})
}

func TestRollResult_NaturalFlags(t *testing.T) {
	roller := NewMockRoller()

	t.Run("single d20 on 20 is a nat 20", func(t *testing.T) {
		roller.SetNextRoll(20)
		result := roller.Roll(&Notation{Count: 1, Sides: 20, Modifier: 5})
		assert.True(t, result.IsNat20)
		assert.False(t, result.IsNat1)
		assert.Equal(t, 25, result.Total)
	})

	t.Run("single d20 on 1 is a nat 1", func(t *testing.T) {
		roller.SetNextRoll(1)
		result := roller.Roll(&Notation{Count: 1, Sides: 20})
		assert.True(t, result.IsNat1)
		assert.False(t, result.IsNat20)
	})

	t.Run("two d20s never flag", func(t *testing.T) {
		roller.SetRolls([]int{20, 20})
		result := roller.Roll(&Notation{Count: 2, Sides: 20})
		assert.False(t, result.IsNat20)
		assert.False(t, result.IsNat1)
	})

	t.Run("non-d20 never flags", func(t *testing.T) {
		roller.SetNextRoll(12)
		result := roller.Roll(&Notation{Count: 1, Sides: 12})
		assert.False(t, result.IsNat20)
		assert.False(t, result.IsNat1)
	})
}
