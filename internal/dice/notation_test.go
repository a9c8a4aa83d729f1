package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Notation
		wantErr  bool
	}{
		{
			name:     "count sides and modifier",
			input:    "2d6+3",
			expected: &Notation{Count: 2, Sides: 6, Modifier: 3},
		},
		{
			name:     "bare d20 defaults to one die",
			input:    "d20",
			expected: &Notation{Count: 1, Sides: 20, Modifier: 0},
		},
		{
			name:     "negative modifier",
			input:    "4d8-2",
			expected: &Notation{Count: 4, Sides: 8, Modifier: -2},
		},
		{
			name:     "uppercase and whitespace",
			input:    "  3D10+1 ",
			expected: &Notation{Count: 3, Sides: 10, Modifier: 1},
		},
		{
			name:     "limits are inclusive",
			input:    "100d1000",
			expected: &Notation{Count: 100, Sides: 1000, Modifier: 0},
		},
		{
			name:    "zero dice",
			input:   "0d6",
			wantErr: true,
		},
		{
			name:    "zero sides",
			input:   "d0",
			wantErr: true,
		},
		{
			name:    "too many dice",
			input:   "101d6",
			wantErr: true,
		},
		{
			name:    "too many sides",
			input:   "d1001",
			wantErr: true,
		},
		{
			name:    "not a dice expression",
			input:   "fireball",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "modifier without sign",
			input:   "2d6 3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNotation_String(t *testing.T) {
	assert.Equal(t, "2d6+3", (&Notation{Count: 2, Sides: 6, Modifier: 3}).String())
	assert.Equal(t, "1d20", (&Notation{Count: 1, Sides: 20}).String())
	assert.Equal(t, "4d8-2", (&Notation{Count: 4, Sides: 8, Modifier: -2}).String())
}

func TestInitiativeNotation(t *testing.T) {
	assert.Equal(t, "1d20+3", InitiativeNotation(3))
	assert.Equal(t, "1d20", InitiativeNotation(0))
	assert.Equal(t, "1d20-1", InitiativeNotation(-1))
}
