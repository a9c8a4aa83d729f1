package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rollinit/rollinit/internal/errors"
)

const (
	// MaxCount caps dice per roll
	MaxCount = 100
	// MaxSides caps faces per die
	MaxSides = 1000
)

var notationRe = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Notation is a parsed dice expression like "2d6+3". A missing count
// means a single die.
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// Parse validates and decomposes a dice expression. Expressions are
// case-insensitive and ignore surrounding whitespace.
func Parse(input string) (*Notation, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	m := notationRe.FindStringSubmatch(normalized)
	if m == nil {
		return nil, errors.Validationf("invalid dice notation %q", input)
	}

	count := 1
	if m[1] != "" {
		var err error
		count, err = strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Validationf("invalid dice notation %q", input)
		}
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, errors.Validationf("invalid dice notation %q", input)
	}
	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return nil, errors.Validationf("invalid dice notation %q", input)
		}
	}

	if count < 1 || count > MaxCount {
		return nil, errors.Validationf("dice count must be between 1 and %d", MaxCount)
	}
	if sides < 1 || sides > MaxSides {
		return nil, errors.Validationf("die sides must be between 1 and %d", MaxSides)
	}

	return &Notation{Count: count, Sides: sides, Modifier: modifier}, nil
}

func (n *Notation) String() string {
	s := fmt.Sprintf("%dd%d", n.Count, n.Sides)
	switch {
	case n.Modifier > 0:
		s += fmt.Sprintf("+%d", n.Modifier)
	case n.Modifier < 0:
		s += strconv.Itoa(n.Modifier)
	}
	return s
}

// InitiativeNotation renders the canonical expression for an
// initiative roll with the given bonus.
func InitiativeNotation(bonus int) string {
	switch {
	case bonus > 0:
		return fmt.Sprintf("1d20+%d", bonus)
	case bonus < 0:
		return fmt.Sprintf("1d20%d", bonus)
	default:
		return "1d20"
	}
}
