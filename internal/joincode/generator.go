// Package joincode produces the short human-presentable codes players use
// to find a session. Callers treat the format as opaque and retry on
// collision.
package joincode

import (
	"math/rand"
	"strings"
)

//go:generate mockgen -destination=mock/mock_generator.go -package=mockjoincode -source=generator.go

// CodeLength is the fixed length of every join code.
const CodeLength = 6

// Generator produces candidate join codes. Uniqueness is the caller's
// problem: generate, check the store, retry up to a bound.
type Generator interface {
	New() string
}

// Themed words keep codes memorable at the table. Everything is trimmed to
// CodeLength characters.
var words = []string{
	"GOBLIN", "DRAGON", "WIZARD", "SWORD", "ROGUE", "CLERIC",
	"KNIGHT", "RANGER", "PALADI", "DRUIDS", "ORCISH", "UNDEAD",
	"SHADOW", "ARCANE", "POISON", "SHIELD", "DAGGER", "SCROLL",
	"POTION", "CANDLE", "DUNGEO", "CASTLE", "THRONE", "CRYPT",
	"DEMONS", "ANGELS", "MYTHIC", "RUNIC", "NECROS", "FLAMEQ",
	"FROSTY", "STORMY", "BLIGHT", "VORTEX",
}

// Alphanumeric fallback, without characters that read ambiguously (0/O, 1/I).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type wordGenerator struct {
	rng *rand.Rand
}

// NewWordGenerator creates the default generator: mostly themed words, with
// a random alphanumeric fallback.
func NewWordGenerator() Generator {
	return &wordGenerator{}
}

// NewSeededWordGenerator creates a generator with its own seeded source.
func NewSeededWordGenerator(seed int64) Generator {
	return &wordGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *wordGenerator) float64() float64 {
	if g.rng != nil {
		return g.rng.Float64()
	}
	return rand.Float64()
}

func (g *wordGenerator) intn(n int) int {
	if g.rng != nil {
		return g.rng.Intn(n)
	}
	return rand.Intn(n)
}

// New returns a 6-character upper-case code.
func (g *wordGenerator) New() string {
	if g.float64() < 0.7 {
		word := words[g.intn(len(words))]
		if len(word) > CodeLength {
			word = word[:CodeLength]
		}
		// Short words get random padding up to the fixed length.
		var b strings.Builder
		b.WriteString(word)
		for b.Len() < CodeLength {
			b.WriteByte(alphabet[g.intn(len(alphabet))])
		}
		return b.String()
	}

	var b strings.Builder
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(alphabet[g.intn(len(alphabet))])
	}
	return b.String()
}
