package dicerolls

//go:generate mockgen -destination=mock/mock_repository.go -package=mockrollrepo -source=repository.go

import (
	"context"

	"github.com/rollinit/rollinit/internal/domain/session"
)

// Repository defines the interface for the dice-roll log. Rolls are
// append-only; the store keeps a bounded window of recent entries.
type Repository interface {
	// Create appends a roll to the session's log
	Create(ctx context.Context, roll *session.DiceRoll) error

	// ListRecent returns up to limit rolls, newest first
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*session.DiceRoll, error)
}
