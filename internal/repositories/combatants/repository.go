package combatants

//go:generate mockgen -destination=mock/mock_repository.go -package=mockcombrepo -source=repository.go

import (
	"context"

	"github.com/rollinit/rollinit/internal/domain/session"
)

// Repository defines the interface for combatant template storage
type Repository interface {
	// Create stores a new combatant template
	Create(ctx context.Context, c *session.Combatant) error

	// Get retrieves a combatant by ID
	Get(ctx context.Context, id string) (*session.Combatant, error)

	// Update modifies an existing combatant
	Update(ctx context.Context, c *session.Combatant) error

	// Delete removes a combatant template. Instance cascade is handled by
	// the caller against the encounter store.
	Delete(ctx context.Context, id string) error

	// ListBySession returns a session's combatants in creation order
	ListBySession(ctx context.Context, sessionID string) ([]*session.Combatant, error)

	// FindPlayerCharacterByName finds a PC by case-insensitive exact name
	// match, used for registration dedup. Returns a not-found error when
	// no PC matches.
	FindPlayerCharacterByName(ctx context.Context, sessionID, name string) (*session.Combatant, error)
}
