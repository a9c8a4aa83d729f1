package encounters

//go:generate mockgen -destination=mock/mock_repository.go -package=mockencrepo -source=repository.go

import (
	"context"

	"github.com/rollinit/rollinit/internal/domain/combat"
)

// Repository defines the interface for encounter storage operations.
// Encounters are stored as whole aggregates (with their instances), so a
// single Update is the atomic multi-row batch write the sort-order
// invariant needs.
type Repository interface {
	// Create stores a new encounter
	Create(ctx context.Context, encounter *combat.Encounter) error

	// Get retrieves an encounter by ID
	Get(ctx context.Context, id string) (*combat.Encounter, error)

	// Update rewrites an encounter and all of its instances in one write
	Update(ctx context.Context, encounter *combat.Encounter) error

	// ListBySession returns a session's encounters in creation order
	ListBySession(ctx context.Context, sessionID string) ([]*combat.Encounter, error)
}
