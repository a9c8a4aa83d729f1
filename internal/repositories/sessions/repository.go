package sessions

//go:generate mockgen -destination=mock/mock_repository.go -package=mocksessrepo -source=repository.go

import (
	"context"

	"github.com/rollinit/rollinit/internal/domain/session"
)

// Repository defines the interface for session storage operations
type Repository interface {
	// Create stores a new session; the join code must be unused
	Create(ctx context.Context, sess *session.Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*session.Session, error)

	// GetByJoinCode retrieves a session by its join code
	GetByJoinCode(ctx context.Context, joinCode string) (*session.Session, error)

	// Update modifies an existing session, re-indexing the join code when
	// it changed
	Update(ctx context.Context, sess *session.Session) error
}
