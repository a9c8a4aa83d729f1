package sessions

import (
	"context"
	"sync"

	"github.com/rollinit/rollinit/internal/domain/session"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

type inMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	byCode   map[string]string // joinCode -> session ID
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		sessions: make(map[string]*session.Session),
		byCode:   make(map[string]string),
	}
}

func (r *inMemoryRepository) Create(ctx context.Context, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID]; exists {
		return rollerr.AlreadyExists("session already exists").WithMeta("session_id", sess.ID)
	}
	if _, exists := r.byCode[sess.JoinCode]; exists {
		return rollerr.AlreadyExists("join code already in use").WithMeta("join_code", sess.JoinCode)
	}

	copied := *sess
	r.sessions[sess.ID] = &copied
	r.byCode[sess.JoinCode] = sess.ID
	return nil
}

func (r *inMemoryRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[id]
	if !exists {
		return nil, rollerr.NotFoundf("session not found: %s", id)
	}

	copied := *sess
	return &copied, nil
}

func (r *inMemoryRepository) GetByJoinCode(ctx context.Context, joinCode string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byCode[joinCode]
	if !exists {
		return nil, rollerr.NotFound("session not found")
	}

	copied := *r.sessions[id]
	return &copied, nil
}

func (r *inMemoryRepository) Update(ctx context.Context, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.sessions[sess.ID]
	if !exists {
		return rollerr.NotFoundf("session not found: %s", sess.ID)
	}

	if existing.JoinCode != sess.JoinCode {
		if ownerID, taken := r.byCode[sess.JoinCode]; taken && ownerID != sess.ID {
			return rollerr.AlreadyExists("join code already in use").WithMeta("join_code", sess.JoinCode)
		}
		delete(r.byCode, existing.JoinCode)
		r.byCode[sess.JoinCode] = sess.ID
	}

	copied := *sess
	r.sessions[sess.ID] = &copied
	return nil
}
