package dicerolls

import (
	"context"
	"sync"

	"github.com/rollinit/rollinit/internal/domain/session"
)

// retainCount bounds how many rolls the store keeps per session.
const retainCount = 100

type inMemoryRepository struct {
	mu        sync.RWMutex
	bySession map[string][]*session.DiceRoll // newest first
}

// NewInMemoryRepository creates a new in-memory dice-roll repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		bySession: make(map[string][]*session.DiceRoll),
	}
}

func (r *inMemoryRepository) Create(ctx context.Context, roll *session.DiceRoll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *roll
	copied.Rolls = append([]int{}, roll.Rolls...)

	log := append([]*session.DiceRoll{&copied}, r.bySession[roll.SessionID]...)
	if len(log) > retainCount {
		log = log[:retainCount]
	}
	r.bySession[roll.SessionID] = log
	return nil
}

func (r *inMemoryRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*session.DiceRoll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.bySession[sessionID]
	if limit > len(log) {
		limit = len(log)
	}

	out := make([]*session.DiceRoll, limit)
	for i := 0; i < limit; i++ {
		copied := *log[i]
		copied.Rolls = append([]int{}, log[i].Rolls...)
		out[i] = &copied
	}
	return out, nil
}
