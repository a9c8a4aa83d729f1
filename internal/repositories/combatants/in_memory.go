package combatants

import (
	"context"
	"strings"
	"sync"

	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

type inMemoryRepository struct {
	mu         sync.RWMutex
	combatants map[string]*session.Combatant
	bySession  map[string][]string // sessionID -> combatant IDs in creation order
}

// NewInMemoryRepository creates a new in-memory combatant repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		combatants: make(map[string]*session.Combatant),
		bySession:  make(map[string][]string),
	}
}

func (r *inMemoryRepository) Create(ctx context.Context, c *session.Combatant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.combatants[c.ID]; exists {
		return rollerr.AlreadyExists("combatant already exists").WithMeta("combatant_id", c.ID)
	}

	copied := cloneCombatant(c)
	r.combatants[c.ID] = copied
	r.bySession[c.SessionID] = append(r.bySession[c.SessionID], c.ID)
	return nil
}

func (r *inMemoryRepository) Get(ctx context.Context, id string) (*session.Combatant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.combatants[id]
	if !exists {
		return nil, rollerr.NotFoundf("combatant not found: %s", id)
	}

	return cloneCombatant(c), nil
}

func (r *inMemoryRepository) Update(ctx context.Context, c *session.Combatant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.combatants[c.ID]; !exists {
		return rollerr.NotFoundf("combatant not found: %s", c.ID)
	}

	r.combatants[c.ID] = cloneCombatant(c)
	return nil
}

func (r *inMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.combatants[id]
	if !exists {
		return rollerr.NotFoundf("combatant not found: %s", id)
	}

	delete(r.combatants, id)

	ids := r.bySession[c.SessionID]
	for i, cid := range ids {
		if cid == id {
			r.bySession[c.SessionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *inMemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]*session.Combatant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.bySession[sessionID]
	out := make([]*session.Combatant, 0, len(ids))
	for _, id := range ids {
		if c, exists := r.combatants[id]; exists {
			out = append(out, cloneCombatant(c))
		}
	}
	return out, nil
}

func (r *inMemoryRepository) FindPlayerCharacterByName(ctx context.Context, sessionID, name string) (*session.Combatant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.bySession[sessionID] {
		c := r.combatants[id]
		if c.Type == shared.CombatantTypePlayerCharacter && strings.EqualFold(c.Name, name) {
			return cloneCombatant(c), nil
		}
	}
	return nil, rollerr.NotFoundf("no player character named %q", name)
}

func cloneCombatant(c *session.Combatant) *session.Combatant {
	copied := *c
	copied.Conditions = append([]string{}, c.Conditions...)
	return &copied
}
