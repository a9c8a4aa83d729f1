package encounters

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rollinit/rollinit/internal/domain/combat"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

type inMemoryRepository struct {
	mu         sync.RWMutex
	encounters map[string]*combat.Encounter
	bySession  map[string][]string // sessionID -> encounter IDs in creation order
}

// NewInMemoryRepository creates a new in-memory encounter repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		encounters: make(map[string]*combat.Encounter),
		bySession:  make(map[string][]string),
	}
}

func (r *inMemoryRepository) Create(ctx context.Context, encounter *combat.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.encounters[encounter.ID]; exists {
		return rollerr.AlreadyExists("encounter already exists").WithMeta("encounter_id", encounter.ID)
	}

	r.encounters[encounter.ID] = cloneEncounter(encounter)
	r.bySession[encounter.SessionID] = append(r.bySession[encounter.SessionID], encounter.ID)
	return nil
}

func (r *inMemoryRepository) Get(ctx context.Context, id string) (*combat.Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	encounter, exists := r.encounters[id]
	if !exists {
		return nil, rollerr.NotFoundf("encounter not found: %s", id)
	}

	return cloneEncounter(encounter), nil
}

func (r *inMemoryRepository) Update(ctx context.Context, encounter *combat.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.encounters[encounter.ID]; !exists {
		return rollerr.NotFoundf("encounter not found: %s", encounter.ID)
	}

	r.encounters[encounter.ID] = cloneEncounter(encounter)
	return nil
}

func (r *inMemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]*combat.Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.bySession[sessionID]
	out := make([]*combat.Encounter, 0, len(ids))
	for _, id := range ids {
		if encounter, exists := r.encounters[id]; exists {
			out = append(out, cloneEncounter(encounter))
		}
	}
	return out, nil
}

// cloneEncounter deep-copies through JSON so callers never alias stored
// instances.
func cloneEncounter(encounter *combat.Encounter) *combat.Encounter {
	data, err := json.Marshal(encounter)
	if err != nil {
		// Entities are plain data; marshal cannot fail on them.
		panic(err)
	}
	var copied combat.Encounter
	if err := json.Unmarshal(data, &copied); err != nil {
		panic(err)
	}
	return &copied
}
