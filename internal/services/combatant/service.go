package combatant

//go:generate mockgen -destination=mock/mock_service.go -package=mockcombatant -source=service.go

import (
	"context"
	"time"

	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	rollerr "github.com/rollinit/rollinit/internal/errors"
	"github.com/rollinit/rollinit/internal/repositories/combatants"
	"github.com/rollinit/rollinit/internal/repositories/encounters"
	"github.com/rollinit/rollinit/internal/uuid"
)

// Service defines the combatant template service interface
type Service interface {
	// Add creates a template in a session
	Add(ctx context.Context, input *AddCombatantInput) (*session.Combatant, error)

	// Get retrieves a template by ID
	Get(ctx context.Context, combatantID string) (*session.Combatant, error)

	// Update applies a partial edit to a template
	Update(ctx context.Context, combatantID string, update *session.CombatantUpdate) (*session.Combatant, error)

	// Remove deletes a template and cascades into every encounter it is
	// instantiated in, repairing turn pointers of ACTIVE encounters.
	Remove(ctx context.Context, combatantID string) (*RemoveResult, error)

	// RegisterPlayer claims an existing PC by case-insensitive name or
	// creates a fresh auto-joining one, binding the connection either way.
	RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterResult, error)

	// Reconnect re-binds a connection to an existing PC by ID
	Reconnect(ctx context.Context, sessionID, combatantID, connID string) (*session.Combatant, error)

	// UnbindConnection clears a template's connection binding
	UnbindConnection(ctx context.Context, combatantID string) (*session.Combatant, error)
}

// AddCombatantInput contains data for creating a template
type AddCombatantInput struct {
	SessionID       string
	Name            string
	Type            shared.CombatantType
	InitiativeBonus int
	MaxHP           int
	ArmorClass      int
	IsHidden        bool
}

// RegisterPlayerInput contains data for player self-registration
type RegisterPlayerInput struct {
	SessionID       string
	Name            string
	MaxHP           int
	InitiativeBonus int
	ArmorClass      int
	ConnID          string
}

// RegisterResult reports the registered PC and whether it was freshly
// created rather than claimed.
type RegisterResult struct {
	Combatant *session.Combatant
	Created   bool
}

// RemoveResult carries everything the caller needs to broadcast a removal:
// the deleted template and every encounter the cascade touched.
type RemoveResult struct {
	Removed    *session.Combatant
	Encounters []*combat.Encounter
}

type service struct {
	repository    combatants.Repository
	encounterRepo encounters.Repository
	uuidGenerator uuid.Generator
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository          combatants.Repository
	EncounterRepository encounters.Repository
	UUIDGenerator       uuid.Generator
}

// NewService creates a new combatant service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.EncounterRepository == nil {
		panic("encounter repository is required")
	}

	svc := &service{
		repository:    cfg.Repository,
		encounterRepo: cfg.EncounterRepository,
		uuidGenerator: cfg.UUIDGenerator,
	}
	if svc.uuidGenerator == nil {
		svc.uuidGenerator = uuid.NewGoogleUUIDGenerator()
	}
	return svc
}

func (s *service) Add(ctx context.Context, input *AddCombatantInput) (*session.Combatant, error) {
	if input.Name == "" {
		return nil, rollerr.Validation("combatant name is required")
	}
	if !input.Type.IsValid() {
		return nil, rollerr.Validationf("invalid combatant type: %s", input.Type)
	}

	c := &session.Combatant{
		ID:              s.uuidGenerator.New(),
		SessionID:       input.SessionID,
		Name:            input.Name,
		Type:            input.Type,
		InitiativeBonus: input.InitiativeBonus,
		MaxHP:           input.MaxHP,
		CurrentHP:       input.MaxHP,
		ArmorClass:      input.ArmorClass,
		IsHidden:        input.IsHidden,
		AutoJoin:        input.Type != shared.CombatantTypeMonster,
		Conditions:      []string{},
		CreatedAt:       time.Now(),
	}

	if err := s.repository.Create(ctx, c); err != nil {
		return nil, rollerr.Wrap(err, "failed to add combatant")
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, combatantID string) (*session.Combatant, error) {
	return s.repository.Get(ctx, combatantID)
}

func (s *service) Update(ctx context.Context, combatantID string, update *session.CombatantUpdate) (*session.Combatant, error) {
	c, err := s.repository.Get(ctx, combatantID)
	if err != nil {
		return nil, err
	}

	c.Apply(update)
	if err := s.repository.Update(ctx, c); err != nil {
		return nil, rollerr.Wrap(err, "failed to update combatant")
	}
	return c, nil
}

func (s *service) Remove(ctx context.Context, combatantID string) (*RemoveResult, error) {
	c, err := s.repository.Get(ctx, combatantID)
	if err != nil {
		return nil, err
	}

	all, err := s.encounterRepo.ListBySession(ctx, c.SessionID)
	if err != nil {
		return nil, rollerr.Wrap(err, "failed to list encounters for cascade")
	}

	result := &RemoveResult{Removed: c}
	for _, enc := range all {
		if len(enc.InstancesOf(combatantID)) == 0 {
			continue
		}

		// Snapshot before the cascade so an ACTIVE encounter's pointer
		// never lands on a removed index.
		snap := enc.TakeTurnSnapshot()
		enc.RemoveInstancesOf(combatantID)
		if enc.Status == combat.EncounterStatusActive {
			enc.RepairTurnPointer(snap)
		}

		if err := s.encounterRepo.Update(ctx, enc); err != nil {
			return nil, rollerr.Wrap(err, "failed to cascade combatant removal")
		}
		result.Encounters = append(result.Encounters, enc)
	}

	if err := s.repository.Delete(ctx, combatantID); err != nil {
		return nil, rollerr.Wrap(err, "failed to remove combatant")
	}
	return result, nil
}

func (s *service) RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterResult, error) {
	if input.Name == "" {
		return nil, rollerr.Validation("character name is required")
	}

	existing, err := s.repository.FindPlayerCharacterByName(ctx, input.SessionID, input.Name)
	if err != nil && !rollerr.IsNotFound(err) {
		return nil, err
	}

	if existing != nil {
		// Claim the PC: bind the connection and refresh the stats the
		// player just entered.
		existing.PlayerConnID = input.ConnID
		existing.MaxHP = input.MaxHP
		existing.ArmorClass = input.ArmorClass
		existing.InitiativeBonus = input.InitiativeBonus
		if err := s.repository.Update(ctx, existing); err != nil {
			return nil, rollerr.Wrap(err, "failed to claim character")
		}
		return &RegisterResult{Combatant: existing}, nil
	}

	c := &session.Combatant{
		ID:              s.uuidGenerator.New(),
		SessionID:       input.SessionID,
		Name:            input.Name,
		Type:            shared.CombatantTypePlayerCharacter,
		InitiativeBonus: input.InitiativeBonus,
		MaxHP:           input.MaxHP,
		CurrentHP:       input.MaxHP,
		ArmorClass:      input.ArmorClass,
		AutoJoin:        true,
		Conditions:      []string{},
		PlayerConnID:    input.ConnID,
		CreatedAt:       time.Now(),
	}

	if err := s.repository.Create(ctx, c); err != nil {
		return nil, rollerr.Wrap(err, "failed to register character")
	}
	return &RegisterResult{Combatant: c, Created: true}, nil
}

func (s *service) Reconnect(ctx context.Context, sessionID, combatantID, connID string) (*session.Combatant, error) {
	c, err := s.repository.Get(ctx, combatantID)
	if err != nil {
		return nil, rollerr.NotFound("character not found, please register again")
	}
	if c.SessionID != sessionID || c.Type != shared.CombatantTypePlayerCharacter {
		return nil, rollerr.NotFound("character not found, please register again")
	}

	c.PlayerConnID = connID
	if err := s.repository.Update(ctx, c); err != nil {
		return nil, rollerr.Wrap(err, "failed to reconnect character")
	}
	return c, nil
}

func (s *service) UnbindConnection(ctx context.Context, combatantID string) (*session.Combatant, error) {
	c, err := s.repository.Get(ctx, combatantID)
	if err != nil {
		return nil, err
	}

	c.PlayerConnID = ""
	if err := s.repository.Update(ctx, c); err != nil {
		return nil, rollerr.Wrap(err, "failed to unbind connection")
	}
	return c, nil
}
