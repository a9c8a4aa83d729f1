package state

//go:generate mockgen -destination=mock/mock_service.go -package=mockstate -source=service.go

import (
	"context"
	"strings"

	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/repositories/combatants"
	"github.com/rollinit/rollinit/internal/repositories/dicerolls"
	"github.com/rollinit/rollinit/internal/repositories/encounters"
	"github.com/rollinit/rollinit/internal/repositories/sessions"
)

// RecentRollCount is how many dice rolls a snapshot surfaces.
const RecentRollCount = 50

// SessionState is the full denormalized snapshot pushed on connect and on
// explicit reselect. Incremental events patch it afterwards.
type SessionState struct {
	JoinCode     string               `json:"join_code"`
	IsLocked     bool                 `json:"is_locked"`
	PhysicalDice bool                 `json:"physical_dice"`
	Combatants   []*session.Combatant `json:"combatants"`
	Encounters   []*combat.Encounter  `json:"encounters"`
	// ActiveEncounterID is the most recent non-completed encounter, empty
	// when every encounter is done.
	ActiveEncounterID string             `json:"active_encounter_id"`
	DiceRolls         []*session.DiceRoll `json:"dice_rolls"`
}

// Service assembles session snapshots
type Service interface {
	// GetState builds the full snapshot for a join code
	GetState(ctx context.Context, joinCode string) (*SessionState, error)
}

type service struct {
	sessionRepo   sessions.Repository
	combatantRepo combatants.Repository
	encounterRepo encounters.Repository
	diceRollRepo  dicerolls.Repository
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	SessionRepository   sessions.Repository
	CombatantRepository combatants.Repository
	EncounterRepository encounters.Repository
	DiceRollRepository  dicerolls.Repository
}

// NewService creates a new state aggregator
func NewService(cfg *ServiceConfig) Service {
	if cfg.SessionRepository == nil {
		panic("session repository is required")
	}
	if cfg.CombatantRepository == nil {
		panic("combatant repository is required")
	}
	if cfg.EncounterRepository == nil {
		panic("encounter repository is required")
	}
	if cfg.DiceRollRepository == nil {
		panic("dice roll repository is required")
	}

	return &service{
		sessionRepo:   cfg.SessionRepository,
		combatantRepo: cfg.CombatantRepository,
		encounterRepo: cfg.EncounterRepository,
		diceRollRepo:  cfg.DiceRollRepository,
	}
}

func (s *service) GetState(ctx context.Context, joinCode string) (*SessionState, error) {
	sess, err := s.sessionRepo.GetByJoinCode(ctx, strings.ToUpper(joinCode))
	if err != nil {
		return nil, err
	}

	templates, err := s.combatantRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	encs, err := s.encounterRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	rolls, err := s.diceRollRepo.ListRecent(ctx, sess.ID, RecentRollCount)
	if err != nil {
		return nil, err
	}

	state := &SessionState{
		JoinCode:     sess.JoinCode,
		IsLocked:     sess.IsLocked,
		PhysicalDice: sess.PhysicalDice,
		Combatants:   templates,
		Encounters:   encs,
		DiceRolls:    rolls,
	}

	// The active encounter is the most recently created one that has not
	// completed.
	for i := len(encs) - 1; i >= 0; i-- {
		if encs[i].Status != combat.EncounterStatusCompleted {
			state.ActiveEncounterID = encs[i].ID
			break
		}
	}

	return state, nil
}
