package encounter

//go:generate mockgen -destination=mock/mock_service.go -package=mockencounter -source=service.go

import (
	"context"
	"fmt"
	"time"

	"github.com/rollinit/rollinit/internal/dice"
	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	rollerr "github.com/rollinit/rollinit/internal/errors"
	"github.com/rollinit/rollinit/internal/repositories/combatants"
	"github.com/rollinit/rollinit/internal/repositories/dicerolls"
	"github.com/rollinit/rollinit/internal/repositories/encounters"
	"github.com/rollinit/rollinit/internal/uuid"
)

// Service defines the encounter service interface
type Service interface {
	// Create builds an encounter from the session's auto-join PCs/NPCs
	// plus the chosen monster counts
	Create(ctx context.Context, input *CreateEncounterInput) (*combat.Encounter, error)

	// Get retrieves an encounter by ID
	Get(ctx context.Context, encounterID string) (*combat.Encounter, error)

	// AddCombatant instantiates a template into a running encounter
	AddCombatant(ctx context.Context, encounterID, combatantID string) (*combat.Encounter, error)

	// StartRolling opens initiative entry
	StartRolling(ctx context.Context, encounterID string) (*combat.Encounter, error)

	// RollInitiative rolls (or records a manual value for) one instance
	RollInitiative(ctx context.Context, input *RollInitiativeInput) (*RollInitiativeResult, error)

	// RollAll rolls every instance that has no initiative yet
	RollAll(ctx context.Context, encounterID string) (*combat.Encounter, []*session.DiceRoll, error)

	// StartCombat begins combat once every active instance has rolled
	StartCombat(ctx context.Context, encounterID string) (*combat.Encounter, error)

	// NextTurn advances the turn pointer
	NextTurn(ctx context.Context, encounterID string) (*combat.Encounter, bool, error)

	// PrevTurn retreats the turn pointer
	PrevTurn(ctx context.Context, encounterID string) (*combat.Encounter, bool, error)

	// ToggleActive flips an instance in or out of the turn order
	ToggleActive(ctx context.Context, encounterID, instanceID string) (*combat.Encounter, error)

	// Reorder drags an instance to a new position in the turn order
	Reorder(ctx context.Context, encounterID, instanceID string, newIndex int) (*combat.Encounter, error)

	// End completes the encounter
	End(ctx context.Context, encounterID string) (*combat.Encounter, error)

	// UpdateInstance edits one instance's HP/conditions/visibility
	UpdateInstance(ctx context.Context, input *UpdateInstanceInput) (*UpdateInstanceResult, error)
}

// MonsterEntry selects how many instances of a monster template join a new
// encounter.
type MonsterEntry struct {
	CombatantID string
	Count       int
	IsHidden    bool
}

// CreateEncounterInput contains data for creating an encounter
type CreateEncounterInput struct {
	SessionID    string
	Name         string
	Monsters     []MonsterEntry
	ExcludePCIDs []string
}

// RollInitiativeInput contains data for one initiative roll. Value carries
// a manually entered d20 face; nil means roll server-side.
type RollInitiativeInput struct {
	EncounterID string
	InstanceID  string
	Value       *int
}

// RollInitiativeResult carries the re-sorted encounter and the logged roll
type RollInitiativeResult struct {
	Encounter *combat.Encounter
	Roll      *session.DiceRoll
}

// InstanceUpdate is a partial instance edit. Nil fields are left alone.
type InstanceUpdate struct {
	CurrentHP  *int
	Conditions *[]string
	IsHidden   *bool
}

// UpdateInstanceInput contains data for an instance edit
type UpdateInstanceInput struct {
	EncounterID string
	InstanceID  string
	Update      InstanceUpdate
}

// UpdateInstanceResult carries the updated encounter and, when a PC's HP
// changed, the template the edit synced back into.
type UpdateInstanceResult struct {
	Encounter      *combat.Encounter
	SyncedTemplate *session.Combatant
}

type service struct {
	repository    encounters.Repository
	combatantRepo combatants.Repository
	diceRollRepo  dicerolls.Repository
	roller        dice.Roller
	uuidGenerator uuid.Generator
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository          encounters.Repository
	CombatantRepository combatants.Repository
	DiceRollRepository  dicerolls.Repository
	Roller              dice.Roller
	UUIDGenerator       uuid.Generator
}

// NewService creates a new encounter service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.CombatantRepository == nil {
		panic("combatant repository is required")
	}
	if cfg.DiceRollRepository == nil {
		panic("dice roll repository is required")
	}

	svc := &service{
		repository:    cfg.Repository,
		combatantRepo: cfg.CombatantRepository,
		diceRollRepo:  cfg.DiceRollRepository,
		roller:        cfg.Roller,
		uuidGenerator: cfg.UUIDGenerator,
	}
	if svc.roller == nil {
		svc.roller = dice.NewRandomRoller()
	}
	if svc.uuidGenerator == nil {
		svc.uuidGenerator = uuid.NewGoogleUUIDGenerator()
	}
	return svc
}

func (s *service) Create(ctx context.Context, input *CreateEncounterInput) (*combat.Encounter, error) {
	if input.Name == "" {
		return nil, rollerr.Validation("encounter name is required")
	}

	enc := combat.NewEncounter(s.uuidGenerator.New(), input.SessionID, input.Name)

	templates, err := s.combatantRepo.ListBySession(ctx, input.SessionID)
	if err != nil {
		return nil, rollerr.Wrap(err, "failed to list combatants")
	}
	byID := make(map[string]*session.Combatant, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}

	excluded := make(map[string]bool, len(input.ExcludePCIDs))
	for _, id := range input.ExcludePCIDs {
		excluded[id] = true
	}

	sortOrder := 0

	// PCs and NPCs join once each, carrying their current HP and
	// conditions into the encounter.
	for _, t := range templates {
		if !t.Type.IsSingleton() || !t.AutoJoin || excluded[t.ID] {
			continue
		}
		enc.Combatants = append(enc.Combatants, &combat.EncounterCombatant{
			ID:              s.uuidGenerator.New(),
			EncounterID:     enc.ID,
			CombatantID:     t.ID,
			CombatantType:   t.Type,
			DisplayName:     t.Name,
			CurrentHP:       t.CurrentHP,
			MaxHP:           t.MaxHP,
			ArmorClass:      t.ArmorClass,
			InitiativeBonus: t.InitiativeBonus,
			Conditions:      append([]string{}, t.Conditions...),
			IsHidden:        t.IsHidden,
			IsActive:        true,
			SortOrder:       sortOrder,
		})
		sortOrder++
	}

	// Monsters are instanced per count. A total above one per template
	// gets numbered display names ("Goblin 1", "Goblin 2").
	totalPerTemplate := make(map[string]int)
	for _, entry := range input.Monsters {
		totalPerTemplate[entry.CombatantID] += entry.Count
	}

	nextIndex := make(map[string]int)
	for _, entry := range input.Monsters {
		t, ok := byID[entry.CombatantID]
		if !ok {
			continue
		}

		for i := 0; i < entry.Count; i++ {
			displayName := t.Name
			if totalPerTemplate[t.ID] > 1 {
				displayName = fmt.Sprintf("%s %d", t.Name, nextIndex[t.ID]+1)
			}
			nextIndex[t.ID]++

			enc.Combatants = append(enc.Combatants, &combat.EncounterCombatant{
				ID:              s.uuidGenerator.New(),
				EncounterID:     enc.ID,
				CombatantID:     t.ID,
				CombatantType:   t.Type,
				DisplayName:     displayName,
				CurrentHP:       t.MaxHP,
				MaxHP:           t.MaxHP,
				ArmorClass:      t.ArmorClass,
				InitiativeBonus: t.InitiativeBonus,
				Conditions:      []string{},
				IsHidden:        entry.IsHidden,
				IsActive:        true,
				SortOrder:       sortOrder,
			})
			sortOrder++
		}
	}

	if err := s.repository.Create(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to create encounter")
	}
	return enc, nil
}

func (s *service) Get(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	return s.repository.Get(ctx, encounterID)
}

func (s *service) AddCombatant(ctx context.Context, encounterID, combatantID string) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	if enc.Status != combat.EncounterStatusActive && enc.Status != combat.EncounterStatusRolling {
		return nil, rollerr.Validation("combatants can only be added while rolling or in combat")
	}

	t, err := s.combatantRepo.Get(ctx, combatantID)
	if err != nil {
		return nil, err
	}

	if t.Type.IsSingleton() && len(enc.InstancesOf(combatantID)) > 0 {
		return nil, rollerr.AlreadyExists("combatant is already in the encounter")
	}

	displayName := t.Name
	currentHP := t.MaxHP
	conditions := []string{}
	if t.Type.IsSingleton() {
		currentHP = t.CurrentHP
		conditions = append([]string{}, t.Conditions...)
	} else {
		displayName = fmt.Sprintf("%s %d", t.Name, len(enc.InstancesOf(combatantID))+1)
	}

	enc.Combatants = append(enc.Combatants, &combat.EncounterCombatant{
		ID:              s.uuidGenerator.New(),
		EncounterID:     enc.ID,
		CombatantID:     t.ID,
		CombatantType:   t.Type,
		DisplayName:     displayName,
		CurrentHP:       currentHP,
		MaxHP:           t.MaxHP,
		ArmorClass:      t.ArmorClass,
		InitiativeBonus: t.InitiativeBonus,
		Conditions:      conditions,
		IsHidden:        t.IsHidden,
		IsActive:        true,
		SortOrder:       enc.MaxSortOrder() + 1,
	})

	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to add combatant to encounter")
	}
	return enc, nil
}

func (s *service) StartRolling(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	enc.StartRolling()
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to start rolling")
	}
	return enc, nil
}

func (s *service) RollInitiative(ctx context.Context, input *RollInitiativeInput) (*RollInitiativeResult, error) {
	enc, err := s.repository.Get(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	instance := enc.Instance(input.InstanceID)
	if instance == nil {
		return nil, rollerr.NotFoundf("combatant not found in encounter: %s", input.InstanceID)
	}

	roll, err := s.applyInitiative(ctx, enc, instance, input.Value)
	if err != nil {
		return nil, err
	}

	enc.ReassignSortOrder()
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to save initiative")
	}

	return &RollInitiativeResult{Encounter: enc, Roll: roll}, nil
}

func (s *service) RollAll(ctx context.Context, encounterID string) (*combat.Encounter, []*session.DiceRoll, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, nil, err
	}

	var rolls []*session.DiceRoll
	for _, instance := range enc.Combatants {
		if instance.Initiative != nil {
			continue
		}
		roll, err := s.applyInitiative(ctx, enc, instance, nil)
		if err != nil {
			return nil, nil, err
		}
		rolls = append(rolls, roll)
	}

	enc.ReassignSortOrder()
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, nil, rollerr.Wrap(err, "failed to save initiative")
	}
	return enc, rolls, nil
}

// applyInitiative records a single d20 draw (or manual face value) plus the
// instance's bonus, and logs it to the dice log, private when the instance
// is hidden.
func (s *service) applyInitiative(ctx context.Context, enc *combat.Encounter, instance *combat.EncounterCombatant, value *int) (*session.DiceRoll, error) {
	face := 0
	if value != nil {
		face = *value
	} else {
		face = s.roller.RollD20()
	}

	total := face + instance.InitiativeBonus
	instance.Initiative = &total

	roll := &session.DiceRoll{
		ID:         s.uuidGenerator.New(),
		SessionID:  enc.SessionID,
		Notation:   dice.InitiativeNotation(instance.InitiativeBonus),
		Rolls:      []int{face},
		Modifier:   instance.InitiativeBonus,
		Total:      total,
		RollerName: instance.DisplayName + " (Initiative)",
		IsPrivate:  instance.IsHidden,
		CreatedAt:  time.Now(),
	}
	if err := s.diceRollRepo.Create(ctx, roll); err != nil {
		return nil, rollerr.Wrap(err, "failed to log initiative roll")
	}
	return roll, nil
}

func (s *service) StartCombat(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	if !enc.AllRolled() {
		return nil, rollerr.Validation("all combatants must roll initiative before combat starts")
	}

	enc.ReassignSortOrder()
	enc.Start()
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to start combat")
	}
	return enc, nil
}

func (s *service) NextTurn(ctx context.Context, encounterID string) (*combat.Encounter, bool, error) {
	return s.stepTurn(ctx, encounterID, (*combat.Encounter).NextTurn)
}

func (s *service) PrevTurn(ctx context.Context, encounterID string) (*combat.Encounter, bool, error) {
	return s.stepTurn(ctx, encounterID, (*combat.Encounter).PrevTurn)
}

func (s *service) stepTurn(ctx context.Context, encounterID string, step func(*combat.Encounter) bool) (*combat.Encounter, bool, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, false, err
	}

	if enc.Status != combat.EncounterStatusActive {
		return enc, false, nil
	}
	if !step(enc) {
		return enc, false, nil
	}

	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, false, rollerr.Wrap(err, "failed to advance turn")
	}
	return enc, true, nil
}

func (s *service) ToggleActive(ctx context.Context, encounterID, instanceID string) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	instance := enc.Instance(instanceID)
	if instance == nil {
		return nil, rollerr.NotFoundf("combatant not found in encounter: %s", instanceID)
	}

	instance.IsActive = !instance.IsActive
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to toggle combatant")
	}
	return enc, nil
}

func (s *service) Reorder(ctx context.Context, encounterID, instanceID string, newIndex int) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	if enc.Status != combat.EncounterStatusActive && enc.Status != combat.EncounterStatusRolling {
		return nil, rollerr.Validation("turn order can only change while rolling or in combat")
	}

	if !enc.Reorder(instanceID, newIndex) {
		return nil, rollerr.NotFoundf("combatant not found in encounter: %s", instanceID)
	}

	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to reorder")
	}
	return enc, nil
}

func (s *service) End(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	enc, err := s.repository.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	enc.End()
	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to end encounter")
	}
	return enc, nil
}

func (s *service) UpdateInstance(ctx context.Context, input *UpdateInstanceInput) (*UpdateInstanceResult, error) {
	enc, err := s.repository.Get(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	instance := enc.Instance(input.InstanceID)
	if instance == nil {
		return nil, rollerr.NotFoundf("combatant not found in encounter: %s", input.InstanceID)
	}

	if input.Update.Conditions != nil {
		instance.Conditions = append([]string{}, (*input.Update.Conditions)...)
	}
	if input.Update.IsHidden != nil {
		instance.IsHidden = *input.Update.IsHidden
	}

	result := &UpdateInstanceResult{Encounter: enc}

	if input.Update.CurrentHP != nil {
		instance.SetHP(*input.Update.CurrentHP)

		// One-way sync: a PC's in-combat HP writes back to the template
		// so the next encounter starts from it.
		if instance.CombatantType == shared.CombatantTypePlayerCharacter {
			t, err := s.combatantRepo.Get(ctx, instance.CombatantID)
			if err == nil {
				t.CurrentHP = *input.Update.CurrentHP
				if err := s.combatantRepo.Update(ctx, t); err != nil {
					return nil, rollerr.Wrap(err, "failed to sync hit points")
				}
				result.SyncedTemplate = t
			}
		}
	}

	if err := s.repository.Update(ctx, enc); err != nil {
		return nil, rollerr.Wrap(err, "failed to update combatant")
	}
	return result, nil
}
