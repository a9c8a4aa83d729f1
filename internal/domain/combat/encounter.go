package combat

import (
	"sort"
	"time"

	"github.com/rollinit/rollinit/internal/domain/shared"
)

// EncounterStatus represents the current state of an encounter
type EncounterStatus string

const (
	EncounterStatusPreparing EncounterStatus = "PREPARING" // combatants assembled, no initiative yet
	EncounterStatusRolling   EncounterStatus = "ROLLING"   // initiative being entered
	EncounterStatusActive    EncounterStatus = "ACTIVE"    // combat in progress
	EncounterStatusCompleted EncounterStatus = "COMPLETED" // terminal
)

// Encounter is one combat instance within a session. It owns its
// participant instances; Combatants is kept sorted by SortOrder.
type Encounter struct {
	ID             string                `json:"id"`
	SessionID      string                `json:"session_id"`
	Name           string                `json:"name"`
	Status         EncounterStatus       `json:"status"`
	CurrentTurnIdx int                   `json:"current_turn_idx"`
	RoundNumber    int                   `json:"round_number"`
	Combatants     []*EncounterCombatant `json:"combatants"`
	CreatedAt      time.Time             `json:"created_at"`
}

// EncounterCombatant is one participant's presence within one encounter,
// decoupled from its template so the same monster can appear several times
// and combat damage never touches the template.
type EncounterCombatant struct {
	ID          string `json:"id"`
	EncounterID string `json:"encounter_id"`
	// CombatantID references the owning template; the template's type
	// decides instancing and HP sync-back rules.
	CombatantID     string               `json:"combatant_id"`
	CombatantType   shared.CombatantType `json:"combatant_type"`
	DisplayName     string               `json:"display_name"`
	CurrentHP       int                  `json:"current_hp"`
	MaxHP           int                  `json:"max_hp"`
	ArmorClass      int                  `json:"armor_class"`
	InitiativeBonus int                  `json:"initiative_bonus"`
	// Initiative is nil until rolled or entered.
	Initiative *int     `json:"initiative"`
	Conditions []string `json:"conditions"`
	IsHidden   bool     `json:"is_hidden"`
	IsActive   bool     `json:"is_active"`
	SortOrder  int      `json:"sort_order"`
}

// NewEncounter creates an encounter in the PREPARING state.
func NewEncounter(id, sessionID, name string) *Encounter {
	return &Encounter{
		ID:          id,
		SessionID:   sessionID,
		Name:        name,
		Status:      EncounterStatusPreparing,
		RoundNumber: 1,
		Combatants:  []*EncounterCombatant{},
		CreatedAt:   time.Now(),
	}
}

// SetHP writes an instance's current HP and keeps the defeat flag in sync:
// dropping to 0 removes it from the turn order, climbing above 0 revives it.
func (ec *EncounterCombatant) SetHP(hp int) {
	ec.CurrentHP = hp
	if ec.CurrentHP <= 0 {
		ec.IsActive = false
	} else {
		ec.IsActive = true
	}
}

// Instance returns the instance with the given ID, or nil.
func (e *Encounter) Instance(instanceID string) *EncounterCombatant {
	for _, ec := range e.Combatants {
		if ec.ID == instanceID {
			return ec
		}
	}
	return nil
}

// ActiveInstances returns the instances still in the turn order, in
// SortOrder sequence.
func (e *Encounter) ActiveInstances() []*EncounterCombatant {
	active := make([]*EncounterCombatant, 0, len(e.Combatants))
	for _, ec := range e.Combatants {
		if ec.IsActive {
			active = append(active, ec)
		}
	}
	return active
}

// CurrentInstance returns the instance at the turn pointer, or nil when the
// pointer is out of range or combat is not running.
func (e *Encounter) CurrentInstance() *EncounterCombatant {
	active := e.ActiveInstances()
	if e.CurrentTurnIdx < 0 || e.CurrentTurnIdx >= len(active) {
		return nil
	}
	return active[e.CurrentTurnIdx]
}

// ReassignSortOrder sorts instances by rolled initiative descending, with
// unrolled instances last. Ties go to player characters first, then to the
// higher initiative bonus. Ranks are written back densely from 0 and the
// slice is left in rank order. The caller persists the whole instance list
// in one batch.
func (e *Encounter) ReassignSortOrder() {
	sorted := make([]*EncounterCombatant, len(e.Combatants))
	copy(sorted, e.Combatants)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		initA, rolledA := initiativeOf(a)
		initB, rolledB := initiativeOf(b)
		if rolledA != rolledB {
			return rolledA // rolled sorts before unrolled
		}
		if initA != initB {
			return initA > initB
		}
		aPC := a.CombatantType == shared.CombatantTypePlayerCharacter
		bPC := b.CombatantType == shared.CombatantTypePlayerCharacter
		if aPC != bPC {
			return aPC
		}
		return a.InitiativeBonus > b.InitiativeBonus
	})

	for idx, ec := range sorted {
		ec.SortOrder = idx
	}
	e.Combatants = sorted
}

func initiativeOf(ec *EncounterCombatant) (value int, rolled bool) {
	if ec.Initiative == nil {
		return 0, false
	}
	return *ec.Initiative, true
}

// AllRolled reports whether every active instance has an initiative value,
// the precondition for starting combat.
func (e *Encounter) AllRolled() bool {
	for _, ec := range e.Combatants {
		if ec.IsActive && ec.Initiative == nil {
			return false
		}
	}
	return true
}

// StartRolling moves the encounter into initiative entry.
func (e *Encounter) StartRolling() {
	e.Status = EncounterStatusRolling
}

// Start begins combat: pointer to the top of the order, round 1.
func (e *Encounter) Start() {
	e.Status = EncounterStatusActive
	e.CurrentTurnIdx = 0
	e.RoundNumber = 1
}

// End marks the encounter completed. Completed encounters stay readable but
// accept no further combat actions.
func (e *Encounter) End() {
	e.Status = EncounterStatusCompleted
}

// NextTurn advances the pointer over the active instances, wrapping to the
// top and bumping the round. No-op when nothing is active: this is an
// operator action and recoverable, so it fails silently.
func (e *Encounter) NextTurn() bool {
	active := e.ActiveInstances()
	if len(active) == 0 {
		return false
	}

	next := e.CurrentTurnIdx + 1
	if next >= len(active) {
		next = 0
		e.RoundNumber++
	}
	e.CurrentTurnIdx = next
	return true
}

// PrevTurn retreats the pointer, wrapping to the bottom and decrementing
// the round, floored at 1.
func (e *Encounter) PrevTurn() bool {
	active := e.ActiveInstances()
	if len(active) == 0 {
		return false
	}

	prev := e.CurrentTurnIdx - 1
	if prev < 0 {
		prev = len(active) - 1
		if e.RoundNumber > 1 {
			e.RoundNumber--
		}
	}
	e.CurrentTurnIdx = prev
	return true
}

// Reorder moves the instance to newIndex within the active turn order and
// rewrites SortOrder densely across those instances.
func (e *Encounter) Reorder(instanceID string, newIndex int) bool {
	active := e.ActiveInstances()

	draggedIdx := -1
	for i, ec := range active {
		if ec.ID == instanceID {
			draggedIdx = i
			break
		}
	}
	if draggedIdx == -1 {
		return false
	}

	dragged := active[draggedIdx]
	active = append(active[:draggedIdx], active[draggedIdx+1:]...)
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(active) {
		newIndex = len(active)
	}
	active = append(active[:newIndex], append([]*EncounterCombatant{dragged}, active[newIndex:]...)...)

	for idx, ec := range active {
		ec.SortOrder = idx
	}
	e.sortBySortOrder()
	return true
}

func (e *Encounter) sortBySortOrder() {
	sort.SliceStable(e.Combatants, func(i, j int) bool {
		return e.Combatants[i].SortOrder < e.Combatants[j].SortOrder
	})
}

// MaxSortOrder returns the highest sort order in use, or -1 when empty.
func (e *Encounter) MaxSortOrder() int {
	max := -1
	for _, ec := range e.Combatants {
		if ec.SortOrder > max {
			max = ec.SortOrder
		}
	}
	return max
}

// InstancesOf returns every instance backed by the given template.
func (e *Encounter) InstancesOf(combatantID string) []*EncounterCombatant {
	var out []*EncounterCombatant
	for _, ec := range e.Combatants {
		if ec.CombatantID == combatantID {
			out = append(out, ec)
		}
	}
	return out
}

// RemoveInstancesOf drops every instance backed by the given template and
// reports whether anything was removed. Turn-pointer repair is the caller's
// job via TurnSnapshot/RepairTurnPointer taken around this call.
func (e *Encounter) RemoveInstancesOf(combatantID string) bool {
	kept := e.Combatants[:0]
	removed := false
	for _, ec := range e.Combatants {
		if ec.CombatantID == combatantID {
			removed = true
			continue
		}
		kept = append(kept, ec)
	}
	e.Combatants = kept
	return removed
}

// TurnSnapshot captures the ordered active-instance IDs and the pointer's
// target before a destructive edit, so the pointer can be repaired after.
type TurnSnapshot struct {
	ActiveIDs []string
	TargetID  string
	Index     int
}

// TakeTurnSnapshot records the current turn context.
func (e *Encounter) TakeTurnSnapshot() TurnSnapshot {
	active := e.ActiveInstances()
	snap := TurnSnapshot{
		ActiveIDs: make([]string, len(active)),
		Index:     e.CurrentTurnIdx,
	}
	for i, ec := range active {
		snap.ActiveIDs[i] = ec.ID
	}
	if e.CurrentTurnIdx >= 0 && e.CurrentTurnIdx < len(active) {
		snap.TargetID = active[e.CurrentTurnIdx].ID
	}
	return snap
}

// RepairTurnPointer re-points the turn index after instances were removed.
// If the snapshot's target survived, the pointer follows it to its new
// index. Otherwise we walk forward circularly through the snapshot order
// and land on the first survivor; if nothing survived, reset to 0. The
// round number is never touched.
func (e *Encounter) RepairTurnPointer(snap TurnSnapshot) {
	active := e.ActiveInstances()

	indexOf := func(id string) int {
		for i, ec := range active {
			if ec.ID == id {
				return i
			}
		}
		return -1
	}

	if snap.TargetID != "" {
		if idx := indexOf(snap.TargetID); idx >= 0 {
			e.CurrentTurnIdx = idx
			return
		}
	}

	n := len(snap.ActiveIDs)
	if n == 0 {
		e.CurrentTurnIdx = 0
		return
	}
	for offset := 1; offset <= n; offset++ {
		candidate := snap.ActiveIDs[(snap.Index+offset)%n]
		if idx := indexOf(candidate); idx >= 0 {
			e.CurrentTurnIdx = idx
			return
		}
	}

	e.CurrentTurnIdx = 0
}
