// Package view derives the participant-facing projection of session state.
// The DM sees everything; everyone else gets a copy with hidden combatants
// and private rolls removed, and turn indices re-expressed against the
// visible turn order so a hidden combatant's existence never leaks through
// pointer arithmetic.
package view

import (
	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/services/state"
)

// FilterState projects a snapshot for the participant audience.
func FilterState(s *state.SessionState) *state.SessionState {
	filtered := &state.SessionState{
		JoinCode:          s.JoinCode,
		IsLocked:          s.IsLocked,
		PhysicalDice:      s.PhysicalDice,
		ActiveEncounterID: s.ActiveEncounterID,
		Combatants:        FilterCombatants(s.Combatants),
		DiceRolls:         FilterRolls(s.DiceRolls),
	}

	filtered.Encounters = make([]*combat.Encounter, 0, len(s.Encounters))
	for _, enc := range s.Encounters {
		filtered.Encounters = append(filtered.Encounters, FilterEncounter(enc))
	}
	return filtered
}

// FilterCombatants drops hidden templates.
func FilterCombatants(all []*session.Combatant) []*session.Combatant {
	visible := make([]*session.Combatant, 0, len(all))
	for _, c := range all {
		if !c.IsHidden {
			visible = append(visible, c)
		}
	}
	return visible
}

// FilterRolls drops private rolls.
func FilterRolls(all []*session.DiceRoll) []*session.DiceRoll {
	visible := make([]*session.DiceRoll, 0, len(all))
	for _, r := range all {
		if !r.IsPrivate {
			visible = append(visible, r)
		}
	}
	return visible
}

// FilterEncounter returns a shallow copy of the encounter with hidden
// instances dropped and, while combat runs, the turn pointer remapped into
// the visible ordering.
func FilterEncounter(enc *combat.Encounter) *combat.Encounter {
	filtered := *enc
	filtered.Combatants = make([]*combat.EncounterCombatant, 0, len(enc.Combatants))
	for _, ec := range enc.Combatants {
		if !ec.IsHidden {
			filtered.Combatants = append(filtered.Combatants, ec)
		}
	}

	if enc.Status == combat.EncounterStatusActive {
		filtered.CurrentTurnIdx = visibleTurnIndex(enc)
	}

	return &filtered
}

// visibleTurnIndex re-expresses the true turn pointer as an index into the
// visible active ordering. When the pointed instance is hidden we walk
// backward to the nearest earlier visible instance; with no earlier visible
// instance the true index is left as-is.
func visibleTurnIndex(enc *combat.Encounter) int {
	activeEntries := enc.ActiveInstances()
	if enc.CurrentTurnIdx < 0 || enc.CurrentTurnIdx >= len(activeEntries) {
		return enc.CurrentTurnIdx
	}

	visibleActive := make([]*combat.EncounterCombatant, 0, len(activeEntries))
	for _, ec := range activeEntries {
		if !ec.IsHidden {
			visibleActive = append(visibleActive, ec)
		}
	}

	indexOf := func(id string) int {
		for i, ec := range visibleActive {
			if ec.ID == id {
				return i
			}
		}
		return -1
	}

	current := activeEntries[enc.CurrentTurnIdx]
	if !current.IsHidden {
		return indexOf(current.ID)
	}

	for idx := enc.CurrentTurnIdx - 1; idx >= 0; idx-- {
		if !activeEntries[idx].IsHidden {
			return indexOf(activeEntries[idx].ID)
		}
	}
	return enc.CurrentTurnIdx
}
