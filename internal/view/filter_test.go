package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	"github.com/rollinit/rollinit/internal/services/state"
)

func intPtr(v int) *int { return &v }

func instance(id string, hidden bool) *combat.EncounterCombatant {
	return &combat.EncounterCombatant{
		ID:          id,
		CombatantID: "tmpl-" + id,
		DisplayName: id,
		CurrentHP:   10,
		MaxHP:       10,
		Initiative:  intPtr(10),
		IsHidden:    hidden,
		IsActive:    true,
	}
}

func TestFilterCombatants(t *testing.T) {
	all := []*session.Combatant{
		{ID: "a", Name: "Goblin", Type: shared.CombatantTypeMonster, IsHidden: true},
		{ID: "b", Name: "Thorin", Type: shared.CombatantTypePlayerCharacter},
	}
	visible := FilterCombatants(all)
	require.Len(t, visible, 1)
	assert.Equal(t, "b", visible[0].ID)
}

func TestFilterRolls(t *testing.T) {
	all := []*session.DiceRoll{
		{ID: "r1", IsPrivate: true},
		{ID: "r2"},
	}
	visible := FilterRolls(all)
	require.Len(t, visible, 1)
	assert.Equal(t, "r2", visible[0].ID)
}

func TestFilterEncounter(t *testing.T) {
	t.Run("hidden instances never appear", func(t *testing.T) {
		enc := combat.NewEncounter("e1", "s1", "Ambush")
		enc.Combatants = []*combat.EncounterCombatant{
			instance("a", false),
			instance("ghost", true),
			instance("b", false),
		}
		filtered := FilterEncounter(enc)
		require.Len(t, filtered.Combatants, 2)
		for _, ec := range filtered.Combatants {
			assert.False(t, ec.IsHidden)
		}
		// The source encounter is untouched.
		assert.Len(t, enc.Combatants, 3)
	})

	t.Run("turn pointer on a visible instance is remapped", func(t *testing.T) {
		enc := combat.NewEncounter("e1", "s1", "Ambush")
		enc.Combatants = []*combat.EncounterCombatant{
			instance("ghost", true),
			instance("a", false),
			instance("b", false),
		}
		enc.Status = combat.EncounterStatusActive
		enc.CurrentTurnIdx = 1 // a, first visible

		filtered := FilterEncounter(enc)
		assert.Equal(t, 0, filtered.CurrentTurnIdx)
	})

	t.Run("pointer on a hidden instance walks back to the previous visible", func(t *testing.T) {
		enc := combat.NewEncounter("e1", "s1", "Ambush")
		enc.Combatants = []*combat.EncounterCombatant{
			instance("a", false),
			instance("ghost", true),
			instance("b", false),
		}
		enc.Status = combat.EncounterStatusActive
		enc.CurrentTurnIdx = 1 // ghost

		filtered := FilterEncounter(enc)
		assert.Equal(t, 0, filtered.CurrentTurnIdx)
	})

	t.Run("pointer stays put with no earlier visible instance", func(t *testing.T) {
		enc := combat.NewEncounter("e1", "s1", "Ambush")
		enc.Combatants = []*combat.EncounterCombatant{
			instance("ghost", true),
			instance("a", false),
		}
		enc.Status = combat.EncounterStatusActive
		enc.CurrentTurnIdx = 0 // ghost, nothing visible before it

		filtered := FilterEncounter(enc)
		assert.Equal(t, 0, filtered.CurrentTurnIdx)
	})

	t.Run("pointer untouched outside active combat", func(t *testing.T) {
		enc := combat.NewEncounter("e1", "s1", "Ambush")
		enc.Combatants = []*combat.EncounterCombatant{
			instance("ghost", true),
			instance("a", false),
		}
		enc.CurrentTurnIdx = 1

		filtered := FilterEncounter(enc)
		assert.Equal(t, 1, filtered.CurrentTurnIdx)
	})
}

func TestFilterState(t *testing.T) {
	enc := combat.NewEncounter("e1", "s1", "Ambush")
	enc.Combatants = []*combat.EncounterCombatant{instance("ghost", true)}

	s := &state.SessionState{
		JoinCode:     "GOBLIN",
		PhysicalDice: true,
		Combatants: []*session.Combatant{
			{ID: "c1", IsHidden: true},
			{ID: "c2"},
		},
		Encounters:        []*combat.Encounter{enc},
		ActiveEncounterID: "e1",
		DiceRolls: []*session.DiceRoll{
			{ID: "r1", IsPrivate: true},
		},
	}

	filtered := FilterState(s)
	assert.Equal(t, "GOBLIN", filtered.JoinCode)
	assert.True(t, filtered.PhysicalDice)
	assert.Equal(t, "e1", filtered.ActiveEncounterID)
	require.Len(t, filtered.Combatants, 1)
	assert.Equal(t, "c2", filtered.Combatants[0].ID)
	assert.Empty(t, filtered.DiceRolls)
	require.Len(t, filtered.Encounters, 1)
	assert.Empty(t, filtered.Encounters[0].Combatants)
}
