package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollinit/rollinit/internal/dice"
	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	"github.com/rollinit/rollinit/internal/joincode"
	"github.com/rollinit/rollinit/internal/services"
	combatantsvc "github.com/rollinit/rollinit/internal/services/combatant"
	statesvc "github.com/rollinit/rollinit/internal/services/state"
)

type handlerFixture struct {
	t        *testing.T
	hub      *Hub
	handler  *Handler
	provider *services.Provider
	roller   *dice.MockRoller

	joinCode string
	dmToken  string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	roller := dice.NewMockRoller()
	provider := services.NewProvider(&services.ProviderConfig{
		Roller:        roller,
		CodeGenerator: joincode.NewSeededWordGenerator(11),
	})

	hub := NewHub()
	handler := NewHandler(&HandlerConfig{
		Hub:              hub,
		SessionService:   provider.SessionService,
		CombatantService: provider.CombatantService,
		EncounterService: provider.EncounterService,
		DiceService:      provider.DiceService,
		StateService:     provider.StateService,
	})

	sess, err := provider.SessionService.CreateSession(context.Background())
	require.NoError(t, err)

	return &handlerFixture{
		t:        t,
		hub:      hub,
		handler:  handler,
		provider: provider,
		roller:   roller,
		joinCode: sess.JoinCode,
		dmToken:  sess.DMToken,
	}
}

func (f *handlerFixture) emit(c *Client, event string, payload any) {
	f.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(f.t, err)
	f.handler.HandleMessage(c, &Envelope{Event: event, Data: data})
}

// connectDM registers a DM connection and drains its join frames.
func (f *handlerFixture) connectDM(id string) *Client {
	f.t.Helper()
	c := addTestClient(f.hub, id)
	f.emit(c, EventSessionJoin, JoinPayload{JoinCode: f.joinCode, IsDM: true})
	env := recv(f.t, c)
	require.Equal(f.t, EventSessionState, env.Event)
	recv(f.t, c) // viewer count
	return c
}

// connectPlayer registers a plain participant connection and drains its
// join frames.
func (f *handlerFixture) connectPlayer(id string) *Client {
	f.t.Helper()
	c := addTestClient(f.hub, id)
	f.emit(c, EventSessionJoin, JoinPayload{JoinCode: f.joinCode})
	env := recv(f.t, c)
	require.Equal(f.t, EventSessionState, env.Event)
	recv(f.t, c) // viewer count
	return c
}

func drainAll(clients ...*Client) {
	for _, c := range clients {
		for len(c.send) > 0 {
			<-c.send
		}
	}
}

func decodeInto[T any](t *testing.T, env *Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHandler_SessionJoin(t *testing.T) {
	t.Run("unknown code errors", func(t *testing.T) {
		f := newHandlerFixture(t)
		c := addTestClient(f.hub, "c1")
		f.emit(c, EventSessionJoin, JoinPayload{JoinCode: "NOSUCH"})
		env := recv(t, c)
		assert.Equal(t, EventError, env.Event)
	})

	t.Run("DM receives the unfiltered snapshot", func(t *testing.T) {
		f := newHandlerFixture(t)
		_, err := f.provider.CombatantService.Add(context.Background(), &combatantsvc.AddCombatantInput{
			SessionID: f.sessionID(), Name: "Shade", Type: shared.CombatantTypeMonster, MaxHP: 12, IsHidden: true,
		})
		require.NoError(t, err)

		dm := addTestClient(f.hub, "dm")
		f.emit(dm, EventSessionJoin, JoinPayload{JoinCode: f.joinCode, IsDM: true})
		st := decodeInto[statesvc.SessionState](t, recv(t, dm))
		assert.Len(t, st.Combatants, 1)
	})

	t.Run("participants receive the filtered snapshot", func(t *testing.T) {
		f := newHandlerFixture(t)
		_, err := f.provider.CombatantService.Add(context.Background(), &combatantsvc.AddCombatantInput{
			SessionID: f.sessionID(), Name: "Shade", Type: shared.CombatantTypeMonster, MaxHP: 12, IsHidden: true,
		})
		require.NoError(t, err)

		p := addTestClient(f.hub, "p")
		f.emit(p, EventSessionJoin, JoinPayload{JoinCode: f.joinCode})
		st := decodeInto[statesvc.SessionState](t, recv(t, p))
		assert.Empty(t, st.Combatants)
	})

	t.Run("locked session rejects participants but admits the DM", func(t *testing.T) {
		f := newHandlerFixture(t)
		_, err := f.provider.SessionService.ToggleLock(context.Background(), f.joinCode, f.dmToken)
		require.NoError(t, err)

		p := addTestClient(f.hub, "p")
		f.emit(p, EventSessionJoin, JoinPayload{JoinCode: f.joinCode})
		assert.Equal(t, EventError, recv(t, p).Event)

		dm := addTestClient(f.hub, "dm")
		f.emit(dm, EventSessionJoin, JoinPayload{JoinCode: f.joinCode, IsDM: true})
		assert.Equal(t, EventSessionState, recv(t, dm).Event)
	})

	t.Run("join codes are case-insensitive", func(t *testing.T) {
		f := newHandlerFixture(t)
		p := addTestClient(f.hub, "p")
		f.emit(p, EventSessionJoin, JoinPayload{JoinCode: strings.ToLower(f.joinCode)})
		assert.Equal(t, EventSessionState, recv(t, p).Event)
	})
}

func (f *handlerFixture) sessionID() string {
	sess, err := f.provider.SessionService.GetByJoinCode(context.Background(), f.joinCode)
	require.NoError(f.t, err)
	return sess.ID
}

func TestHandler_HiddenCombatantBroadcasts(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	f.emit(dm, EventCombatantAdd, AddCombatantPayload{
		JoinCode: f.joinCode,
		Name:     "Shade",
		Type:     shared.CombatantTypeMonster,
		MaxHP:    12,
		IsHidden: true,
	})

	env := recv(t, dm)
	assert.Equal(t, EventCombatantAdded, env.Event)
	assert.True(t, drained(p), "hidden combatant leaked to a participant")

	f.emit(dm, EventCombatantAdd, AddCombatantPayload{
		JoinCode: f.joinCode,
		Name:     "Goblin",
		Type:     shared.CombatantTypeMonster,
		MaxHP:    7,
	})
	assert.Equal(t, EventCombatantAdded, recv(t, dm).Event)
	assert.Equal(t, EventCombatantAdded, recv(t, p).Event)
}

func TestHandler_PrivateDiceBroadcasts(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	f.roller.SetRolls([]int{4, 5})
	f.emit(dm, EventDiceRoll, DiceRollPayload{
		JoinCode:   f.joinCode,
		Notation:   "2d6",
		RollerName: "DM",
		IsPrivate:  true,
	})
	assert.Equal(t, EventDiceResult, recv(t, dm).Event)
	assert.True(t, drained(p), "private roll leaked to a participant")

	f.roller.SetRolls([]int{12})
	f.emit(p, EventDiceRoll, DiceRollPayload{
		JoinCode:   f.joinCode,
		Notation:   "d20",
		RollerName: "Elara",
	})
	assert.Equal(t, EventDiceResult, recv(t, dm).Event)
	roll := decodeInto[session.DiceRoll](t, recv(t, p))
	assert.Equal(t, 12, roll.Total)
}

func TestHandler_PlayerRegistration(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	f.emit(p, EventPlayerRegister, PlayerRegisterPayload{
		JoinCode:        f.joinCode,
		Name:            "Elara",
		MaxHP:           18,
		InitiativeBonus: 2,
		ArmorClass:      14,
	})

	assert.Equal(t, EventCombatantAdded, recv(t, dm).Event)
	assert.Equal(t, EventCombatantAdded, recv(t, p).Event)
	reg := decodeInto[PlayerRegisteredPayload](t, recv(t, p))
	assert.Equal(t, "Elara", reg.Name)

	counts := decodeInto[ViewerCountPayload](t, recv(t, p))
	assert.Equal(t, 1, counts.Players)
	assert.Equal(t, 0, counts.Spectators)

	connID, bound := f.hub.ConnForCombatant(reg.CombatantID)
	require.True(t, bound)
	assert.Equal(t, p.ID, connID)
}

func TestHandler_CombatFlowOverEvents(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	// Elara registers herself; the DM adds a goblin.
	f.emit(p, EventPlayerRegister, PlayerRegisterPayload{
		JoinCode: f.joinCode, Name: "Elara", MaxHP: 18, InitiativeBonus: 2,
	})
	reg := func() PlayerRegisteredPayload {
		for {
			env := recv(t, p)
			if env.Event == EventPlayerRegistered {
				return decodeInto[PlayerRegisteredPayload](t, env)
			}
		}
	}()
	require.NotEmpty(t, reg.CombatantID)
	f.emit(dm, EventCombatantAdd, AddCombatantPayload{
		JoinCode: f.joinCode, Name: "Goblin", Type: shared.CombatantTypeMonster, MaxHP: 7, InitiativeBonus: 1,
	})
	drainAll(dm, p)

	// Encounter with one goblin; Elara auto-joins.
	goblinID := f.templateID("Goblin")
	f.emit(dm, EventEncounterCreate, CreateEncounterPayload{
		JoinCode: f.joinCode,
		Name:     "Cave",
		Monsters: []MonsterEntryPayload{{CombatantID: goblinID, Count: 1}},
	})
	env := recv(t, dm)
	require.Equal(t, EventEncounterCreated, env.Event)
	enc := decodeInto[combat.Encounter](t, env)
	require.Len(t, enc.Combatants, 2)
	drainAll(dm, p)

	f.emit(dm, EventCombatStartRolling, EncounterPayload{JoinCode: f.joinCode, EncounterID: enc.ID})
	drainAll(dm, p)

	var elaraInstance, goblinInstance string
	for _, ec := range enc.Combatants {
		if ec.DisplayName == "Elara" {
			elaraInstance = ec.ID
		} else {
			goblinInstance = ec.ID
		}
	}

	t.Run("a player cannot roll for someone else's combatant", func(t *testing.T) {
		f.emit(p, EventCombatRollInitiative, RollInitiativePayload{
			JoinCode: f.joinCode, EncounterID: enc.ID, InstanceID: goblinInstance,
		})
		assert.Equal(t, EventError, recv(t, p).Event)
	})

	t.Run("manual values need physical dice mode", func(t *testing.T) {
		v := 15
		f.emit(p, EventCombatRollInitiative, RollInitiativePayload{
			JoinCode: f.joinCode, EncounterID: enc.ID, InstanceID: elaraInstance, Value: &v,
		})
		assert.Equal(t, EventError, recv(t, p).Event)
	})

	t.Run("players roll their own combatant", func(t *testing.T) {
		f.roller.SetNextRoll(17)
		f.emit(p, EventCombatRollInitiative, RollInitiativePayload{
			JoinCode: f.joinCode, EncounterID: enc.ID, InstanceID: elaraInstance,
		})
		roll := decodeInto[session.DiceRoll](t, recv(t, dm))
		assert.Equal(t, 19, roll.Total) // 17 + 2
		drainAll(dm, p)
	})

	t.Run("rollAll covers the rest and combat starts", func(t *testing.T) {
		f.roller.SetNextRoll(3)
		f.emit(dm, EventCombatRollAll, EncounterPayload{JoinCode: f.joinCode, EncounterID: enc.ID})
		drainAll(dm, p)

		f.emit(dm, EventCombatStart, EncounterPayload{JoinCode: f.joinCode, EncounterID: enc.ID})
		env := recv(t, dm)
		require.Equal(t, EventCombatStarted, env.Event)
		started := decodeInto[combat.Encounter](t, env)
		assert.Equal(t, combat.EncounterStatusActive, started.Status)
		assert.Equal(t, "Elara", started.CurrentInstance().DisplayName)

		// Elara is up first, so her connection gets the nudge.
		require.Equal(t, EventCombatStarted, recv(t, p).Event)
		nudge := recv(t, p)
		require.Equal(t, EventNotifyYourTurn, nudge.Event)
		assert.Equal(t, "Elara", decodeInto[YourTurnPayload](t, nudge).CombatantName)
	})

	t.Run("turn change notifies the new holder only", func(t *testing.T) {
		f.emit(dm, EventCombatNextTurn, EncounterPayload{JoinCode: f.joinCode, EncounterID: enc.ID})
		assert.Equal(t, EventCombatTurnChanged, recv(t, dm).Event)
		assert.Equal(t, EventCombatTurnChanged, recv(t, p).Event)
		// The goblin has no bound connection; no nudge goes anywhere.
		assert.True(t, drained(p))
	})

	t.Run("reorder is DM-only", func(t *testing.T) {
		f.emit(p, EventCombatReorder, ReorderPayload{
			JoinCode: f.joinCode, EncounterID: enc.ID, InstanceID: elaraInstance, NewIndex: 1,
		})
		assert.Equal(t, EventError, recv(t, p).Event)

		f.emit(dm, EventCombatReorder, ReorderPayload{
			JoinCode: f.joinCode, EncounterID: enc.ID, InstanceID: elaraInstance, NewIndex: 1,
		})
		assert.Equal(t, EventEncounterUpdated, recv(t, dm).Event)
		drainAll(dm, p)
	})

	t.Run("combat ends", func(t *testing.T) {
		f.emit(dm, EventCombatEnd, EncounterPayload{JoinCode: f.joinCode, EncounterID: enc.ID})
		assert.Equal(t, EventCombatEnded, recv(t, dm).Event)
		assert.Equal(t, EventCombatEnded, recv(t, p).Event)
	})
}

func (f *handlerFixture) templateID(name string) string {
	st, err := f.provider.StateService.GetState(context.Background(), f.joinCode)
	require.NoError(f.t, err)
	for _, c := range st.Combatants {
		if c.Name == name {
			return c.ID
		}
	}
	f.t.Fatalf("no template named %s", name)
	return ""
}

func TestHandler_RegenerateCode(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	f.emit(dm, EventSessionRegenerateCode, DMActionPayload{JoinCode: f.joinCode, DMToken: f.dmToken})

	// The participant is told and dropped.
	env := recv(t, p)
	assert.Equal(t, EventError, env.Event)

	// The DM migrates and learns the new code.
	env = recv(t, dm)
	require.Equal(t, EventSessionCodeRegenerated, env.Event)
	newCode := decodeInto[CodeRegeneratedPayload](t, env).NewJoinCode
	assert.NotEqual(t, f.joinCode, newCode)
	assert.True(t, f.hub.InRoom(dm.ID, SessionRoom(newCode)))
	assert.True(t, f.hub.InRoom(dm.ID, DMRoom(newCode)))
	assert.False(t, f.hub.InRoom(dm.ID, SessionRoom(f.joinCode)))

	// The old code no longer resolves.
	c2 := addTestClient(f.hub, "c2")
	f.emit(c2, EventSessionJoin, JoinPayload{JoinCode: f.joinCode})
	assert.Equal(t, EventError, recv(t, c2).Event)
}

func TestHandler_SettingsRoundTrip(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")

	password := "hunter2"
	physical := true
	f.emit(dm, EventSessionUpdateSettings, UpdateSettingsPayload{
		JoinCode:     f.joinCode,
		DMToken:      f.dmToken,
		Password:     &password,
		PhysicalDice: &physical,
	})

	env := recv(t, dm)
	require.Equal(t, EventSessionDMSettings, env.Event)
	settings := decodeInto[DMSettingsPayload](t, env)
	assert.Equal(t, "hunter2", settings.Password)
	assert.True(t, settings.PhysicalDice)
	assert.Equal(t, EventSessionSettingsChanged, recv(t, dm).Event)

	f.emit(dm, EventSessionValidatePassword, ValidatePasswordPayload{JoinCode: f.joinCode, Password: "hunter2"})
	env = recv(t, dm)
	require.Equal(t, EventSessionPasswordValid, env.Event)
	assert.True(t, decodeInto[PasswordValidPayload](t, env).Valid)

	f.emit(dm, EventSessionGetSettings, DMActionPayload{JoinCode: f.joinCode, DMToken: "wrong"})
	assert.Equal(t, EventError, recv(t, dm).Event)
}

func TestHandler_DisconnectUnbindsPlayers(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")
	p := f.connectPlayer("p")

	f.emit(p, EventPlayerRegister, PlayerRegisterPayload{
		JoinCode: f.joinCode, Name: "Elara", MaxHP: 18,
	})
	drainAll(dm, p)

	f.handler.HandleDisconnect(p)

	// The DM hears the template lose its connection.
	env := recv(t, dm)
	require.Equal(t, EventCombatantUpdated, env.Event)
	tmpl := decodeInto[session.Combatant](t, env)
	assert.Empty(t, tmpl.PlayerConnID)

	counts := decodeInto[ViewerCountPayload](t, recv(t, dm))
	assert.Equal(t, 0, counts.Players)
	assert.Equal(t, 0, counts.Spectators)
}

func TestHandler_SerializesPerSession(t *testing.T) {
	f := newHandlerFixture(t)
	dm := f.connectDM("dm")

	// Hammer the same session from many goroutines; every add must land.
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.emit(dm, EventCombatantAdd, AddCombatantPayload{
				JoinCode: f.joinCode,
				Name:     "Goblin",
				Type:     shared.CombatantTypeMonster,
				MaxHP:    7,
			})
		}(i)
	}
	wg.Wait()

	st, err := f.provider.StateService.GetState(context.Background(), f.joinCode)
	require.NoError(t, err)
	assert.Len(t, st.Combatants, n)
}
