package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log"
	"strings"
	"sync"

	"github.com/rollinit/rollinit/internal/domain/combat"
	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/errors"
	combatantsvc "github.com/rollinit/rollinit/internal/services/combatant"
	dicesvc "github.com/rollinit/rollinit/internal/services/dice"
	encountersvc "github.com/rollinit/rollinit/internal/services/encounter"
	sessionsvc "github.com/rollinit/rollinit/internal/services/session"
	statesvc "github.com/rollinit/rollinit/internal/services/state"
	"github.com/rollinit/rollinit/internal/view"
)

// Handler dispatches client events to the services and fans results
// back out through the hub. Events touching the same session are
// serialized on a per-session mutex so concurrent clients cannot
// interleave read-modify-write cycles on shared state.
type Handler struct {
	hub        *Hub
	sessions   sessionsvc.Service
	combatants combatantsvc.Service
	encounters encountersvc.Service
	dice       dicesvc.Service
	state      statesvc.Service

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// HandlerConfig holds configuration for the handler
type HandlerConfig struct {
	Hub              *Hub
	SessionService   sessionsvc.Service
	CombatantService combatantsvc.Service
	EncounterService encountersvc.Service
	DiceService      dicesvc.Service
	StateService     statesvc.Service
}

// NewHandler creates a new event handler and registers it as the
// hub's message sink.
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg.Hub == nil {
		panic("hub is required")
	}
	if cfg.SessionService == nil {
		panic("session service is required")
	}
	if cfg.CombatantService == nil {
		panic("combatant service is required")
	}
	if cfg.EncounterService == nil {
		panic("encounter service is required")
	}
	if cfg.DiceService == nil {
		panic("dice service is required")
	}
	if cfg.StateService == nil {
		panic("state service is required")
	}

	h := &Handler{
		hub:        cfg.Hub,
		sessions:   cfg.SessionService,
		combatants: cfg.CombatantService,
		encounters: cfg.EncounterService,
		dice:       cfg.DiceService,
		state:      cfg.StateService,
		locks:      make(map[string]*sync.Mutex),
	}
	cfg.Hub.SetSink(h)
	return h
}

func (h *Handler) sessionLock(joinCode string) *sync.Mutex {
	key := strings.ToUpper(joinCode)
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[key]
	if !ok {
		l = &sync.Mutex{}
		h.locks[key] = l
	}
	return l
}

// HandleMessage implements MessageSink.
func (h *Handler) HandleMessage(c *Client, env *Envelope) {
	ctx := context.Background()

	var err error
	switch env.Event {
	case EventSessionJoin:
		err = decode(env.Data, func(p *JoinPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleJoin(ctx, c, p) })
		})
	case EventSessionLeave:
		err = decode(env.Data, func(p *LeavePayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleLeave(ctx, c, p) })
		})
	case EventCombatantAdd:
		err = decode(env.Data, func(p *AddCombatantPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleCombatantAdd(ctx, c, p) })
		})
	case EventCombatantUpdate:
		err = decode(env.Data, func(p *UpdateCombatantPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleCombatantUpdate(ctx, c, p) })
		})
	case EventCombatantRemove:
		err = decode(env.Data, func(p *RemoveCombatantPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleCombatantRemove(ctx, c, p) })
		})
	case EventEncounterCreate:
		err = decode(env.Data, func(p *CreateEncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleEncounterCreate(ctx, c, p) })
		})
	case EventEncounterSelect:
		err = decode(env.Data, func(p *SelectEncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleEncounterSelect(ctx, c, p) })
		})
	case EventEncounterAddCombatant:
		err = decode(env.Data, func(p *AddToEncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleEncounterAddCombatant(ctx, c, p) })
		})
	case EventCombatStartRolling:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleStartRolling(ctx, c, p) })
		})
	case EventCombatRollInitiative:
		err = decode(env.Data, func(p *RollInitiativePayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleRollInitiative(ctx, c, p) })
		})
	case EventCombatRollAll:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleRollAll(ctx, c, p) })
		})
	case EventCombatStart:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleStartCombat(ctx, c, p) })
		})
	case EventCombatNextTurn:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleStepTurn(ctx, c, p, h.encounters.NextTurn) })
		})
	case EventCombatPrevTurn:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleStepTurn(ctx, c, p, h.encounters.PrevTurn) })
		})
	case EventCombatToggleActive:
		err = decode(env.Data, func(p *InstancePayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleToggleActive(ctx, c, p) })
		})
	case EventCombatEnd:
		err = decode(env.Data, func(p *EncounterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleEndCombat(ctx, c, p) })
		})
	case EventCombatReorder:
		err = decode(env.Data, func(p *ReorderPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleReorder(ctx, c, p) })
		})
	case EventInstanceUpdate:
		err = decode(env.Data, func(p *UpdateInstancePayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleInstanceUpdate(ctx, c, p) })
		})
	case EventDiceRoll:
		err = decode(env.Data, func(p *DiceRollPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleDiceRoll(ctx, c, p) })
		})
	case EventSessionToggleLock:
		err = decode(env.Data, func(p *DMActionPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleToggleLock(ctx, c, p) })
		})
	case EventSessionRegenerateCode:
		err = decode(env.Data, func(p *DMActionPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleRegenerateCode(ctx, c, p) })
		})
	case EventSessionGetSettings:
		err = decode(env.Data, func(p *DMActionPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleGetSettings(ctx, c, p) })
		})
	case EventSessionUpdateSettings:
		err = decode(env.Data, func(p *UpdateSettingsPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleUpdateSettings(ctx, c, p) })
		})
	case EventSessionValidatePassword:
		err = decode(env.Data, func(p *ValidatePasswordPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handleValidatePassword(ctx, c, p) })
		})
	case EventPlayerRegister:
		err = decode(env.Data, func(p *PlayerRegisterPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handlePlayerRegister(ctx, c, p) })
		})
	case EventPlayerReconnect:
		err = decode(env.Data, func(p *PlayerReconnectPayload) error {
			return h.withSession(p.JoinCode, func() error { return h.handlePlayerReconnect(ctx, c, p) })
		})
	default:
		err = errors.Validationf("unknown event %q", env.Event)
	}

	if err != nil {
		h.sendError(c, env.Event, err)
	}
}

// HandleDisconnect implements MessageSink. Bindings held by the
// connection are released and the DM is told its players went dark.
func (h *Handler) HandleDisconnect(c *Client) {
	ctx := context.Background()
	rooms := h.hub.RoomsOf(c.ID)
	combatantIDs := h.hub.UnbindConn(c.ID)
	h.hub.Unregister(c.ID)

	for _, id := range combatantIDs {
		tmpl, err := h.combatants.UnbindConnection(ctx, id)
		if err != nil {
			log.Printf("[ws] unbind combatant %s: %v", id, err)
			continue
		}
		joinCode := h.joinCodeForSession(ctx, tmpl.SessionID)
		if joinCode == "" {
			continue
		}
		h.hub.ToRoom(DMRoom(joinCode), EventCombatantUpdated, tmpl)
		if !tmpl.IsHidden {
			h.hub.ToRoomExcept(SessionRoom(joinCode), DMRoom(joinCode), EventCombatantUpdated, tmpl)
		}
	}

	for _, room := range rooms {
		if code, ok := strings.CutPrefix(room, "session:"); ok {
			h.broadcastViewerCount(code)
		}
	}
}

func decode[T any](raw json.RawMessage, fn func(*T) error) error {
	var p T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return errors.Validation("malformed payload")
		}
	}
	return fn(&p)
}

func (h *Handler) withSession(joinCode string, fn func() error) error {
	l := h.sessionLock(joinCode)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (h *Handler) sendError(c *Client, event string, err error) {
	msg := "something went wrong"
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		msg = appErr.Message
	}
	log.Printf("[ws] %s from conn %s failed: %v", event, c.ID, err)
	h.hub.ToConn(c.ID, EventError, ErrorPayload{Message: msg})
}

func (h *Handler) isDM(c *Client, joinCode string) bool {
	return h.hub.InRoom(c.ID, DMRoom(joinCode))
}

func (h *Handler) joinCodeForSession(ctx context.Context, sessionID string) string {
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[ws] resolve session %s: %v", sessionID, err)
		return ""
	}
	return sess.JoinCode
}

// Broadcast helpers. Mutations are emitted twice: raw to the DM
// room, filtered to everyone else in the session room.

func (h *Handler) broadcastCombatant(joinCode, event string, tmpl *session.Combatant) {
	h.hub.ToRoom(DMRoom(joinCode), event, tmpl)
	if !tmpl.IsHidden {
		h.hub.ToRoomExcept(SessionRoom(joinCode), DMRoom(joinCode), event, tmpl)
	}
}

func (h *Handler) broadcastEncounter(joinCode, event string, enc *combat.Encounter) {
	h.hub.ToRoom(DMRoom(joinCode), event, enc)
	h.hub.ToRoomExcept(SessionRoom(joinCode), DMRoom(joinCode), event, view.FilterEncounter(enc))
}

func (h *Handler) broadcastRoll(joinCode string, roll *session.DiceRoll) {
	h.hub.ToRoom(DMRoom(joinCode), EventDiceResult, roll)
	if !roll.IsPrivate {
		h.hub.ToRoomExcept(SessionRoom(joinCode), DMRoom(joinCode), EventDiceResult, roll)
	}
}

func (h *Handler) broadcastViewerCount(joinCode string) {
	players, spectators := h.hub.ViewerCount(joinCode)
	h.hub.ToRoom(SessionRoom(joinCode), EventSessionViewerCount, ViewerCountPayload{
		Players:    players,
		Spectators: spectators,
	})
}

func (h *Handler) notifyCurrentTurn(enc *combat.Encounter) {
	cur := enc.CurrentInstance()
	if cur == nil {
		return
	}
	connID, ok := h.hub.ConnForCombatant(cur.CombatantID)
	if !ok {
		return
	}
	h.hub.ToConn(connID, EventNotifyYourTurn, YourTurnPayload{CombatantName: cur.DisplayName})
}

// Session membership

func (h *Handler) handleJoin(ctx context.Context, c *Client, p *JoinPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	if sess.IsLocked && !p.IsDM {
		return errors.PermissionDenied("session is locked, the DM has restricted new joins")
	}

	h.hub.Join(c.ID, SessionRoom(sess.JoinCode))
	if p.IsDM {
		h.hub.Join(c.ID, DMRoom(sess.JoinCode))
	}

	st, err := h.state.GetState(ctx, sess.JoinCode)
	if err != nil {
		return err
	}
	if !p.IsDM {
		st = view.FilterState(st)
	}
	h.hub.ToConn(c.ID, EventSessionState, st)
	h.broadcastViewerCount(sess.JoinCode)
	return nil
}

func (h *Handler) handleLeave(_ context.Context, c *Client, p *LeavePayload) error {
	h.hub.Leave(c.ID, SessionRoom(p.JoinCode))
	h.hub.Leave(c.ID, DMRoom(p.JoinCode))
	h.broadcastViewerCount(p.JoinCode)
	return nil
}

// Combatant roster

func (h *Handler) handleCombatantAdd(ctx context.Context, _ *Client, p *AddCombatantPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	tmpl, err := h.combatants.Add(ctx, &combatantsvc.AddCombatantInput{
		SessionID:       sess.ID,
		Name:            p.Name,
		Type:            p.Type,
		InitiativeBonus: p.InitiativeBonus,
		MaxHP:           p.MaxHP,
		ArmorClass:      p.ArmorClass,
		IsHidden:        p.IsHidden,
	})
	if err != nil {
		return err
	}
	h.broadcastCombatant(sess.JoinCode, EventCombatantAdded, tmpl)
	return nil
}

func (h *Handler) handleCombatantUpdate(ctx context.Context, _ *Client, p *UpdateCombatantPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	tmpl, err := h.combatants.Update(ctx, p.CombatantID, &session.CombatantUpdate{
		Name:            p.Updates.Name,
		InitiativeBonus: p.Updates.InitiativeBonus,
		MaxHP:           p.Updates.MaxHP,
		CurrentHP:       p.Updates.CurrentHP,
		ArmorClass:      p.Updates.ArmorClass,
		Conditions:      p.Updates.Conditions,
		IsHidden:        p.Updates.IsHidden,
		AutoJoin:        p.Updates.AutoJoin,
	})
	if err != nil {
		return err
	}
	h.broadcastCombatant(sess.JoinCode, EventCombatantUpdated, tmpl)
	return nil
}

func (h *Handler) handleCombatantRemove(ctx context.Context, _ *Client, p *RemoveCombatantPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	res, err := h.combatants.Remove(ctx, p.CombatantID)
	if err != nil {
		return err
	}

	// Removal is announced to everyone, hidden or not; clients only
	// hold the ID of things they could already see.
	payload := RemoveCombatantPayload{JoinCode: sess.JoinCode, CombatantID: p.CombatantID}
	h.hub.ToRoom(SessionRoom(sess.JoinCode), EventCombatantRemoved, payload)

	for _, enc := range res.Encounters {
		h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	}

	if connID, ok := h.hub.ConnForCombatant(p.CombatantID); ok {
		h.hub.UnbindCombatant(p.CombatantID)
		h.hub.ToConn(connID, EventPlayerRemoved, payload)
		h.broadcastViewerCount(sess.JoinCode)
	}
	return nil
}

// Encounters and combat flow

func (h *Handler) handleEncounterCreate(ctx context.Context, _ *Client, p *CreateEncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	monsters := make([]encountersvc.MonsterEntry, 0, len(p.Monsters))
	for _, m := range p.Monsters {
		monsters = append(monsters, encountersvc.MonsterEntry{
			CombatantID: m.CombatantID,
			Count:       m.Count,
			IsHidden:    m.IsHidden,
		})
	}
	enc, err := h.encounters.Create(ctx, &encountersvc.CreateEncounterInput{
		SessionID:    sess.ID,
		Name:         p.Name,
		Monsters:     monsters,
		ExcludePCIDs: p.ExcludePCIDs,
	})
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterCreated, enc)
	return nil
}

func (h *Handler) handleEncounterSelect(ctx context.Context, _ *Client, p *SelectEncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	st, err := h.state.GetState(ctx, sess.JoinCode)
	if err != nil {
		return err
	}
	h.hub.ToRoom(DMRoom(sess.JoinCode), EventSessionState, st)
	h.hub.ToRoomExcept(SessionRoom(sess.JoinCode), DMRoom(sess.JoinCode), EventSessionState, view.FilterState(st))
	return nil
}

func (h *Handler) handleEncounterAddCombatant(ctx context.Context, _ *Client, p *AddToEncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, err := h.encounters.AddCombatant(ctx, p.EncounterID, p.CombatantID)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	return nil
}

func (h *Handler) handleStartRolling(ctx context.Context, _ *Client, p *EncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, err := h.encounters.StartRolling(ctx, p.EncounterID)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	return nil
}

func (h *Handler) handleRollInitiative(ctx context.Context, c *Client, p *RollInitiativePayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	isDM := h.isDM(c, sess.JoinCode)
	if !isDM {
		enc, err := h.encounters.Get(ctx, p.EncounterID)
		if err != nil {
			return err
		}
		instance := enc.Instance(p.InstanceID)
		if instance == nil {
			return errors.NotFound("combatant is not in this encounter")
		}
		connID, bound := h.hub.ConnForCombatant(instance.CombatantID)
		if !bound || connID != c.ID {
			return errors.PermissionDenied("you can only roll initiative for your own combatant")
		}
		if p.Value != nil {
			if !sess.PhysicalDice {
				return errors.PermissionDenied("manual rolls are not enabled for this session")
			}
			if *p.Value < 1 || *p.Value > 20 {
				return errors.Validation("initiative roll must be between 1 and 20")
			}
		}
	}

	res, err := h.encounters.RollInitiative(ctx, &encountersvc.RollInitiativeInput{
		EncounterID: p.EncounterID,
		InstanceID:  p.InstanceID,
		Value:       p.Value,
	})
	if err != nil {
		return err
	}
	h.broadcastRoll(sess.JoinCode, res.Roll)
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, res.Encounter)
	return nil
}

func (h *Handler) handleRollAll(ctx context.Context, _ *Client, p *EncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, rolls, err := h.encounters.RollAll(ctx, p.EncounterID)
	if err != nil {
		return err
	}
	for _, roll := range rolls {
		h.broadcastRoll(sess.JoinCode, roll)
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	return nil
}

func (h *Handler) handleStartCombat(ctx context.Context, _ *Client, p *EncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, err := h.encounters.StartCombat(ctx, p.EncounterID)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventCombatStarted, enc)
	h.notifyCurrentTurn(enc)
	return nil
}

func (h *Handler) handleStepTurn(ctx context.Context, _ *Client, p *EncounterPayload, step func(context.Context, string) (*combat.Encounter, bool, error)) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, moved, err := step(ctx, p.EncounterID)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}
	h.broadcastEncounter(sess.JoinCode, EventCombatTurnChanged, enc)
	h.notifyCurrentTurn(enc)
	return nil
}

func (h *Handler) handleToggleActive(ctx context.Context, _ *Client, p *InstancePayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, err := h.encounters.ToggleActive(ctx, p.EncounterID, p.InstanceID)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	return nil
}

func (h *Handler) handleEndCombat(ctx context.Context, _ *Client, p *EncounterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	enc, err := h.encounters.End(ctx, p.EncounterID)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventCombatEnded, enc)
	return nil
}

func (h *Handler) handleReorder(ctx context.Context, c *Client, p *ReorderPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	if !h.isDM(c, sess.JoinCode) {
		return errors.PermissionDenied("only the DM can reorder the turn queue")
	}
	enc, err := h.encounters.Reorder(ctx, p.EncounterID, p.InstanceID, p.NewIndex)
	if err != nil {
		return err
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, enc)
	return nil
}

func (h *Handler) handleInstanceUpdate(ctx context.Context, _ *Client, p *UpdateInstancePayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	res, err := h.encounters.UpdateInstance(ctx, &encountersvc.UpdateInstanceInput{
		EncounterID: p.EncounterID,
		InstanceID:  p.InstanceID,
		Update: encountersvc.InstanceUpdate{
			CurrentHP:  p.Updates.CurrentHP,
			Conditions: p.Updates.Conditions,
			IsHidden:   p.Updates.IsHidden,
		},
	})
	if err != nil {
		return err
	}
	if res.SyncedTemplate != nil {
		h.broadcastCombatant(sess.JoinCode, EventCombatantUpdated, res.SyncedTemplate)
	}
	h.broadcastEncounter(sess.JoinCode, EventEncounterUpdated, res.Encounter)
	return nil
}

// Dice

func (h *Handler) handleDiceRoll(ctx context.Context, _ *Client, p *DiceRollPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	roll, err := h.dice.Roll(ctx, &dicesvc.RollInput{
		SessionID:  sess.ID,
		Notation:   p.Notation,
		RollerName: p.RollerName,
		IsPrivate:  p.IsPrivate,
	})
	if err != nil {
		return err
	}
	h.broadcastRoll(sess.JoinCode, roll)
	return nil
}

// DM session management

func (h *Handler) handleToggleLock(ctx context.Context, _ *Client, p *DMActionPayload) error {
	sess, err := h.sessions.ToggleLock(ctx, p.JoinCode, p.DMToken)
	if err != nil {
		return err
	}
	h.hub.ToRoom(SessionRoom(sess.JoinCode), EventSessionLockChanged, LockChangedPayload{IsLocked: sess.IsLocked})
	return nil
}

func (h *Handler) handleRegenerateCode(ctx context.Context, _ *Client, p *DMActionPayload) error {
	sess, oldCode, err := h.sessions.RegenerateCode(ctx, p.JoinCode, p.DMToken)
	if err != nil {
		return err
	}
	newCode := sess.JoinCode

	oldSession := SessionRoom(oldCode)
	oldDM := DMRoom(oldCode)

	// DM connections migrate to the new rooms; everyone else is
	// kicked and must rejoin with the new code.
	for _, connID := range h.hub.RoomMemberIDs(oldSession) {
		if h.hub.InRoom(connID, oldDM) {
			h.hub.Leave(connID, oldSession)
			h.hub.Leave(connID, oldDM)
			h.hub.Join(connID, SessionRoom(newCode))
			h.hub.Join(connID, DMRoom(newCode))
			continue
		}
		h.hub.Kick(connID, "the session code has changed, please rejoin with the new code")
	}

	h.hub.ToRoom(DMRoom(newCode), EventSessionCodeRegenerated, CodeRegeneratedPayload{NewJoinCode: newCode})
	h.broadcastViewerCount(newCode)
	return nil
}

func (h *Handler) handleGetSettings(ctx context.Context, c *Client, p *DMActionPayload) error {
	sess, err := h.sessions.Authorize(ctx, p.JoinCode, p.DMToken)
	if err != nil {
		return err
	}
	h.hub.ToConn(c.ID, EventSessionDMSettings, DMSettingsPayload{
		Password:     sess.Password,
		PhysicalDice: sess.PhysicalDice,
		IsLocked:     sess.IsLocked,
	})
	return nil
}

func (h *Handler) handleUpdateSettings(ctx context.Context, c *Client, p *UpdateSettingsPayload) error {
	sess, err := h.sessions.UpdateSettings(ctx, p.JoinCode, p.DMToken, &sessionsvc.UpdateSettingsInput{
		Password:     p.Password,
		PhysicalDice: p.PhysicalDice,
	})
	if err != nil {
		return err
	}
	h.hub.ToConn(c.ID, EventSessionDMSettings, DMSettingsPayload{
		Password:     sess.Password,
		PhysicalDice: sess.PhysicalDice,
		IsLocked:     sess.IsLocked,
	})
	h.hub.ToRoom(SessionRoom(sess.JoinCode), EventSessionSettingsChanged, SettingsChangedPayload{
		PhysicalDice: sess.PhysicalDice,
	})
	return nil
}

func (h *Handler) handleValidatePassword(ctx context.Context, c *Client, p *ValidatePasswordPayload) error {
	valid, err := h.sessions.ValidatePassword(ctx, p.JoinCode, p.Password)
	if err != nil {
		return err
	}
	h.hub.ToConn(c.ID, EventSessionPasswordValid, PasswordValidPayload{Valid: valid})
	return nil
}

// Player lifecycle

func (h *Handler) handlePlayerRegister(ctx context.Context, c *Client, p *PlayerRegisterPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	if sess.IsLocked {
		return errors.PermissionDenied("session is locked, the DM has restricted new joins")
	}
	res, err := h.combatants.RegisterPlayer(ctx, &combatantsvc.RegisterPlayerInput{
		SessionID:       sess.ID,
		Name:            p.Name,
		MaxHP:           p.MaxHP,
		InitiativeBonus: p.InitiativeBonus,
		ArmorClass:      p.ArmorClass,
		ConnID:          c.ID,
	})
	if err != nil {
		return err
	}
	h.hub.BindCombatant(res.Combatant.ID, c.ID)

	event := EventCombatantUpdated
	if res.Created {
		event = EventCombatantAdded
	}
	h.broadcastCombatant(sess.JoinCode, event, res.Combatant)
	h.hub.ToConn(c.ID, EventPlayerRegistered, PlayerRegisteredPayload{
		CombatantID: res.Combatant.ID,
		Name:        res.Combatant.Name,
	})
	h.broadcastViewerCount(sess.JoinCode)
	return nil
}

func (h *Handler) handlePlayerReconnect(ctx context.Context, c *Client, p *PlayerReconnectPayload) error {
	sess, err := h.sessions.GetByJoinCode(ctx, p.JoinCode)
	if err != nil {
		return err
	}
	tmpl, err := h.combatants.Reconnect(ctx, sess.ID, p.CombatantID, c.ID)
	if err != nil {
		return err
	}
	h.hub.BindCombatant(tmpl.ID, c.ID)
	h.broadcastCombatant(sess.JoinCode, EventCombatantUpdated, tmpl)
	h.hub.ToConn(c.ID, EventPlayerRegistered, PlayerRegisteredPayload{
		CombatantID: tmpl.ID,
		Name:        tmpl.Name,
	})
	h.broadcastViewerCount(sess.JoinCode)
	return nil
}
