package ws

import (
	"encoding/json"

	"github.com/rollinit/rollinit/internal/domain/shared"
)

// Client -> server events
const (
	EventSessionJoin             = "session:join"
	EventSessionLeave            = "session:leave"
	EventCombatantAdd            = "combatant:add"
	EventCombatantUpdate         = "combatant:update"
	EventCombatantRemove         = "combatant:remove"
	EventEncounterCreate         = "encounter:create"
	EventEncounterSelect         = "encounter:select"
	EventEncounterAddCombatant   = "encounter:addCombatant"
	EventCombatStartRolling      = "combat:startRolling"
	EventCombatRollInitiative    = "combat:rollInitiative"
	EventCombatRollAll           = "combat:rollAll"
	EventCombatStart             = "combat:start"
	EventCombatNextTurn          = "combat:nextTurn"
	EventCombatPrevTurn          = "combat:prevTurn"
	EventCombatToggleActive      = "combat:toggleActive"
	EventCombatEnd               = "combat:end"
	EventCombatReorder           = "combat:reorder"
	EventInstanceUpdate          = "instance:update"
	EventDiceRoll                = "dice:roll"
	EventSessionToggleLock       = "session:toggleLock"
	EventSessionRegenerateCode   = "session:regenerateCode"
	EventSessionGetSettings      = "session:getSettings"
	EventSessionUpdateSettings   = "session:updateSettings"
	EventSessionValidatePassword = "session:validatePassword"
	EventPlayerRegister          = "player:register"
	EventPlayerReconnect         = "player:reconnect"
)

// Server -> client events
const (
	EventSessionState           = "session:state"
	EventSessionLockChanged     = "session:lockChanged"
	EventSessionCodeRegenerated = "session:codeRegenerated"
	EventSessionViewerCount     = "session:viewerCount"
	EventSessionSettingsChanged = "session:settingsChanged"
	EventSessionDMSettings      = "session:dmSettings"
	EventSessionPasswordValid   = "session:passwordValid"
	EventCombatantAdded         = "combatant:added"
	EventCombatantUpdated       = "combatant:updated"
	EventCombatantRemoved       = "combatant:removed"
	EventEncounterCreated       = "encounter:created"
	EventEncounterUpdated       = "encounter:updated"
	EventCombatStarted          = "combat:started"
	EventCombatTurnChanged      = "combat:turnChanged"
	EventCombatEnded            = "combat:ended"
	EventDiceResult             = "dice:result"
	EventNotifyYourTurn         = "notify:yourTurn"
	EventPlayerRegistered       = "player:registered"
	EventPlayerRemoved          = "player:removed"
	EventError                  = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type JoinPayload struct {
	JoinCode string `json:"join_code"`
	IsDM     bool   `json:"is_dm,omitempty"`
}

type LeavePayload struct {
	JoinCode string `json:"join_code"`
}

type AddCombatantPayload struct {
	JoinCode        string               `json:"join_code"`
	Name            string               `json:"name"`
	Type            shared.CombatantType `json:"type"`
	InitiativeBonus int                  `json:"initiative_bonus"`
	MaxHP           int                  `json:"max_hp"`
	ArmorClass      int                  `json:"armor_class"`
	IsHidden        bool                 `json:"is_hidden"`
}

// CombatantUpdates mirrors the editable template fields; nil means
// unchanged.
type CombatantUpdates struct {
	Name            *string   `json:"name,omitempty"`
	InitiativeBonus *int      `json:"initiative_bonus,omitempty"`
	MaxHP           *int      `json:"max_hp,omitempty"`
	CurrentHP       *int      `json:"current_hp,omitempty"`
	ArmorClass      *int      `json:"armor_class,omitempty"`
	Conditions      *[]string `json:"conditions,omitempty"`
	IsHidden        *bool     `json:"is_hidden,omitempty"`
	AutoJoin        *bool     `json:"auto_join,omitempty"`
}

type UpdateCombatantPayload struct {
	JoinCode    string           `json:"join_code"`
	CombatantID string           `json:"combatant_id"`
	Updates     CombatantUpdates `json:"updates"`
}

type RemoveCombatantPayload struct {
	JoinCode    string `json:"join_code"`
	CombatantID string `json:"combatant_id"`
}

type MonsterEntryPayload struct {
	CombatantID string `json:"combatant_id"`
	Count       int    `json:"count"`
	IsHidden    bool   `json:"is_hidden"`
}

type CreateEncounterPayload struct {
	JoinCode     string                `json:"join_code"`
	Name         string                `json:"name"`
	Monsters     []MonsterEntryPayload `json:"monsters"`
	ExcludePCIDs []string              `json:"exclude_pc_ids"`
}

type SelectEncounterPayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
}

type EncounterPayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
}

type InstancePayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
	InstanceID  string `json:"instance_id"`
}

type RollInitiativePayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
	InstanceID  string `json:"instance_id"`
	// Value carries a manually rolled d20 face in physical-dice mode.
	Value *int `json:"value,omitempty"`
}

type ReorderPayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
	InstanceID  string `json:"instance_id"`
	NewIndex    int    `json:"new_index"`
}

// InstanceUpdates mirrors the editable instance fields; nil means
// unchanged.
type InstanceUpdates struct {
	CurrentHP  *int      `json:"current_hp,omitempty"`
	Conditions *[]string `json:"conditions,omitempty"`
	IsHidden   *bool     `json:"is_hidden,omitempty"`
}

type UpdateInstancePayload struct {
	JoinCode    string          `json:"join_code"`
	EncounterID string          `json:"encounter_id"`
	InstanceID  string          `json:"instance_id"`
	Updates     InstanceUpdates `json:"updates"`
}

type AddToEncounterPayload struct {
	JoinCode    string `json:"join_code"`
	EncounterID string `json:"encounter_id"`
	CombatantID string `json:"combatant_id"`
}

type DiceRollPayload struct {
	JoinCode   string `json:"join_code"`
	Notation   string `json:"notation"`
	RollerName string `json:"roller_name"`
	IsPrivate  bool   `json:"is_private"`
}

type DMActionPayload struct {
	JoinCode string `json:"join_code"`
	DMToken  string `json:"dm_token"`
}

type UpdateSettingsPayload struct {
	JoinCode     string  `json:"join_code"`
	DMToken      string  `json:"dm_token"`
	Password     *string `json:"password,omitempty"`
	PhysicalDice *bool   `json:"physical_dice,omitempty"`
}

type ValidatePasswordPayload struct {
	JoinCode string `json:"join_code"`
	Password string `json:"password"`
}

type PlayerRegisterPayload struct {
	JoinCode        string `json:"join_code"`
	Name            string `json:"name"`
	MaxHP           int    `json:"max_hp"`
	InitiativeBonus int    `json:"initiative_bonus"`
	ArmorClass      int    `json:"armor_class"`
}

type PlayerReconnectPayload struct {
	JoinCode    string `json:"join_code"`
	CombatantID string `json:"combatant_id"`
}

// Outbound payloads

type ErrorPayload struct {
	Message string `json:"message"`
}

type LockChangedPayload struct {
	IsLocked bool `json:"is_locked"`
}

type CodeRegeneratedPayload struct {
	NewJoinCode string `json:"new_join_code"`
}

type ViewerCountPayload struct {
	Players    int `json:"players"`
	Spectators int `json:"spectators"`
}

type SettingsChangedPayload struct {
	PhysicalDice bool `json:"physical_dice"`
}

type DMSettingsPayload struct {
	Password     string `json:"password"`
	PhysicalDice bool   `json:"physical_dice"`
	IsLocked     bool   `json:"is_locked"`
}

type PasswordValidPayload struct {
	Valid bool `json:"valid"`
}

type PlayerRegisteredPayload struct {
	CombatantID string `json:"combatant_id"`
	Name        string `json:"name"`
}

type YourTurnPayload struct {
	CombatantName string `json:"combatant_name"`
}
