package session

import (
	"time"

	"github.com/rollinit/rollinit/internal/domain/shared"
)

// Combatant is a reusable actor template owned by one session. Encounters
// instantiate it; combat never mutates the template except for the one-way
// PC hit-point sync-back.
type Combatant struct {
	ID              string               `json:"id"`
	SessionID       string               `json:"session_id"`
	Name            string               `json:"name"`
	Type            shared.CombatantType `json:"type"`
	InitiativeBonus int                  `json:"initiative_bonus"`
	MaxHP           int                  `json:"max_hp"`
	CurrentHP       int                  `json:"current_hp"`
	ArmorClass      int                  `json:"armor_class"`
	IsHidden        bool                 `json:"is_hidden"`
	AutoJoin        bool                 `json:"auto_join"`
	Conditions      []string             `json:"conditions"`
	// PlayerConnID binds a live connection to this combatant so turn
	// notifications can reach whoever is playing it. Empty when nobody is.
	PlayerConnID string    `json:"player_conn_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CombatantUpdate carries a partial template edit. Nil fields are left alone.
type CombatantUpdate struct {
	Name            *string
	InitiativeBonus *int
	MaxHP           *int
	CurrentHP       *int
	ArmorClass      *int
	Conditions      *[]string
	IsHidden        *bool
	AutoJoin        *bool
	PlayerConnID    *string
}

// Apply merges the non-nil fields of u into c.
func (c *Combatant) Apply(u *CombatantUpdate) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.InitiativeBonus != nil {
		c.InitiativeBonus = *u.InitiativeBonus
	}
	if u.MaxHP != nil {
		c.MaxHP = *u.MaxHP
	}
	if u.CurrentHP != nil {
		c.CurrentHP = *u.CurrentHP
	}
	if u.ArmorClass != nil {
		c.ArmorClass = *u.ArmorClass
	}
	if u.Conditions != nil {
		c.Conditions = append([]string{}, (*u.Conditions)...)
	}
	if u.IsHidden != nil {
		c.IsHidden = *u.IsHidden
	}
	if u.AutoJoin != nil {
		c.AutoJoin = *u.AutoJoin
	}
	if u.PlayerConnID != nil {
		c.PlayerConnID = *u.PlayerConnID
	}
}
