package session

import (
	"time"
)

// Session is a combat-tracking workspace. Players find it by join code;
// the DM proves ownership with the token.
type Session struct {
	ID           string    `json:"id"`
	JoinCode     string    `json:"join_code"`
	DMToken      string    `json:"dm_token"`
	IsLocked     bool      `json:"is_locked"`
	Password     string    `json:"password,omitempty"`
	PhysicalDice bool      `json:"physical_dice"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsDM reports whether the presented token authorizes DM actions.
func (s *Session) IsDM(token string) bool {
	return token != "" && token == s.DMToken
}

// CheckPassword reports whether the given password grants access.
// Sessions without a password are open.
func (s *Session) CheckPassword(password string) bool {
	return s.Password == "" || s.Password == password
}
