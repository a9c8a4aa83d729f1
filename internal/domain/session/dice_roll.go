package session

import "time"

// DiceRoll is an immutable log entry. Private rolls are visible to the DM
// only.
type DiceRoll struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Notation   string    `json:"notation"`
	Rolls      []int     `json:"rolls"`
	Modifier   int       `json:"modifier"`
	Total      int       `json:"total"`
	RollerName string    `json:"roller_name"`
	IsPrivate  bool      `json:"is_private"`
	CreatedAt  time.Time `json:"created_at"`
}
