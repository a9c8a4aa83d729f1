package shared

// CombatantType is the closed set of combatant template kinds.
type CombatantType string

const (
	CombatantTypeMonster         CombatantType = "MONSTER"
	CombatantTypePlayerCharacter CombatantType = "PLAYER_CHARACTER"
	CombatantTypeNPC             CombatantType = "NPC"
)

// IsValid reports whether t is one of the known combatant types.
func (t CombatantType) IsValid() bool {
	switch t {
	case CombatantTypeMonster, CombatantTypePlayerCharacter, CombatantTypeNPC:
		return true
	}
	return false
}

// IsSingleton reports whether a template of this type may appear at most
// once per encounter. Monsters can be instantiated any number of times;
// player characters and NPCs join an encounter once.
func (t CombatantType) IsSingleton() bool {
	return t == CombatantTypePlayerCharacter || t == CombatantTypeNPC
}
