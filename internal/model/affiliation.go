package model

import (
	"strings"
	"time"
)

// AffiliationRole is the canonical role vocabulary for affiliations.
type AffiliationRole string

// Affiliation role constants.
const (
	RoleChair            AffiliationRole = "CHAIR"
	RoleViceChair        AffiliationRole = "VICE_CHAIR"
	RoleLeader           AffiliationRole = "LEADER"
	RoleSecretaryGeneral AffiliationRole = "SECRETARY_GENERAL"
	RoleMember           AffiliationRole = "MEMBER"
	RoleSpeaker          AffiliationRole = "SPEAKER"
)

// rawRoles maps raw extracted role strings to the canonical vocabulary.
var rawRoles = map[string]AffiliationRole{
	"議長":   RoleChair,
	"委員長":  RoleChair,
	"会長":   RoleChair,
	"chair": RoleChair,
	"副議長":  RoleViceChair,
	"副委員長": RoleViceChair,
	"vice-chair": RoleViceChair,
	"団長":     RoleLeader,
	"代表":     RoleLeader,
	"leader": RoleLeader,
	"幹事長":    RoleSecretaryGeneral,
	"secretary general": RoleSecretaryGeneral,
	"委員":      RoleMember,
	"議員":      RoleMember,
	"member":  RoleMember,
	"発言者":     RoleSpeaker,
	"speaker": RoleSpeaker,
}

// MapRole converts a raw role string to the canonical vocabulary. Unknown or
// empty roles fall back to MEMBER for membership groups and SPEAKER for
// meetings.
func MapRole(raw string, groupType GroupType) AffiliationRole {
	key := strings.ToLower(strings.TrimSpace(raw))
	if role, ok := rawRoles[key]; ok {
		return role
	}
	if role, ok := rawRoles[strings.TrimSpace(raw)]; ok {
		return role
	}
	if groupType == GroupMeeting {
		return RoleSpeaker
	}
	return RoleMember
}

// Affiliation is the durable relationship between a politician and a group.
// EndDate nil means the affiliation is currently active.
type Affiliation struct {
	StartDate    time.Time
	CreatedAt    time.Time
	EndDate      *time.Time
	GroupID      string
	Role         AffiliationRole
	GroupType    GroupType
	ID           int64
	PoliticianID int64
}

// Active reports whether the affiliation is active at the given instant.
func (a *Affiliation) Active(at time.Time) bool {
	return a.EndDate == nil || a.EndDate.After(at)
}
