package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleTeamLeader Role = "team-leader"
	RoleField      Role = "field"
)

// Versions of the meaning of the users.assigned column.
//
// Version 1 rows stored a free-text assignment (a store or region name).
// Version 2 rows store a role value.
const (
	AssignedVersionLegacy = 1
	AssignedVersionRole   = 2

	CurrentAssignedVersion = AssignedVersionRole
)

// AssignedAdmin is an assigned value that grants team-leader privileges
// alongside RoleTeamLeader itself
const AssignedAdmin = "admin"

// RoleFor interprets an assigned value according to the version it was
// written under. Current-version "team-leader" and "admin" map to
// RoleTeamLeader; everything else, and every legacy row, maps to RoleField.
func RoleFor(assigned string, version int) Role {
	if version < AssignedVersionRole {
		return RoleField
	}
	switch strings.ToLower(strings.TrimSpace(assigned)) {
	case string(RoleTeamLeader), AssignedAdmin:
		return RoleTeamLeader
	default:
		return RoleField
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTeamLeader || r == RoleField
}

// User represents a field-sales account.
type User struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email,omitempty"`
	Assigned        string `json:"assigned"`
	AssignedVersion int    `json:"assigned_version"`
	PasswordHash    string `json:"-"`
}

// Role returns the user's effective role.
func (u *User) Role() Role {
	return RoleFor(u.Assigned, u.AssignedVersion)
}

// Login log event types
const (
	LoginEventLogin  = "login"
	LoginEventLogout = "logout"
)

// NormalizeUsername returns the canonical form of a username: trimmed, NFC
// normalized and case folded. Both the server and the device compare
// usernames in this form.
func NormalizeUsername(username string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(username)))
}
