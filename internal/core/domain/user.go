package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin  = "Admin"
	RolePlayer = "Player"
)

// DefaultRoles is the role set every instance ensures on startup.
var DefaultRoles = []string{RoleAdmin, RolePlayer}

// User is the identity-of-record for a player or operator account.
// ID and CreatedOn are assigned once at creation and never change.
type User struct {
	ID             string    `json:"id"`
	UserName       string    `json:"username"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	PasswordHash   string    `json:"-"`
	Gil            int64     `json:"gil"`
	Roles          []string  `json:"roles,omitempty"`
	CreatedOn      time.Time `json:"created_on"`
}

// HasRole reports whether the user is a member of role (case-insensitive).
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Normalize returns the lookup key used for unique email, user name and role indexes.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// WriteOutcome is the non-fatal result of an idempotent store write.
// Fatal store failures are reported through the accompanying error instead.
type WriteOutcome int

const (
	OutcomeCreated WriteOutcome = iota
	OutcomeAlreadyExists
)

func (o WriteOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}
