package domain

import (
	"strings"
	"time"
)

// Role is the closed set of authorization roles a user can hold.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts s into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func (r Role) IsUser() bool { return r == RoleUser }

func (r Role) String() string { return string(r) }

// User is the identity record owned by the persistence layer.
// PasswordHash never holds plaintext once persisted.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	ZipCode      string    `json:"zip_code"`
	Role         Role      `json:"role"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credential is the email/password pair supplied on a login attempt.
// It is request scoped and must never be persisted or logged.
type Credential struct {
	Email    string
	Password string
}

// Principal is an authenticated identity.
type Principal struct {
	UserID string
	Role   Role
}
