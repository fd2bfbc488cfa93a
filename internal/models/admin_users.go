package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Role is the enumerated permission level of an administrator account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

var ErrInvalidRole = errors.New("role must be admin or editor")

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEditor
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts "admin" or "editor" in any case. An empty string maps to
// RoleAdmin, the default for newly provisioned accounts.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleAdmin:
		return RoleAdmin, nil
	case RoleEditor:
		return RoleEditor, nil
	}
	return "", ErrInvalidRole
}

// AdminUser is a staff account allowed into the admin panel. PasswordHash is
// only populated when a repository read explicitly asks for it.
type AdminUser struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         Role       `json:"role" db:"role"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Claim returns the identity carried by a session for this account.
func (u *AdminUser) Claim() Claim {
	return Claim{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Claim is the fixed identity schema shared by the verifier, the session
// token and the reconstructed session.
type Claim struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

const MaxNameLength = 100

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeEmail lowercases and trims an email so lookups and uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
