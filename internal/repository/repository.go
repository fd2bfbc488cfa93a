// Package repository defines the administrator account store used by the
// authentication core, plus the process-wide connection holder shared by
// the concrete backends.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog-admin/internal/hashing"
	"blog-admin/internal/models"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrPlaintextPassword = errors.New("refusing to persist a password that is not a hash")
	ErrInvalidAccount    = errors.New("invalid account")
	ErrStoreUnavailable  = errors.New("account store unavailable")
)

// FindOptions controls the projection of account reads. The password hash is
// excluded unless IncludeHash is set.
type FindOptions struct {
	IncludeHash bool
}

// AccountRepository is the credential store accessor.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string, opts FindOptions) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string, opts FindOptions) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	// Upsert inserts the account or, when an account with the same
	// (case-insensitive) email exists, replaces its name, role and hash.
	Upsert(ctx context.Context, user *models.AdminUser) error
	HealthCheck(ctx context.Context) error
}

// ValidateForWrite normalizes the email and enforces the invariants every
// backend must hold before persisting an account.
func ValidateForWrite(user *models.AdminUser) error {
	if user == nil {
		return fmt.Errorf("%w: nil account", ErrInvalidAccount)
	}
	user.Email = models.NormalizeEmail(user.Email)
	if !models.ValidEmail(user.Email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidAccount)
	}
	user.Name = strings.TrimSpace(user.Name)
	if user.Name == "" || len(user.Name) > models.MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidAccount, models.MaxNameLength)
	}
	if user.Role == "" {
		user.Role = models.RoleAdmin
	}
	if !user.Role.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidAccount, models.ErrInvalidRole)
	}
	return ValidatePasswordHash(user.PasswordHash)
}

// ValidatePasswordHash rejects anything that is not a hash produced by the
// hashing package.
func ValidatePasswordHash(hash string) error {
	if !hashing.IsHash(hash) {
		return ErrPlaintextPassword
	}
	return nil
}

// Project strips fields the caller did not ask for.
func Project(user *models.AdminUser, opts FindOptions) *models.AdminUser {
	if user == nil {
		return nil
	}
	out := *user
	if !opts.IncludeHash {
		out.PasswordHash = ""
	}
	return &out
}
