package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"blog-admin/internal/hashing"
	"blog-admin/internal/metrics"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/util"
)

const MinPasswordLength = 8

var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrAccountNotFound          = errors.New("user not found")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
)

// ValidationError is a field-level input problem. It wraps ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// PasswordService changes the password of an authenticated administrator.
type PasswordService struct {
	repo   repository.AccountRepository
	hasher *hashing.Hasher
	events EventPublisher
	now    func() time.Time
}

func NewPasswordService(repo repository.AccountRepository, hasher *hashing.Hasher, events EventPublisher) *PasswordService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &PasswordService{repo: repo, hasher: hasher, events: events, now: time.Now}
}

// ValidatePasswordChange checks the request shape without any store access.
// Every failing field contributes its message; the confirmation is compared
// only once all fields pass. Length counts characters, not bytes.
func ValidatePasswordChange(current, newPassword, confirm string) error {
	var field string
	var messages []string
	fail := func(f, msg string) {
		if field == "" {
			field = f
		}
		messages = append(messages, msg)
	}

	if current == "" {
		fail("currentPassword", "Current password is required")
	}
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		fail("newPassword", fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}
	if confirm == "" {
		fail("confirmPassword", "Confirm password is required")
	}
	if len(messages) > 0 {
		return &ValidationError{Field: field, Message: strings.Join(messages, ", ")}
	}

	if newPassword != confirm {
		return &ValidationError{Field: "confirmPassword", Message: "Passwords don't match"}
	}
	return nil
}

// ChangePassword re-verifies the current password for subjectID before
// storing a hash of the new one. A valid session alone is not enough.
func (s *PasswordService) ChangePassword(ctx context.Context, subjectID, current, newPassword, confirm string) error {
	if err := ValidatePasswordChange(current, newPassword, confirm); err != nil {
		metrics.ObservePasswordChange("invalid_input")
		return err
	}

	user, err := s.repo.FindByID(ctx, subjectID, repository.FindOptions{IncludeHash: true})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			metrics.ObservePasswordChange("not_found")
			util.Warn("Password change for unknown account", zap.String("account_id", subjectID))
			return ErrAccountNotFound
		}
		metrics.ObservePasswordChange("error")
		return fmt.Errorf("failed to load account: %w", err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		metrics.ObservePasswordChange("current_incorrect")
		util.Warn("Password change rejected", zap.String("account_id", user.ID))
		return ErrCurrentPasswordIncorrect
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, hashing.ErrSecretTooLong) {
			metrics.ObservePasswordChange("invalid_input")
			return &ValidationError{Field: "newPassword", Message: "New password must be at most 72 bytes"}
		}
		metrics.ObservePasswordChange("error")
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			metrics.ObservePasswordChange("not_found")
			return ErrAccountNotFound
		}
		metrics.ObservePasswordChange("error")
		return fmt.Errorf("failed to update password: %w", err)
	}

	metrics.ObservePasswordChange("changed")
	util.Info("Password changed", zap.String("account_id", user.ID))
	publish(ctx, s.events, models.SecurityEvent{
		Type:      models.EventPasswordChanged,
		AccountID: user.ID,
		Email:     user.Email,
	})
	return nil
}
