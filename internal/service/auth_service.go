package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"blog-admin/internal/hashing"
	"blog-admin/internal/metrics"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/util"
)

// FailureReason is the internal cause of a failed verification. It is logged
// and counted but never shown to the end user.
type FailureReason string

const (
	ReasonMissingCredentials FailureReason = "missing-credentials"
	ReasonAccountNotFound    FailureReason = "account-not-found"
	ReasonSecretMismatch     FailureReason = "secret-mismatch"
	ReasonStoreUnavailable   FailureReason = "account-store-unavailable"
)

// PublicFailureMessage is the only failure text shown to end users.
const PublicFailureMessage = "invalid email or password"

// Outcome is the result of Authorize: exactly one of Claim and Reason is set.
type Outcome struct {
	Claim  *models.Claim
	Reason FailureReason
}

func (o Outcome) OK() bool { return o.Claim != nil }

// PublicMessage is empty on success and uniform across every failure reason.
func (o Outcome) PublicMessage() string {
	if o.OK() {
		return ""
	}
	return PublicFailureMessage
}

func failure(reason FailureReason) Outcome { return Outcome{Reason: reason} }

// AuthService verifies administrator credentials.
type AuthService struct {
	repo             repository.AccountRepository
	hasher           *hashing.Hasher
	events           EventPublisher
	lastLoginTimeout time.Duration
	now              func() time.Time
}

func NewAuthService(repo repository.AccountRepository, hasher *hashing.Hasher, events EventPublisher) *AuthService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &AuthService{
		repo:             repo,
		hasher:           hasher,
		events:           events,
		lastLoginTimeout: 5 * time.Second,
		now:              time.Now,
	}
}

// Authorize runs lookup, verify and the best-effort last-login update, in that
// order. Failures never touch the store beyond the lookup and never return an
// error: every problem becomes an Outcome reason.
func (s *AuthService) Authorize(ctx context.Context, identifier, secret string) Outcome {
	email := models.NormalizeEmail(identifier)
	if email == "" || secret == "" {
		return s.fail(ctx, email, "", ReasonMissingCredentials, nil)
	}

	user, err := s.repo.FindByEmail(ctx, email, repository.FindOptions{IncludeHash: true})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return s.fail(ctx, email, "", ReasonAccountNotFound, nil)
		}
		return s.fail(ctx, email, "", ReasonStoreUnavailable, err)
	}

	if !s.hasher.Verify(secret, user.PasswordHash) {
		return s.fail(ctx, email, user.ID, ReasonSecretMismatch, nil)
	}

	s.touchLastLogin(user.ID)

	claim := user.Claim()
	metrics.ObserveLogin("success")
	util.Info("Administrator signed in",
		zap.String("account_id", claim.ID),
		zap.String("role", claim.Role.String()))
	publish(ctx, s.events, models.SecurityEvent{
		Type:      models.EventLoginSucceeded,
		AccountID: claim.ID,
		Email:     claim.Email,
	})
	return Outcome{Claim: &claim}
}

func (s *AuthService) fail(ctx context.Context, email, accountID string, reason FailureReason, cause error) Outcome {
	metrics.ObserveLogin(string(reason))

	fields := []zap.Field{zap.String("reason", string(reason))}
	if email != "" {
		fields = append(fields, util.MaskedEmail("email", email))
	}
	if accountID != "" {
		fields = append(fields, zap.String("account_id", accountID))
	}
	if cause != nil {
		util.Error("Credential lookup failed", append(fields, zap.Error(cause))...)
	} else {
		util.Warn("Credential verification failed", fields...)
	}

	if reason != ReasonMissingCredentials {
		publish(ctx, s.events, models.SecurityEvent{
			Type:      models.EventLoginFailed,
			AccountID: accountID,
			Email:     email,
			Reason:    string(reason),
		})
	}
	return failure(reason)
}

// touchLastLogin records the login time without holding up the caller. It
// uses its own context so a finished request does not cancel the write.
func (s *AuthService) touchLastLogin(accountID string) {
	at := s.now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.lastLoginTimeout)
		defer cancel()
		if err := s.repo.UpdateLastLogin(ctx, accountID, at); err != nil {
			util.Warn("Failed to update last login",
				zap.String("account_id", accountID),
				zap.Error(err))
		}
	}()
}
