package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"blog-admin/internal/hashing"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/util"
)

// AccountCreateRequest provisions or replaces an administrator account.
type AccountCreateRequest struct {
	Email    string
	Name     string
	Role     string
	Password string
}

// AccountService provisions administrator accounts from the operator CLI.
type AccountService struct {
	repo   repository.AccountRepository
	hasher *hashing.Hasher
	events EventPublisher
}

func NewAccountService(repo repository.AccountRepository, hasher *hashing.Hasher, events EventPublisher) *AccountService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &AccountService{repo: repo, hasher: hasher, events: events}
}

// Upsert hashes the password and writes the account, replacing name, role
// and password of an existing account with the same email.
func (s *AccountService) Upsert(ctx context.Context, req AccountCreateRequest) (*models.AdminUser, error) {
	email := models.NormalizeEmail(req.Email)
	if !models.ValidEmail(email) {
		return nil, &ValidationError{Field: "email", Message: "Please provide a valid email"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > models.MaxNameLength {
		return nil, &ValidationError{Field: "name", Message: fmt.Sprintf("Name must be 1-%d characters", models.MaxNameLength)}
	}
	if util.ContainsSuspicious(name) {
		return nil, &ValidationError{Field: "name", Message: "Name must not contain markup"}
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, &ValidationError{Field: "role", Message: err.Error()}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, hashing.ErrSecretTooLong) {
			return nil, &ValidationError{Field: "password", Message: "Password must be at most 72 bytes"}
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.AdminUser{Email: email, Name: name, Role: role, PasswordHash: hash}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	util.Info("Administrator account provisioned",
		zap.String("account_id", user.ID),
		zap.String("role", user.Role.String()))
	publish(ctx, s.events, models.SecurityEvent{
		Type:      models.EventAccountUpserted,
		AccountID: user.ID,
		Email:     user.Email,
	})
	return repository.Project(user, repository.FindOptions{}), nil
}
