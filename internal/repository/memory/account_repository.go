// Package memory is an in-process account store for tests and local
// development (STORE_URL=memory://).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"blog-admin/internal/models"
	"blog-admin/internal/repository"
)

type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.AdminUser
	byEmail map[string]string
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*models.AdminUser),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string, opts repository.FindOptions) (*models.AdminUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return repository.Project(r.byID[id], opts), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*models.AdminUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return repository.Project(user, opts), nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	t := at.UTC()
	user.LastLogin = &t
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidatePasswordHash(passwordHash); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = at.UTC()
	return nil
}

func (r *AccountRepository) Upsert(ctx context.Context, user *models.AdminUser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateForWrite(user); err != nil {
		return err
	}
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[user.Email]; ok {
		existing := r.byID[id]
		existing.Name = user.Name
		existing.Role = user.Role
		existing.PasswordHash = user.PasswordHash
		existing.UpdatedAt = now
		*user = *existing
		return nil
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *AccountRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
