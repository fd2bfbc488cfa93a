package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"blog-admin/internal/hashing"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/repository/memory"
)

// countingRepo records every store access and can inject failures.
type countingRepo struct {
	*memory.AccountRepository

	finds            atomic.Int32
	lastLoginUpdates atomic.Int32
	passwordUpdates  atomic.Int32

	findErr      error
	lastLoginErr error
}

func (r *countingRepo) FindByEmail(ctx context.Context, email string, opts repository.FindOptions) (*models.AdminUser, error) {
	r.finds.Add(1)
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.AccountRepository.FindByEmail(ctx, email, opts)
}

func (r *countingRepo) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*models.AdminUser, error) {
	r.finds.Add(1)
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.AccountRepository.FindByID(ctx, id, opts)
}

func (r *countingRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.lastLoginUpdates.Add(1)
	if r.lastLoginErr != nil {
		return r.lastLoginErr
	}
	return r.AccountRepository.UpdateLastLogin(ctx, id, at)
}

func (r *countingRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	r.passwordUpdates.Add(1)
	return r.AccountRepository.UpdatePassword(ctx, id, hash, at)
}

func (r *countingRepo) storeAccesses() int32 {
	return r.finds.Load() + r.lastLoginUpdates.Load() + r.passwordUpdates.Load()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.SecurityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []models.SecurityEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SecurityEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var testHasher = hashing.NewHasher(bcrypt.MinCost)

// seedRepo stores ada@example.com with password "correct horse".
func seedRepo(t *testing.T) (*countingRepo, *models.AdminUser) {
	t.Helper()
	hash, err := testHasher.Hash("correct horse")
	require.NoError(t, err)

	repo := &countingRepo{AccountRepository: memory.NewAccountRepository()}
	user := &models.AdminUser{Email: "ada@example.com", Name: "Ada", Role: models.RoleEditor, PasswordHash: hash}
	require.NoError(t, repo.AccountRepository.Upsert(context.Background(), user))
	return repo, user
}
