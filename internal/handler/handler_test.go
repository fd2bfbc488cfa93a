package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blog-admin/internal/hashing"
	"blog-admin/internal/models"
	"blog-admin/internal/repository/memory"
	ratelimit "blog-admin/internal/repository/redis"
	"blog-admin/internal/service"
	"blog-admin/internal/session"
)

type testEnv struct {
	router  http.Handler
	issuer  *session.Issuer
	repo    *memory.AccountRepository
	user    *models.AdminUser
	limiter *stubLimiter
}

type stubLimiter struct {
	result ratelimit.RateLimitResult
	err    error
	calls  int
	keys   []string
	resets []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (ratelimit.RateLimitResult, error) {
	l.calls++
	l.keys = append(l.keys, key)
	return l.result, l.err
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	l.resets = append(l.resets, key)
	return nil
}

type stubHealth struct{ err error }

func (h stubHealth) HealthCheck(context.Context) error { return h.err }

func newTestEnv(t *testing.T, limiter *stubLimiter, health HealthChecker) *testEnv {
	t.Helper()
	hasher := hashing.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	repo := memory.NewAccountRepository()
	user := &models.AdminUser{Email: "ada@example.com", Name: "Ada", Role: models.RoleAdmin, PasswordHash: hash}
	require.NoError(t, repo.Upsert(context.Background(), user))

	issuer, err := session.NewIssuer("test-secret", time.Hour, "")
	require.NoError(t, err)

	services := service.NewServiceFactory(repo, hasher, nil)
	gate := NewGate(issuer)
	var lim LoginLimiter
	if limiter != nil {
		lim = limiter
	}
	router := NewRouter(RouterConfig{},
		gate,
		NewAuthHandler(services.AuthService(), services.PasswordService(), issuer, lim),
		NewAdminHandler(gate),
		health,
		zap.NewNop(),
	)
	return &testEnv{router: router, issuer: issuer, repo: repo, user: user, limiter: limiter}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, _, err := e.issuer.Issue(e.user.Claim())
	require.NoError(t, err)
	return token
}

var errBoom = errors.New("boom")
