package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-admin/internal/config"
	"blog-admin/internal/factory"
	"blog-admin/internal/hashing"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Store:       config.StoreConfig{URL: "memory://"},
		Session:     config.SessionConfig{Secret: "test-secret", TTL: time.Hour},
		Hashing:     config.HashingConfig{BcryptCost: 4},
		Bucketing:   config.BucketingConfig{AccountBuckets: 4},
	}
}

// run executes the app and returns the factory it built, if any.
func run(t *testing.T, cfg *config.Config, stdin string, args ...string) (*factory.Factory, string, error) {
	t.Helper()
	var built *factory.Factory
	app := newApp(cfg, func(c *config.Config) (*factory.Factory, error) {
		f, err := factory.NewFactory(c)
		built = f
		return f, err
	})
	var out bytes.Buffer
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	err := app.RunContext(context.Background(), append([]string{"blogctl"}, args...))
	return built, out.String(), err
}

func TestCreateAdmin(t *testing.T) {
	f, out, err := run(t, testConfig(), "changeme123\n",
		"create-admin", "--email", " Admin@Example.com ", "--name", "Ada", "--role", "editor")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin user saved: admin@example.com")

	user, err := f.AccountRepository().FindByEmail(context.Background(), "admin@example.com", repository.FindOptions{IncludeHash: true})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, models.RoleEditor, user.Role)
	assert.True(t, hashing.NewHasher(4).Verify("changeme123", user.PasswordHash))
}

func TestCreateAdmin_RejectsShortPassword(t *testing.T) {
	f, _, err := run(t, testConfig(), "short\n", "create-admin", "--email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
	assert.Nil(t, f)
}

func TestCreateAdmin_RequiresValidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.URL = ""
	_, _, err := run(t, cfg, "changeme123\n", "create-admin", "--email", "admin@example.com")
	assert.ErrorIs(t, err, config.ErrMissingEnv)
}

func TestHashPassword(t *testing.T) {
	_, out, err := run(t, testConfig(), "changeme123\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, hashing.IsHash(hash))
	assert.True(t, hashing.NewHasher(4).Verify("changeme123", hash))

	_, _, err = run(t, testConfig(), "", "hash-password")
	assert.Error(t, err)
}

func TestMigrate_MemoryStore(t *testing.T) {
	_, out, err := run(t, testConfig(), "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date (memory)")
}
