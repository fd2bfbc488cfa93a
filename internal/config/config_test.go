package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_URL", "")
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")

	c := LoadConfig()
	require.NotNil(t, c)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 30*24*time.Hour, c.Session.TTL)
	assert.Equal(t, "blog_admin_session", c.Session.CookieName)
	assert.Equal(t, 12, c.Hashing.BcryptCost)
	assert.Equal(t, 10, c.RateLimit.LoginAttempts)
	assert.Equal(t, time.Minute, c.RateLimit.Window)
	assert.Equal(t, "admin-security-events", c.Kafka.Topic)
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_URL", "postgres://blog:blog@db:5432/blog")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	c := LoadConfig()

	assert.Equal(t, "postgres://blog:blog@db:5432/blog", c.Store.URL)
	assert.Equal(t, "s3cret", c.Session.Secret)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 2*time.Hour, c.Session.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestValidate_MissingRequired(t *testing.T) {
	c := &Config{Session: SessionConfig{Secret: "x", TTL: time.Hour}}
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEnv))
	assert.Contains(t, err.Error(), "STORE_URL")

	c = &Config{Store: StoreConfig{URL: "postgres://db/blog"}, Session: SessionConfig{TTL: time.Hour}}
	err = c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEnv))
	assert.Contains(t, err.Error(), "AUTH_SECRET")
}

func TestValidate_OK(t *testing.T) {
	c := &Config{
		Store:   StoreConfig{URL: "scylla://10.0.0.1,10.0.0.2/blog"},
		Session: SessionConfig{Secret: "x", TTL: time.Hour},
	}
	assert.NoError(t, c.Validate())
}

func TestValidate_TLSPair(t *testing.T) {
	c := &Config{
		Store:   StoreConfig{URL: "postgres://db/blog"},
		Session: SessionConfig{Secret: "x", TTL: time.Hour},
		Server:  ServerConfig{EnableTLS: true, CertFile: "cert.pem"},
	}
	assert.Error(t, c.Validate())
}

func TestValidate_StoreURL(t *testing.T) {
	c := &Config{
		Store:   StoreConfig{URL: "mongodb://cluster.example/blog"},
		Session: SessionConfig{Secret: "x", TTL: time.Hour},
	}
	assert.ErrorIs(t, c.Validate(), ErrInvalidStoreURL)

	c.Store.URL = "memory://"
	assert.NoError(t, c.Validate())
	c.Environment = "production"
	assert.ErrorIs(t, c.Validate(), ErrInvalidStoreURL)
}
