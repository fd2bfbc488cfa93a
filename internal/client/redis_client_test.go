package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-admin/internal/config"
	devtls "blog-admin/internal/tls"
)

func TestNewRedisClient_InvalidURL(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{URL: "http://not-redis:6379"}}
	_, err := NewRedisClient(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestRedisTLSConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := devtls.NewDevCertGenerator(dir).GenerateCert([]string{"localhost"})
	require.NoError(t, err)
	certFile := filepath.Join(dir, "dev-cert.pem")
	keyFile := filepath.Join(dir, "dev-key.pem")

	tlsConfig, err := redisTLSConfig(&config.RedisConfig{
		TLSCAFile:   certFile,
		TLSCertFile: certFile,
		TLSKeyFile:  keyFile,
	})
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig.RootCAs)
	assert.Len(t, tlsConfig.Certificates, 1)

	_, err = redisTLSConfig(&config.RedisConfig{TLSCAFile: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0600))
	_, err = redisTLSConfig(&config.RedisConfig{TLSCAFile: garbage})
	assert.Error(t, err)
}
