package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"blog-admin/internal/config"
	"blog-admin/internal/util"
)

var ErrNoCertificate = errors.New("no TLS certificate available")

// TLSManager resolves the serving certificate: ACME via autocert, then the
// configured files, then (outside production) a generated self-signed one.
type TLSManager struct {
	server      config.ServerConfig
	production  bool
	autoCert    *autocert.Manager
	fileCert    *tls.Certificate
	devCertOnce sync.Once
	devCert     *tls.Certificate
	devCertErr  error
}

func NewTLSManager(cfg *config.Config) (*TLSManager, error) {
	m := &TLSManager{
		server:     cfg.Server,
		production: cfg.IsProduction(),
	}

	if cfg.Server.AutoCert {
		if err := m.setupAutoCert(); err != nil {
			return nil, err
		}
	}

	if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		m.fileCert = &cert
	}

	if m.autoCert == nil && m.fileCert == nil && m.production {
		return nil, fmt.Errorf("%w: set TLS_CERT_FILE/TLS_KEY_FILE or TLS_AUTOCERT in production", ErrNoCertificate)
	}
	return m, nil
}

func (m *TLSManager) setupAutoCert() error {
	if m.server.Domain == "" {
		return errors.New("TLS_DOMAIN is required for autocert")
	}
	if err := os.MkdirAll(m.server.AutoCertDir, 0700); err != nil {
		return fmt.Errorf("could not create autocert directory: %w", err)
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.server.Domain),
		Cache:      autocert.DirCache(m.server.AutoCertDir),
		Email:      m.server.Email,
	}

	util.Info("AutoCert configured",
		zap.String("domain", m.server.Domain),
		zap.String("cache_dir", m.server.AutoCertDir))
	return nil
}

func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		cert, err := m.autoCert.GetCertificate(hello)
		if err == nil {
			return cert, nil
		}
		util.Warn("AutoCert certificate unavailable", zap.String("server_name", hello.ServerName), zap.Error(err))
	}

	if m.fileCert != nil {
		return m.fileCert, nil
	}

	if m.production {
		return nil, ErrNoCertificate
	}
	return m.selfSignedCert()
}

func (m *TLSManager) selfSignedCert() (*tls.Certificate, error) {
	m.devCertOnce.Do(func() {
		hosts := []string{"localhost", "127.0.0.1", "::1"}
		if m.server.Domain != "" {
			hosts = append([]string{m.server.Domain}, hosts...)
		}
		cert, err := NewDevCertGenerator(m.server.AutoCertDir).GenerateCert(hosts)
		if err != nil {
			m.devCertErr = fmt.Errorf("failed to generate self-signed certificate: %w", err)
			return
		}
		m.devCert = &cert
	})
	return m.devCert, m.devCertErr
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

// HTTPHandler wraps fallback for the plain-HTTP listener. With autocert it
// answers ACME http-01 challenges and redirects everything else to HTTPS.
func (m *TLSManager) HTTPHandler(fallback http.Handler) http.Handler {
	if m.autoCert == nil {
		return fallback
	}
	return m.autoCert.HTTPHandler(fallback)
}
