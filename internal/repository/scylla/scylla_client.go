package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"blog-admin/internal/config"
	"blog-admin/internal/repository"
	"blog-admin/internal/util"
)

// Statements used by the account repository
type Statements struct {
	InsertUser          string
	ClaimEmail          string
	GetIDByEmail        string
	GetUser             string
	GetUserWithHash     string
	UpdateUser          string
	UpdateLastLogin     string
	UpdatePassword      string
	ReleaseEmail        string
	SelectClusterHealth string
}

var statements = Statements{
	InsertUser: `
        INSERT INTO admin_users (bucket, id, email, password_hash, name, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	ClaimEmail: `
        INSERT INTO admin_email_index (email, bucket, id) VALUES (?, ?, ?) IF NOT EXISTS`,
	GetIDByEmail: `
        SELECT bucket, id FROM admin_email_index WHERE email = ?`,
	GetUser: `
        SELECT id, email, name, role, last_login, created_at, updated_at
        FROM admin_users WHERE bucket = ? AND id = ?`,
	GetUserWithHash: `
        SELECT id, email, name, role, last_login, created_at, updated_at, password_hash
        FROM admin_users WHERE bucket = ? AND id = ?`,
	UpdateUser: `
        UPDATE admin_users SET name = ?, role = ?, password_hash = ?, updated_at = ?
        WHERE bucket = ? AND id = ? IF EXISTS`,
	UpdateLastLogin: `
        UPDATE admin_users SET last_login = ? WHERE bucket = ? AND id = ?`,
	UpdatePassword: `
        UPDATE admin_users SET password_hash = ?, updated_at = ? WHERE bucket = ? AND id = ? IF EXISTS`,
	ReleaseEmail: `
        DELETE FROM admin_email_index WHERE email = ? IF id = ?`,
	SelectClusterHealth: `SELECT cluster_name FROM system.local`,
}

// ScyllaClient owns the lazily created gocql session for the account store.
type ScyllaClient struct {
	store     *config.StoreURL
	connector *repository.Connector[*gocql.Session]
}

func NewScyllaClient(store *config.StoreURL, cfg *config.Config) *ScyllaClient {
	c := &ScyllaClient{store: store}
	c.connector = repository.NewConnector("scylla", func(ctx context.Context) (*gocql.Session, error) {
		return c.createSession(cfg)
	}, func(s *gocql.Session) error {
		s.Close()
		return nil
	}, cfg.Store.ConnectTimeout)
	return c
}

func (s *ScyllaClient) createSession(cfg *config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(s.store.Hosts...)
	cluster.Keyspace = s.store.Database
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = cfg.Store.ConnectTimeout
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if cfg.Store.CAFile != "" {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.Store.CAFile,
			EnableHostVerification: true,
		}
	}

	if s.store.Username != "" && s.store.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: s.store.Username,
			Password: s.store.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, repository.ExplainDialError(fmt.Errorf("failed to create scylla session: %w", err))
	}

	util.Info("ScyllaDB session created",
		zap.Strings("nodes", s.store.Hosts),
		zap.String("keyspace", s.store.Database))
	return session, nil
}

// Session returns the shared session, connecting on first use.
func (s *ScyllaClient) Session(ctx context.Context) (*gocql.Session, error) {
	return s.connector.Connect(ctx)
}

func (s *ScyllaClient) Close() error {
	return s.connector.Close()
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	session, err := s.Session(ctx)
	if err != nil {
		return err
	}
	var clusterName string
	if err := session.Query(statements.SelectClusterHealth).WithContext(ctx).Scan(&clusterName); err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// Migrate applies the embedded CQL schema. The keyspace must already exist.
func (s *ScyllaClient) Migrate(ctx context.Context) error {
	session, err := s.Session(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements() {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	util.Info("ScyllaDB schema applied", zap.String("keyspace", s.store.Database))
	return nil
}
