package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"blog-admin/internal/config"
	"blog-admin/internal/repository"
	"blog-admin/internal/repository/postgres/migrations"
	"blog-admin/internal/util"
)

// PostgresClient owns the lazily opened *sql.DB for the account store.
type PostgresClient struct {
	store     *config.StoreURL
	connector *repository.Connector[*sql.DB]
}

func NewPostgresClient(store *config.StoreURL, cfg *config.Config) *PostgresClient {
	c := &PostgresClient{store: store}
	c.connector = repository.NewConnector("postgres", c.open, func(db *sql.DB) error {
		return db.Close()
	}, cfg.Store.ConnectTimeout)
	return c
}

func (c *PostgresClient) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.store.Raw)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// sql.Open is lazy; ping so a bad host fails this attempt.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, repository.ExplainDialError(fmt.Errorf("db ping error: %w", err))
	}

	util.Info("PostgreSQL connection opened",
		zap.Strings("hosts", c.store.Hosts),
		zap.String("database", c.store.Database))
	return db, nil
}

// DB returns the shared pool, opening it on first use.
func (c *PostgresClient) DB(ctx context.Context) (*sql.DB, error) {
	return c.connector.Connect(ctx)
}

func (c *PostgresClient) Close() error {
	return c.connector.Close()
}

func (c *PostgresClient) HealthCheck(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Migrate runs the embedded goose migrations.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	return RunMigrations(ctx, db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	util.Info("PostgreSQL migrations applied")
	return nil
}
