package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blog-admin/internal/models"
	"blog-admin/internal/repository"
)

// AccountRepository is the PostgreSQL account store. Emails are stored
// normalized and unique on lower(email).
type AccountRepository struct {
	db func(ctx context.Context) (*sql.DB, error)
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(client *PostgresClient) *AccountRepository {
	return &AccountRepository{db: client.DB}
}

// NewAccountRepositoryWithDB wraps an already opened pool.
func NewAccountRepositoryWithDB(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: func(context.Context) (*sql.DB, error) { return db, nil }}
}

const (
	selectColumns     = `id, email, name, role, last_login, created_at, updated_at`
	selectHashColumns = selectColumns + `, password_hash`
)

func (r *AccountRepository) FindByEmail(ctx context.Context, email string, opts repository.FindOptions) (*models.AdminUser, error) {
	return r.findOne(ctx, "lower(email) = $1", models.NormalizeEmail(email), opts)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*models.AdminUser, error) {
	return r.findOne(ctx, "id = $1", id, opts)
}

func (r *AccountRepository) findOne(ctx context.Context, where string, arg string, opts repository.FindOptions) (*models.AdminUser, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	columns := selectColumns
	if opts.IncludeHash {
		columns = selectHashColumns
	}
	query := `SELECT ` + columns + ` FROM admin_users WHERE ` + where

	var (
		user      models.AdminUser
		role      string
		lastLogin sql.NullTime
	)
	dest := []any{&user.ID, &user.Email, &user.Name, &role, &lastLogin, &user.CreatedAt, &user.UpdatedAt}
	if opts.IncludeHash {
		dest = append(dest, &user.PasswordHash)
	}

	if err := db.QueryRowContext(ctx, query, arg).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLogin = &t
	}
	return &user, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `UPDATE admin_users SET last_login = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	if err := repository.ValidatePasswordHash(passwordHash); err != nil {
		return err
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE admin_users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *AccountRepository) Upsert(ctx context.Context, user *models.AdminUser) error {
	if err := repository.ValidateForWrite(user); err != nil {
		return err
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	query :=
		`INSERT INTO admin_users (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT ((lower(email))) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name,
		     role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`

	err = db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, string(user.Role), now).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *AccountRepository) HealthCheck(ctx context.Context) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}
