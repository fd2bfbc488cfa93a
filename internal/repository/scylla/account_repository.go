package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-admin/internal/bucketing"
	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/util"
)

// AccountRepository stores admin accounts in admin_users, partitioned by a
// murmur3 bucket of the account id. admin_email_index maps the normalized
// email to the (bucket, id) pair and doubles as the uniqueness guard.
type AccountRepository struct {
	client  *ScyllaClient
	buckets *bucketing.BucketingManager
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(client *ScyllaClient, buckets *bucketing.BucketingManager) *AccountRepository {
	return &AccountRepository{client: client, buckets: buckets}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string, opts repository.FindOptions) (*models.AdminUser, error) {
	session, err := r.client.Session(ctx)
	if err != nil {
		return nil, err
	}

	var (
		bucket int
		id     string
	)
	err = session.Query(statements.GetIDByEmail, models.NormalizeEmail(email)).
		WithContext(ctx).Scan(&bucket, &id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up email index: %w", err)
	}
	return r.get(ctx, session, bucket, id, opts)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*models.AdminUser, error) {
	session, err := r.client.Session(ctx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, session, r.buckets.AccountBucket(id), id, opts)
}

func (r *AccountRepository) get(ctx context.Context, session *gocql.Session, bucket int, id string, opts repository.FindOptions) (*models.AdminUser, error) {
	var (
		user      models.AdminUser
		role      string
		lastLogin time.Time
	)
	dest := []interface{}{&user.ID, &user.Email, &user.Name, &role, &lastLogin, &user.CreatedAt, &user.UpdatedAt}
	stmt := statements.GetUser
	if opts.IncludeHash {
		stmt = statements.GetUserWithHash
		dest = append(dest, &user.PasswordHash)
	}

	if err := session.Query(stmt, bucket, id).WithContext(ctx).Scan(dest...); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	user.Role = models.Role(role)
	if !lastLogin.IsZero() {
		t := lastLogin.UTC()
		user.LastLogin = &t
	}
	return &user, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	session, err := r.client.Session(ctx)
	if err != nil {
		return err
	}
	err = session.Query(statements.UpdateLastLogin, at.UTC(), r.buckets.AccountBucket(id), id).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	if err := repository.ValidatePasswordHash(passwordHash); err != nil {
		return err
	}
	session, err := r.client.Session(ctx)
	if err != nil {
		return err
	}

	applied, err := session.Query(statements.UpdatePassword, passwordHash, at.UTC(), r.buckets.AccountBucket(id), id).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if !applied {
		return repository.ErrAccountNotFound
	}

	util.Info("Account password updated", zap.String("account_id", id))
	return nil
}

func (r *AccountRepository) Upsert(ctx context.Context, user *models.AdminUser) error {
	if err := repository.ValidateForWrite(user); err != nil {
		return err
	}
	session, err := r.client.Session(ctx)
	if err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	bucket := r.buckets.AccountBucket(user.ID)
	now := time.Now().UTC()

	res, err := upsertAccount(ctx, cqlWriter{session: session}, bucket, user, now)
	if err != nil {
		return err
	}
	if res.created {
		user.CreatedAt = now
		user.UpdatedAt = now
		util.Info("Account created",
			zap.String("account_id", user.ID),
			zap.String("role", user.Role.String()))
		return nil
	}

	stored, err := r.get(ctx, session, res.bucket, res.id, repository.FindOptions{IncludeHash: true})
	if err != nil {
		return err
	}
	*user = *stored
	util.Info("Account updated", zap.String("account_id", user.ID))
	return nil
}

// accountWriter is the sequence of CQL writes behind Upsert.
type accountWriter interface {
	claimEmail(ctx context.Context, email string, bucket int, id string) (applied bool, ownerBucket int, ownerID string, err error)
	insert(ctx context.Context, bucket int, id string, user *models.AdminUser, now time.Time) error
	update(ctx context.Context, bucket int, id string, user *models.AdminUser, now time.Time) (applied bool, err error)
	releaseEmail(ctx context.Context, email, id string) error
}

type upsertResult struct {
	created bool
	bucket  int
	id      string
}

// upsertAccount claims the email in the index, then writes the account row.
// A failed insert releases the claim so the index never points at a missing
// row. An index entry whose row is missing is repaired with a full insert.
func upsertAccount(ctx context.Context, w accountWriter, bucket int, user *models.AdminUser, now time.Time) (upsertResult, error) {
	applied, ownerBucket, ownerID, err := w.claimEmail(ctx, user.Email, bucket, user.ID)
	if err != nil {
		return upsertResult{}, fmt.Errorf("failed to claim email: %w", err)
	}

	if applied {
		if err := w.insert(ctx, bucket, user.ID, user, now); err != nil {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if relErr := w.releaseEmail(releaseCtx, user.Email, user.ID); relErr != nil {
				util.Error("Failed to release email claim after insert failure",
					zap.String("account_id", user.ID),
					zap.Error(relErr))
			}
			return upsertResult{}, fmt.Errorf("failed to insert account: %w", err)
		}
		return upsertResult{created: true, bucket: bucket, id: user.ID}, nil
	}

	updated, err := w.update(ctx, ownerBucket, ownerID, user, now)
	if err != nil {
		return upsertResult{}, fmt.Errorf("failed to update account: %w", err)
	}
	if !updated {
		util.Warn("Email index points at a missing account row, rewriting it", zap.String("account_id", ownerID))
		if err := w.insert(ctx, ownerBucket, ownerID, user, now); err != nil {
			return upsertResult{}, fmt.Errorf("failed to repair account: %w", err)
		}
	}
	return upsertResult{bucket: ownerBucket, id: ownerID}, nil
}

type cqlWriter struct {
	session *gocql.Session
}

func (c cqlWriter) claimEmail(ctx context.Context, email string, bucket int, id string) (bool, int, string, error) {
	existing := map[string]interface{}{}
	applied, err := c.session.Query(statements.ClaimEmail, email, bucket, id).
		WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return false, 0, "", err
	}
	ownerID, _ := existing["id"].(string)
	ownerBucket, _ := existing["bucket"].(int)
	return applied, ownerBucket, ownerID, nil
}

func (c cqlWriter) insert(ctx context.Context, bucket int, id string, user *models.AdminUser, now time.Time) error {
	return c.session.Query(statements.InsertUser,
		bucket, id, user.Email, user.PasswordHash, user.Name, string(user.Role), now, now).
		WithContext(ctx).Exec()
}

func (c cqlWriter) update(ctx context.Context, bucket int, id string, user *models.AdminUser, now time.Time) (bool, error) {
	return c.session.Query(statements.UpdateUser,
		user.Name, string(user.Role), user.PasswordHash, now, bucket, id).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
}

func (c cqlWriter) releaseEmail(ctx context.Context, email, id string) error {
	_, err := c.session.Query(statements.ReleaseEmail, email, id).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return err
}

func (r *AccountRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
