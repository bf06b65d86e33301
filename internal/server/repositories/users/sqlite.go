package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository over a dbx.DBTX. SQLite has no UUID
// default, so the repository assigns IDs; timestamps are stored in UTC.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// now is a seam for deterministic timestamps in tests.
var now = func() time.Time { return time.Now().UTC() }

func (r *SQLiteRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, password_digest, remember_token, admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 `

	id := uuid.NewString()
	ts := now()

	_, err := r.db.ExecContext(ctx, query,
		id, u.Name, u.Email, u.PasswordDigest, u.RememberToken, u.Admin, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.ID = id
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return u, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, u *models.User) error {
	query :=
		`UPDATE users SET name = ?, email = ?, password_digest = ?, remember_token = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING admin
		 `

	ts := now()
	err := r.db.QueryRowContext(ctx, query,
		u.Name, u.Email, u.PasswordDigest, u.RememberToken, ts, u.ID).Scan(&u.Admin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	u.UpdatedAt = ts
	return nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower(?)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteRepository) FindByRememberToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE remember_token = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *SQLiteRepository) ToggleAdmin(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE users SET admin = NOT admin, updated_at = ?
		 WHERE id = ?
		 RETURNING admin
		 `

	var admin bool
	if err := r.db.QueryRowContext(ctx, query, now(), id).Scan(&admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return admin, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}
