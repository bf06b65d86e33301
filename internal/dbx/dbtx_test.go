package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/accounts/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const ownerID = "owner-1"

// setupDB migrates an in-memory database and seeds one user owning two
// services.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(ctx, db, migrations.SQLiteDir))

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_digest, remember_token, created_at, updated_at)
		 VALUES (?, 'Owner', 'owner@example.com', 'digest', 'token', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, ownerID)
	require.NoError(t, err)
	for _, name := range []string{"mail", "calendar"} {
		_, err = db.ExecContext(ctx,
			`INSERT INTO services (user_id, name, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, ownerID, name)
		require.NoError(t, err)
	}
	return db
}

func countServices(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM services WHERE user_id = ?`, ownerID).Scan(&n))
	return n
}

func countUsers(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, ownerID).Scan(&n))
	return n
}

// cascade deletes the owner's services and then the owner.
func cascade(ctx context.Context, tx DBTX) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM services WHERE user_id = ?`, ownerID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, ownerID)
	return err
}

func TestWithTx_CommitsCascade(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, WithTx(context.Background(), db, nil, cascade))

	assert.Equal(t, 0, countServices(t, db))
	assert.Equal(t, 0, countUsers(t, db))
}

func TestWithTx_RollsBackCascadeOnError(t *testing.T) {
	db := setupDB(t)
	errOwner := errors.New("owner delete failed")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `DELETE FROM services WHERE user_id = ?`, ownerID)
		require.NoError(t, e)
		return errOwner
	})
	require.ErrorIs(t, err, errOwner, "fn error is kept matchable")

	assert.Equal(t, 2, countServices(t, db), "services must come back")
	assert.Equal(t, 1, countUsers(t, db))
}

func TestWithTx_RollsBackWhenOwnerStillReferenced(t *testing.T) {
	db := setupDB(t)

	// deleting the owner first violates the services foreign key
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, ownerID)
		return e
	})
	require.Error(t, err)

	assert.Equal(t, 2, countServices(t, db))
	assert.Equal(t, 1, countUsers(t, db))
}

func TestWithTx_RollsBackCascadeOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 2, countServices(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `DELETE FROM services WHERE user_id = ?`, ownerID)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, cascade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}
