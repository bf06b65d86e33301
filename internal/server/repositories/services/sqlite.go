package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// SQLiteRepository implements Repository over a dbx.DBTX. Timestamps are
// written in UTC so their text form sorts chronologically.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, s *models.Service) (*models.Service, error) {
	query := `INSERT INTO services (user_id, name, created_at) VALUES (?, ?, ?)`

	s.CreatedAt = s.CreatedAt.UTC()
	res, err := r.db.ExecContext(ctx, query, s.UserID, s.Name, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id error: %w", err)
	}
	s.ID = id
	return s, nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`
	return scanService(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select services: %w", err)
	}
	return scanServices(rows)
}

func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete services: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
