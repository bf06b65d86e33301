package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

const serviceColumns = `id, user_id, name, created_at`

func scanService(row *sql.Row) (*models.Service, error) {
	s := &models.Service{}
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func scanServices(rows *sql.Rows) ([]*models.Service, error) {
	defer rows.Close()

	var result []*models.Service
	for rows.Next() {
		var item models.Service
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
