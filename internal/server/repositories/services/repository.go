// Package services provides storage for Service records owned by users.
// Listings are ordered most recent first; equal timestamps fall back to the
// higher (later inserted) id so the order is deterministic.
package services

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Service) (*models.Service, error)
	FindByID(ctx context.Context, id int64) (*models.Service, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Service, error)
	// DeleteByUser removes every service of userID and returns the count.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
