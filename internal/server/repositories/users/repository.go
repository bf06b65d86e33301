// Package users provides storage for User records. Email lookups are
// case-insensitive and both backends carry a unique index on lower(email),
// so a racing duplicate insert fails with a unique violation (see
// dbx.IsUniqueViolation).
package users

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type Repository interface {
	// Create inserts u and fills in ID and timestamps.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	// Update writes name, email, digest and token of an existing row and
	// refreshes u.Admin from storage. Admin is only changed by ToggleAdmin.
	Update(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRememberToken(ctx context.Context, token string) (*models.User, error)
	// ToggleAdmin flips the admin flag and returns its new value.
	ToggleAdmin(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}
