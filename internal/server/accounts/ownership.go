package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/validation"
)

// AddService creates a service owned by u. A zero createdAt means now.
// It returns common.ErrNotPersisted when u no longer exists in storage.
func (s *UserService) AddService(ctx context.Context, u *models.User, name string, createdAt time.Time) (*models.Service, error) {
	if !u.IsPersisted() {
		return nil, common.ErrNotPersisted
	}
	if strings.TrimSpace(name) == "" {
		return nil, validation.NewError(validation.Violations{{Field: validation.FieldName, Kind: validation.Blank}})
	}
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	var svc *models.Service
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// the in-memory record may be stale; the owner must still exist
		if _, err := s.repomanager.Users(tx).FindByID(ctx, u.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNotPersisted
			}
			return err
		}

		var err error
		svc, err = s.repomanager.Services(tx).Create(ctx, &models.Service{UserID: u.ID, Name: name, CreatedAt: createdAt})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotPersisted) {
			return nil, err
		}
		return nil, s.storageFailure(ctx, "create service", err)
	}
	return svc, nil
}

// ListServices returns u's services, most recently created first.
func (s *UserService) ListServices(ctx context.Context, u *models.User) ([]*models.Service, error) {
	if !u.IsPersisted() {
		return nil, common.ErrNotPersisted
	}

	list, err := s.repomanager.Services(s.db).ListByUser(ctx, u.ID)
	if err != nil {
		return nil, s.storageFailure(ctx, "list services", err)
	}
	return list, nil
}

// FindService returns a service by id, or common.ErrorNotFound.
func (s *UserService) FindService(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := s.repomanager.Services(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, s.storageFailure(ctx, "find service", err)
	}
	return svc, nil
}

// Destroy deletes u together with all of its services in one transaction.
// Either both disappear or, on any failure, neither changes.
func (s *UserService) Destroy(ctx context.Context, u *models.User) error {
	if !u.IsPersisted() {
		return common.ErrNotPersisted
	}

	var removed int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Services(tx).DeleteByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		removed = n
		return s.repomanager.Users(tx).Delete(ctx, u.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return s.storageFailure(ctx, "destroy user", err)
	}

	u.MarkDestroyed()
	s.logger.Info(ctx, "user destroyed", "user_id", u.ID, "services", removed)
	return nil
}
