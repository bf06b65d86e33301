// Package accounts contains the business logic of user accounts: the save
// pipeline, password authentication, admin toggling, and ownership of
// Service records including their cascade deletion.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/auth"
	"github.com/dmitrijs2005/accounts/internal/server/config"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accounts/internal/server/validation"
)

// Attributes are the user-supplied fields of a new account.
type Attributes struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// User builds an unpersisted record from a.
func (a Attributes) User() *models.User {
	return &models.User{
		Name:                 a.Name,
		Email:                a.Email,
		Password:             a.Password,
		PasswordConfirmation: a.PasswordConfirmation,
	}
}

// UserService provides account operations:
//   - Save / Valid: the validation and persistence pipeline
//   - Authenticate: password checks that never fail with an error
//   - ToggleAdmin, Destroy: state changes of persisted users
//   - AddService, ListServices, FindService: owned services
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   *auth.PasswordAuthenticator
	tokens      *auth.RememberTokenGenerator
	logger      logging.Logger
	now         func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		passwords:   auth.NewPasswordAuthenticator(cfg.BcryptCost),
		tokens:      auth.NewRememberTokenGenerator(cfg.RememberTokenSize),
		logger:      l.With("module", "accounts"),
		now:         time.Now,
	}
}

// storageFailure logs err and wraps it with common.ErrorStorage.
func (s *UserService) storageFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "storage failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", common.ErrorStorage, op, err)
}

// FindByEmail returns the user whose email matches case-insensitively, or
// common.ErrorNotFound.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, s.storageFailure(ctx, "find user by email", err)
	}
	return u, nil
}

// FindByRememberToken resolves a returning session to its user, or
// common.ErrorNotFound. Blank tokens never match.
func (s *UserService) FindByRememberToken(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.ErrorNotFound
	}
	u, err := s.repomanager.Users(s.db).FindByRememberToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, s.storageFailure(ctx, "find user by remember token", err)
	}
	return u, nil
}

// FindOrCreateByEmail returns the existing user with attrs.Email or creates
// one from attrs. Repeated calls return the same account, including when a
// concurrent caller wins the insert.
func (s *UserService) FindOrCreateByEmail(ctx context.Context, attrs Attributes) (*models.User, error) {
	existing, err := s.FindByEmail(ctx, attrs.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	u := attrs.User()
	if err := s.Save(ctx, u); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) && verr.Violations.Has(validation.FieldEmail, validation.NotUnique) {
			if winner, ferr := s.FindByEmail(ctx, attrs.Email); ferr == nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return u, nil
}

// Authenticate looks the user up by email and checks candidate. Only
// storage failures produce an error; unknown emails and wrong passwords are
// reported through the result's Outcome.
func (s *UserService) Authenticate(ctx context.Context, email, candidate string) (auth.AuthResult, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.NotFoundResult(), nil
		}
		return auth.AuthResult{}, err
	}
	return s.AuthenticateUser(u, candidate), nil
}

// AuthenticateUser checks candidate against an already loaded record.
func (s *UserService) AuthenticateUser(u *models.User, candidate string) auth.AuthResult {
	return s.passwords.Authenticate(u, candidate)
}

// ToggleAdmin flips the admin flag of a persisted user.
func (s *UserService) ToggleAdmin(ctx context.Context, u *models.User) error {
	if !u.IsPersisted() {
		return common.ErrNotPersisted
	}

	admin, err := s.repomanager.Users(s.db).ToggleAdmin(ctx, u.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return s.storageFailure(ctx, "toggle admin", err)
	}

	u.Admin = admin
	s.logger.Info(ctx, "admin toggled", "user_id", u.ID, "admin", admin)
	return nil
}
