package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/users"
	"github.com/dmitrijs2005/accounts/internal/server/validation"
)

// saveStep is one named stage of the save pipeline. Steps work on a draft
// copy of the record; the caller's record is only replaced after commit.
type saveStep struct {
	name string
	run  func(ctx context.Context, draft *models.User, repo users.Repository) error
}

// steps returns the pipeline in execution order. The remember token is
// assigned before the uniqueness check so every committed row carries one.
func (s *UserService) steps() []saveStep {
	return []saveStep{
		{name: "validate", run: s.validate},
		{name: "digest", run: s.digest},
		{name: "remember_token", run: s.rememberToken},
		{name: "uniqueness", run: s.uniqueness},
		{name: "commit", run: s.commit},
	}
}

// Save validates u and persists it, creating or updating as needed. On
// failure u is left unchanged and the error is a *validation.Error
// (errors.Is common.ErrorValidation), common.ErrMissingPassword, or a
// wrapped common.ErrorStorage. On success the transient password fields are
// cleared.
func (s *UserService) Save(ctx context.Context, u *models.User) error {
	if u.State() == models.Destroyed {
		return common.ErrNotPersisted
	}

	draft := *u
	repo := s.repomanager.Users(s.db)

	for _, step := range s.steps() {
		if err := step.run(ctx, &draft, repo); err != nil {
			s.logger.Debug(ctx, "save stopped", "step", step.name, "error", err)
			return err
		}
	}

	draft.ClearPassword()
	*u = draft
	s.logger.Info(ctx, "user saved", "user_id", u.ID)
	return nil
}

// Valid runs the read-only checks of the pipeline (field validation and
// uniqueness) without hashing or writing anything. A nil result means u
// would save.
func (s *UserService) Valid(ctx context.Context, u *models.User) (validation.Violations, error) {
	vs := validation.Validate(u)

	err := s.uniqueness(ctx, u, s.repomanager.Users(s.db))
	var verr *validation.Error
	switch {
	case err == nil:
	case errors.As(err, &verr):
		vs = append(vs, verr.Violations...)
	default:
		return nil, err
	}

	return vs, nil
}

func (s *UserService) validate(_ context.Context, draft *models.User, _ users.Repository) error {
	if vs := validation.Validate(draft); len(vs) > 0 {
		return validation.NewError(vs)
	}
	return nil
}

func (s *UserService) digest(_ context.Context, draft *models.User, _ users.Repository) error {
	err := s.passwords.PrepareForPersistence(draft)
	if err != nil && !errors.Is(err, common.ErrMissingPassword) {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return err
}

func (s *UserService) rememberToken(_ context.Context, draft *models.User, _ users.Repository) error {
	if err := s.tokens.Assign(draft); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return nil
}

func notUnique() error {
	return validation.NewError(validation.Violations{{Field: validation.FieldEmail, Kind: validation.NotUnique}})
}

// uniqueness is advisory: two concurrent saves can both pass it, and the
// unique index then rejects the second commit.
func (s *UserService) uniqueness(ctx context.Context, draft *models.User, repo users.Repository) error {
	existing, err := repo.FindByEmail(ctx, draft.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.storageFailure(ctx, "uniqueness check", err)
	}
	if existing.ID != draft.ID {
		return notUnique()
	}
	return nil
}

func (s *UserService) commit(ctx context.Context, draft *models.User, repo users.Repository) error {
	var err error
	if draft.ID == "" {
		_, err = repo.Create(ctx, draft)
	} else {
		err = repo.Update(ctx, draft)
	}

	switch {
	case err == nil:
		return nil
	case dbx.IsUniqueViolation(err):
		s.logger.Warn(ctx, "email taken by concurrent save", "email", draft.Email)
		return notUnique()
	case errors.Is(err, common.ErrorNotFound):
		return err
	default:
		return s.storageFailure(ctx, "commit user", err)
	}
}
