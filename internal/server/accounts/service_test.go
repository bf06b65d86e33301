package accounts

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/auth"
	"github.com/dmitrijs2005/accounts/internal/server/config"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accounts/internal/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = ":memory:"
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func openDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	db, err := repomanager.Open(ctx, config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := repomanager.New(config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx, db))
	return db, m
}

func newTestService(t *testing.T) *UserService {
	t.Helper()
	db, m := openDB(t)
	return NewUserService(db, m, testConfig(), logging.Discard())
}

func validUser(email string) *models.User {
	return &models.User{
		Name:                 "Example User",
		Email:                email,
		Password:             "foobar",
		PasswordConfirmation: "foobar",
	}
}

func requireViolation(t *testing.T, err error, field string, kind validation.Kind) {
	t.Helper()
	require.ErrorIs(t, err, common.ErrorValidation)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Violations.Has(field, kind), "want %s %s, got %v", field, kind, verr.Violations)
}

func TestSave_ValidUser(t *testing.T) {
	s := newTestService(t)
	u := validUser("user@example.com")

	require.NoError(t, s.Save(context.Background(), u))

	assert.NotEmpty(t, u.ID)
	assert.NotEmpty(t, u.PasswordDigest)
	assert.NotEmpty(t, u.RememberToken)
	assert.False(t, u.Admin)
	assert.Equal(t, models.Persisted, u.State())
	assert.Empty(t, u.Password)
	assert.Empty(t, u.PasswordConfirmation)
}

func TestSave_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(u *models.User)
		field  string
		kind   validation.Kind
	}{
		{"blank name", func(u *models.User) { u.Name = "   " }, validation.FieldName, validation.Blank},
		{"blank email", func(u *models.User) { u.Email = "" }, validation.FieldEmail, validation.Blank},
		{"name too long", func(u *models.User) { u.Name = strings.Repeat("a", 51) }, validation.FieldName, validation.TooLong},
		{"password too short", func(u *models.User) { u.Password, u.PasswordConfirmation = "aaaaa", "aaaaa" }, validation.FieldPassword, validation.TooShort},
		{"blank password", func(u *models.User) { u.Password, u.PasswordConfirmation = " ", " " }, validation.FieldPassword, validation.Blank},
		{"missing password", func(u *models.User) { u.Password, u.PasswordConfirmation = "", "" }, validation.FieldPassword, validation.Blank},
		{"mismatch", func(u *models.User) { u.PasswordConfirmation = "mismatch" }, validation.FieldPasswordConfirmation, validation.ConfirmationMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t)
			u := validUser("user@example.com")
			tt.mutate(u)
			before := *u

			err := s.Save(context.Background(), u)
			requireViolation(t, err, tt.field, tt.kind)
			assert.Equal(t, before, *u, "failed save must leave the record unchanged")
			assert.Equal(t, models.Unpersisted, u.State())
		})
	}
}

func TestSave_Boundaries(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("six@example.com")
	u.Password, u.PasswordConfirmation = "aaaaaa", "aaaaaa"
	require.NoError(t, s.Save(ctx, u))

	u = validUser("fifty@example.com")
	u.Name = strings.Repeat("a", 50)
	require.NoError(t, s.Save(ctx, u))
}

func TestSave_EmailFormats(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"user@foo,com", "user_at_foo.org", "example.user@foo."} {
		err := s.Save(ctx, validUser(email))
		requireViolation(t, err, validation.FieldEmail, validation.InvalidFormat)
	}
	for _, email := range []string{"user@foo.com", "A_USER@f.b.org", "frst.lst@foo.jp", "a+b@baz.cn"} {
		require.NoError(t, s.Save(ctx, validUser(email)), email)
	}
}

func TestSave_DuplicateEmailDifferentCase(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, validUser("user@example.com")))

	dup := validUser("USER@EXAMPLE.COM")
	err := s.Save(ctx, dup)
	requireViolation(t, err, validation.FieldEmail, validation.NotUnique)
	assert.Empty(t, dup.ID)

	vs, err := s.Valid(ctx, validUser("User@Example.com"))
	require.NoError(t, err)
	assert.True(t, vs.Has(validation.FieldEmail, validation.NotUnique))
}

func TestSave_UpdateKeepsDigestAndToken(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))
	digest, token, id := u.PasswordDigest, u.RememberToken, u.ID

	u.Name = "Renamed"
	require.NoError(t, s.Save(ctx, u), "own email must not count as a duplicate")
	assert.Equal(t, id, u.ID)
	assert.Equal(t, digest, u.PasswordDigest)
	assert.Equal(t, token, u.RememberToken)

	found, err := s.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Name)
}

func TestSave_DestroyedRecord(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))
	require.NoError(t, s.Destroy(ctx, u))

	assert.ErrorIs(t, s.Save(ctx, u), common.ErrNotPersisted)
}

func TestSave_ConcurrentSameEmail(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Save(ctx, validUser("race@example.com"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireViolation(t, err, validation.FieldEmail, validation.NotUnique)
	}
	assert.Equal(t, 1, ok)
}

func TestValid_DoesNotPersist(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	vs, err := s.Valid(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, vs)
	assert.Empty(t, u.PasswordDigest)

	_, err = s.FindByEmail(ctx, "user@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))

	found, err := s.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)

	res := s.AuthenticateUser(found, "foobar")
	require.True(t, res.Ok())
	assert.Equal(t, u.ID, res.User.ID)
	assert.Equal(t, u.Name, res.User.Name)
	assert.Equal(t, u.Email, res.User.Email)
	assert.Equal(t, u.PasswordDigest, res.User.PasswordDigest)
	assert.Equal(t, u.RememberToken, res.User.RememberToken)

	wrong := s.AuthenticateUser(found, "wrong")
	assert.Equal(t, auth.NoMatchResult(), wrong)
	assert.Nil(t, wrong.User)

	res, err = s.Authenticate(ctx, "USER@example.com", "foobar")
	require.NoError(t, err)
	assert.Equal(t, auth.Matched, res.Outcome)

	res, err = s.Authenticate(ctx, "nobody@example.com", "foobar")
	require.NoError(t, err)
	assert.Equal(t, auth.NotFound, res.Outcome)
}

func TestFindByRememberToken(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))

	found, err := s.FindByRememberToken(ctx, u.RememberToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = s.FindByRememberToken(ctx, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.FindByRememberToken(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindOrCreateByEmail(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	attrs := Attributes{Name: "Example", Email: "user@example.com", Password: "foobar", PasswordConfirmation: "foobar"}

	first, err := s.FindOrCreateByEmail(ctx, attrs)
	require.NoError(t, err)

	attrs.Email = "USER@example.com"
	second, err := s.FindOrCreateByEmail(ctx, attrs)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = s.FindOrCreateByEmail(ctx, Attributes{Name: "x", Email: "other@example.com"})
	requireViolation(t, err, validation.FieldPassword, validation.Blank)
}

func TestToggleAdmin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))
	require.False(t, u.Admin)

	require.NoError(t, s.ToggleAdmin(ctx, u))
	assert.True(t, u.Admin)

	found, err := s.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.True(t, found.Admin)

	require.NoError(t, s.ToggleAdmin(ctx, u))
	assert.False(t, u.Admin)

	assert.ErrorIs(t, s.ToggleAdmin(ctx, validUser("new@example.com")), common.ErrNotPersisted)
}

func TestListServices_NewestFirst(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))

	now := time.Now()
	older, err := s.AddService(ctx, u, "older", now.Add(-24*time.Hour))
	require.NoError(t, err)
	newer, err := s.AddService(ctx, u, "newer", now.Add(-time.Hour))
	require.NoError(t, err)

	list, err := s.ListServices(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestAddService_Rules(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, err := s.AddService(ctx, validUser("new@example.com"), "svc", time.Time{})
	assert.ErrorIs(t, err, common.ErrNotPersisted)

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))

	_, err = s.AddService(ctx, u, " ", time.Time{})
	requireViolation(t, err, validation.FieldName, validation.Blank)

	svc, err := s.AddService(ctx, u, "svc", time.Time{})
	require.NoError(t, err)
	found, err := s.FindService(ctx, svc.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(found.CreatedAt))
	assert.Equal(t, u.ID, found.UserID)
}

func TestDestroy_RemovesServices(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u := validUser("user@example.com")
	require.NoError(t, s.Save(ctx, u))
	other := validUser("other@example.com")
	require.NoError(t, s.Save(ctx, other))

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		svc, err := s.AddService(ctx, u, name, time.Time{})
		require.NoError(t, err)
		ids = append(ids, svc.ID)
	}
	kept, err := s.AddService(ctx, other, "kept", time.Time{})
	require.NoError(t, err)

	require.NoError(t, s.Destroy(ctx, u))
	assert.Equal(t, models.Destroyed, u.State())

	for _, id := range ids {
		_, err := s.FindService(ctx, id)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}
	_, err = s.FindService(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = s.FindByEmail(ctx, "user@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, s.Destroy(ctx, u), common.ErrNotPersisted)
	assert.ErrorIs(t, s.ToggleAdmin(ctx, u), common.ErrNotPersisted)
}

func TestStorageFailure_IsLogged(t *testing.T) {
	db, m := openDB(t)
	var buf bytes.Buffer
	s := NewUserService(db, m, testConfig(), logging.New(&buf, "json", "debug"))
	require.NoError(t, db.Close())

	err := s.Save(context.Background(), validUser("user@example.com"))
	require.ErrorIs(t, err, common.ErrorStorage)
	assert.NotErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, buf.String(), "storage failure")
	assert.Contains(t, buf.String(), `"module":"accounts"`)
}
