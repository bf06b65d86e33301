// Package auth holds the credential primitives of a User record: bcrypt
// password digests and remember tokens.
package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

// Outcome is the discriminant of an AuthResult.
type Outcome int

const (
	// NotFound: no record exists for the given identity.
	NotFound Outcome = iota
	// NoMatch: the record exists but the password is wrong.
	NoMatch
	// Matched: the password is correct; User is set.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NoMatch:
		return "no match"
	default:
		return "not found"
	}
}

// AuthResult is the outcome of an authentication attempt. User is non-nil
// only when Outcome is Matched.
type AuthResult struct {
	Outcome Outcome
	User    *models.User
}

// Ok reports whether the attempt succeeded.
func (r AuthResult) Ok() bool {
	return r.Outcome == Matched && r.User != nil
}

var (
	noMatchResult  = AuthResult{Outcome: NoMatch}
	notFoundResult = AuthResult{Outcome: NotFound}
)

// NoMatchResult is returned for a wrong password.
func NoMatchResult() AuthResult { return noMatchResult }

// NotFoundResult is returned when no record exists.
func NotFoundResult() AuthResult { return notFoundResult }

// PasswordAuthenticator computes and verifies bcrypt password digests.
// It holds no mutable state and is safe for concurrent use.
type PasswordAuthenticator struct {
	cost int
}

// NewPasswordAuthenticator returns an authenticator hashing with cost.
// Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewPasswordAuthenticator(cost int) *PasswordAuthenticator {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordAuthenticator{cost: cost}
}

// PrepareForPersistence replaces u.PasswordDigest with a digest of
// u.Password when a password was supplied. A blank password is only allowed
// when the record already has a digest.
func (a *PasswordAuthenticator) PrepareForPersistence(u *models.User) error {
	if strings.TrimSpace(u.Password) == "" {
		if u.PasswordDigest == "" {
			return common.ErrMissingPassword
		}
		return nil
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(u.Password), a.cost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	u.PasswordDigest = string(digest)
	return nil
}

// Authenticate checks candidate against u's stored digest. It never fails
// with an error: a record without a digest simply does not match.
func (a *PasswordAuthenticator) Authenticate(u *models.User, candidate string) AuthResult {
	if u == nil {
		return NotFoundResult()
	}
	if u.PasswordDigest == "" {
		return NoMatchResult()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordDigest), []byte(candidate)); err != nil {
		return NoMatchResult()
	}
	return AuthResult{Outcome: Matched, User: u}
}
