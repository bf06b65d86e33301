// Package validation checks User field constraints. Validate is pure: it
// never touches storage, so uniqueness is reported separately by the save
// pipeline using the same Violation type.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// Field names as reported in violations.
const (
	FieldName                 = "name"
	FieldEmail                = "email"
	FieldPassword             = "password"
	FieldPasswordConfirmation = "password_confirmation"
)

// Kind classifies a violation.
type Kind string

const (
	Blank                Kind = "blank"
	TooLong              Kind = "too_long"
	TooShort             Kind = "too_short"
	InvalidFormat        Kind = "invalid_format"
	ConfirmationMismatch Kind = "confirmation_mismatch"
	NotUnique            Kind = "not_unique"
)

const (
	MaxNameLength     = 50
	MinPasswordLength = 6
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// emailPattern accepts ASCII only. SQLite's lower() folds ASCII letters only.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_+\-.]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]+$`)

// Violation is one failed constraint.
type Violation struct {
	Field string
	Kind  Kind
}

func (v Violation) String() string {
	return v.Field + " " + strings.ReplaceAll(string(v.Kind), "_", " ")
}

// Violations is an ordered list; fields appear in declaration order.
type Violations []Violation

// Has reports whether field failed with kind.
func (vs Violations) Has(field string, kind Kind) bool {
	for _, v := range vs {
		if v.Field == field && v.Kind == kind {
			return true
		}
	}
	return false
}

// ValidEmail reports whether s is shaped like local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Validate returns every field violation of u, or nil when u is valid.
//
// A password counts as present when the field is non-empty. It is required
// on records that have no digest yet; on records that do, an empty password
// keeps the existing digest.
func Validate(u *models.User) Violations {
	var vs Violations

	switch {
	case isBlank(u.Name):
		vs = append(vs, Violation{FieldName, Blank})
	case utf8.RuneCountInString(u.Name) > MaxNameLength:
		vs = append(vs, Violation{FieldName, TooLong})
	}

	switch {
	case isBlank(u.Email):
		vs = append(vs, Violation{FieldEmail, Blank})
	case !ValidEmail(u.Email):
		vs = append(vs, Violation{FieldEmail, InvalidFormat})
	}

	if u.Password == "" {
		if u.PasswordDigest == "" {
			vs = append(vs, Violation{FieldPassword, Blank})
		}
		return vs
	}

	switch {
	case isBlank(u.Password):
		vs = append(vs, Violation{FieldPassword, Blank})
	case utf8.RuneCountInString(u.Password) < MinPasswordLength:
		vs = append(vs, Violation{FieldPassword, TooShort})
	case len(u.Password) > MaxPasswordBytes:
		vs = append(vs, Violation{FieldPassword, TooLong})
	}

	switch {
	case u.PasswordConfirmation == "":
		vs = append(vs, Violation{FieldPasswordConfirmation, Blank})
	case u.PasswordConfirmation != u.Password:
		vs = append(vs, Violation{FieldPasswordConfirmation, ConfirmationMismatch})
	}

	return vs
}
