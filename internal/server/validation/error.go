package validation

import (
	"strings"

	"github.com/dmitrijs2005/accounts/internal/common"
)

// Error carries the violations that stopped a save. It matches
// common.ErrorValidation under errors.Is.
type Error struct {
	Violations Violations
}

func NewError(vs Violations) *Error {
	return &Error{Violations: vs}
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return common.ErrorValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *Error) Is(target error) bool {
	return target == common.ErrorValidation
}
