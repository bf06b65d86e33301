// Package common defines shared sentinel errors and small helpers used across
// the accounts server and CLI. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorStorage  = errors.New("storage failure")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation failed")
	ErrNotPersisted = errors.New("record is not persisted")

	// Password errors.
	ErrMissingPassword = errors.New("missing password")
)
