// Package models defines server-side data models persisted in the database.
package models

import "time"

// State is the lifecycle position of a User record.
type State int

const (
	Unpersisted State = iota
	Persisted
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unpersisted:
		return "unpersisted"
	case Persisted:
		return "persisted"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// User is an account identity.
//
// Password and PasswordConfirmation are input-only: repositories never read
// or write them. PasswordDigest is the bcrypt hash that is stored instead.
type User struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Password             string    `json:"-"`
	PasswordConfirmation string    `json:"-"`
	PasswordDigest       string    `json:"-"`
	RememberToken        string    `json:"-"`
	Admin                bool      `json:"admin"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	destroyed bool
}

// State derives the lifecycle position from the record's fields.
func (u *User) State() State {
	switch {
	case u.destroyed:
		return Destroyed
	case u.ID == "":
		return Unpersisted
	default:
		return Persisted
	}
}

// IsPersisted reports whether the record currently exists in storage.
func (u *User) IsPersisted() bool {
	return u.State() == Persisted
}

// MarkDestroyed moves the record to its terminal state.
func (u *User) MarkDestroyed() {
	u.destroyed = true
}

// ClearPassword drops the transient password fields.
func (u *User) ClearPassword() {
	u.Password = ""
	u.PasswordConfirmation = ""
}
