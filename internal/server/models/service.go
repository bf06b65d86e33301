package models

import "time"

// Service is a record owned by exactly one User. It does not outlive its
// owner.
type Service struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
