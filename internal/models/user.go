package models

import (
	"time"
)

// User is keyed by the identity provider's user id.
type User struct {
	UserID    string    `json:"user_id" db:"user_id"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
