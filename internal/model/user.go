package model

import "time"

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // admin / developer / viewer
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public projection embedded in other responses.
type UserSummary struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.Role}
}
