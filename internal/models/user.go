package models

import (
	"time"
)

// User represents a registered account. AccountID is the login handle chosen
// at registration and never changes; Email is unique across all accounts.
type User struct {
	ID        int64     `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Email     string    `json:"email" db:"email"`
	Nickname  string    `json:"nickname" db:"nickname"`
	Password  string    `json:"-" db:"password"` // bcrypt hash, never sent to client
	ImagePath string    `json:"image_path,omitempty" db:"image_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasProfileImage returns true if the user has uploaded a profile image.
func (u *User) HasProfileImage() bool {
	return u.ImagePath != ""
}
