package models

import "time"

// UserStatus marks whether an account is usable.
type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserDeleted UserStatus = "DELETED"
)

type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	UserName     string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
