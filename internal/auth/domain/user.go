package domain

import "time"

type User struct {
	ID           string // ULID
	Email        string // unique, case-insensitive
	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
