package model

import "time"

// Account is the credential record behind a profile. Both share the same id.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
