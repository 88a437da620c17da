package models

import (
	"time"
)

type User struct {
	ID           int64
	CreatedAt    time.Time
	IsActive     bool
	Email        string
	PasswordHash string

	// Owned refresh tokens, filled only by operations that load them
	RefreshTokens []RefreshToken
}
