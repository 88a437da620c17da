package models

import (
	"time"
)

type RefreshToken struct {
	ID              int64
	UserID          int64
	Token           string
	CreatedAt       time.Time
	CreatedByIP     string
	ExpiresAt       time.Time
	RevokedAt       *time.Time // nil if token is not revoked
	RevokedByIP     string
	ReplacedByToken string // empty if token was revoked without rotation
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Active token is neither revoked nor expired
func (t RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Result of successful authentication or token refresh
type AuthResult struct {
	User    User
	Access  IssuedToken
	Refresh IssuedToken
}
