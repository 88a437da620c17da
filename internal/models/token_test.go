package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshToken_IsActive(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name    string
		token   RefreshToken
		expired bool
		revoked bool
		active  bool
	}{
		{
			name:   "fresh token",
			token:  RefreshToken{ExpiresAt: now.Add(time.Hour)},
			active: true,
		},
		{
			name:    "expired token",
			token:   RefreshToken{ExpiresAt: now.Add(-time.Second)},
			expired: true,
		},
		{
			name:    "expires right now",
			token:   RefreshToken{ExpiresAt: now},
			expired: true,
		},
		{
			name:    "revoked token",
			token:   RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt},
			revoked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expired, tt.token.IsExpired(now))
			require.Equal(t, tt.revoked, tt.token.IsRevoked())
			require.Equal(t, tt.active, tt.token.IsActive(now))
		})
	}
}
