package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/taledynamic/internal/models"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func createTestUser(t *testing.T, db DBTX, email string) models.User {
	t.Helper()

	repo := UserRepo{DB: db}
	user, err := repo.Create(context.Background(), models.User{
		IsActive:     true,
		Email:        email,
		PasswordHash: "hashed_password",
	})
	require.NoError(t, err, "test user should be created")

	return user
}
