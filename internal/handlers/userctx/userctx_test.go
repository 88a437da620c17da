package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/taledynamic/internal/models"
)

func TestUserCtx(t *testing.T) {
	t.Run("user stored", func(t *testing.T) {
		ctx := New(context.Background(), models.User{ID: 7, Email: "a@x.com"})

		u, ok := FromContext(ctx)

		require.True(t, ok)
		require.Equal(t, int64(7), u.ID)
		require.Equal(t, "a@x.com", u.Email)
	})

	t.Run("no user", func(t *testing.T) {
		_, ok := FromContext(context.Background())

		require.False(t, ok)
	})
}
