package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) IsLoggedIn() bool {
	return m.Called().Bool(0)
}

func (m *mockStore) Remembered() bool {
	return m.Called().Bool(0)
}

func (m *mockStore) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestGuard_BeforeEach(t *testing.T) {
	t.Run("public route allowed", func(t *testing.T) {
		store := &mockStore{}
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/auth")

		require.True(t, d.Allow)
		store.AssertNotCalled(t, "IsLoggedIn")
	})

	t.Run("logged in allowed", func(t *testing.T) {
		store := &mockStore{}
		store.On("IsLoggedIn").Return(true)
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile/settings")

		require.True(t, d.Allow)
		store.AssertNotCalled(t, "Refresh", mock.Anything)
	})

	t.Run("not remembered redirected", func(t *testing.T) {
		store := &mockStore{}
		store.On("IsLoggedIn").Return(false)
		store.On("Remembered").Return(false)
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile/email")

		require.False(t, d.Allow)
		require.NotNil(t, d.Redirect)
		require.Equal(t, RouteAuth, d.Redirect.Name)
		require.Equal(t, "/profile/email", d.Redirect.Query.Get("redirect"))
		store.AssertNotCalled(t, "Refresh", mock.Anything)
	})

	t.Run("remembered and refreshed allowed", func(t *testing.T) {
		store := &mockStore{}
		store.On("IsLoggedIn").Return(false)
		store.On("Remembered").Return(true)
		store.On("Refresh", mock.Anything).Return(nil).Once()
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile")

		require.True(t, d.Allow)
		store.AssertExpectations(t)
	})

	t.Run("remembered but refresh failed redirected", func(t *testing.T) {
		store := &mockStore{}
		store.On("IsLoggedIn").Return(false)
		store.On("Remembered").Return(true)
		store.On("Refresh", mock.Anything).Return(errors.New("rejected")).Once()
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile/password")

		require.False(t, d.Allow)
		require.Equal(t, "/auth?redirect=%2Fprofile%2Fpassword", d.Redirect.String())
		store.AssertExpectations(t)
	})
}
