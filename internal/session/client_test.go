package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fake auth API that issues refresh cookies the way the server does
type fakeAPI struct {
	mu      sync.Mutex
	current string // active refresh token
	issued  int
	revoked bool
}

func (f *fakeAPI) issue(w http.ResponseWriter, remembered bool) {
	f.issued++
	f.current = "refresh-" + strconv.Itoa(f.issued)
	http.SetCookie(w, &http.Cookie{Name: "refreshtoken", Value: f.current, Path: "/", HttpOnly: true, MaxAge: 3600})
	if remembered {
		http.SetCookie(w, &http.Cookie{Name: "remembered", Value: "1", Path: "/", MaxAge: 3600})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "email": "a@x.com", "jwtToken": "jwt-" + f.current})
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/authenticate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var req struct {
			Email      string `json:"email"`
			Password   string `json:"password"`
			Remembered bool   `json:"remembered"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@x.com" || req.Password != "pw1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.issue(w, req.Remembered)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		cookie, err := r.Cookie("refreshtoken")
		if err != nil || cookie.Value != f.current || f.revoked {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, errNotRemembered := r.Cookie("remembered")
		f.issue(w, errNotRemembered == nil)
	})
	mux.HandleFunc("POST /api/auth/revoke", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer jwt-"+f.current {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.revoked = true
		http.SetCookie(w, &http.Cookie{Name: "refreshtoken", Path: "/", MaxAge: -1})
		http.SetCookie(w, &http.Cookie{Name: "remembered", Path: "/", MaxAge: -1})
		_, _ = w.Write([]byte(`{"message":"Token revoked"}`))
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	return c, api
}

func TestClient(t *testing.T) {
	t.Run("authenticate", func(t *testing.T) {
		c, _ := newTestClient(t)

		s, err := c.Authenticate(t.Context(), "a@x.com", "pw1", true)

		require.NoError(t, err)
		require.Equal(t, int64(1), s.UserID)
		require.Equal(t, "jwt-refresh-1", s.JwtToken)
		require.True(t, c.Remembered())
	})

	t.Run("authenticate not remembered", func(t *testing.T) {
		c, _ := newTestClient(t)

		_, err := c.Authenticate(t.Context(), "a@x.com", "pw1", false)

		require.NoError(t, err)
		require.False(t, c.Remembered())
	})

	t.Run("authenticate wrong password", func(t *testing.T) {
		c, _ := newTestClient(t)

		_, err := c.Authenticate(t.Context(), "a@x.com", "wrong", true)

		require.Error(t, err)
		require.Equal(t, CodeNotFound, ErrorCode(err))
	})

	t.Run("refresh uses cookie", func(t *testing.T) {
		c, _ := newTestClient(t)
		_, err := c.Authenticate(t.Context(), "a@x.com", "pw1", true)
		require.NoError(t, err)

		s, err := c.Refresh(t.Context())

		require.NoError(t, err)
		require.Equal(t, "jwt-refresh-2", s.JwtToken)
	})

	t.Run("refresh without cookie", func(t *testing.T) {
		c, _ := newTestClient(t)

		_, err := c.Refresh(t.Context())

		require.Equal(t, CodeUnauthorized, ErrorCode(err))
	})

	t.Run("revoke clears cookies", func(t *testing.T) {
		c, _ := newTestClient(t)
		s, err := c.Authenticate(t.Context(), "a@x.com", "pw1", true)
		require.NoError(t, err)

		err = c.Revoke(t.Context(), s.JwtToken)

		require.NoError(t, err)
		require.False(t, c.Remembered())
		_, err = c.Refresh(t.Context())
		require.Equal(t, CodeUnauthorized, ErrorCode(err))
	})
}

func TestStore(t *testing.T) {
	t.Run("login and logout", func(t *testing.T) {
		c, _ := newTestClient(t)
		store := NewStore(c, nil)

		err := store.Login(t.Context(), "a@x.com", "pw1", true)
		require.NoError(t, err)
		require.True(t, store.IsLoggedIn())
		require.True(t, store.Remembered())

		err = store.Logout(t.Context())
		require.NoError(t, err)
		require.False(t, store.IsLoggedIn())
		require.False(t, store.Remembered())
	})

	t.Run("failed login keeps logged out", func(t *testing.T) {
		c, _ := newTestClient(t)
		store := NewStore(c, nil)

		err := store.Login(t.Context(), "a@x.com", "wrong", false)

		require.Error(t, err)
		require.False(t, store.IsLoggedIn())
	})

	t.Run("logout without session", func(t *testing.T) {
		c, _ := newTestClient(t)
		store := NewStore(c, nil)

		require.NoError(t, store.Logout(t.Context()))
	})

	t.Run("guard restores remembered session", func(t *testing.T) {
		c, _ := newTestClient(t)
		_, err := c.Authenticate(t.Context(), "a@x.com", "pw1", true)
		require.NoError(t, err)

		// Fresh store emulates reloaded page: cookies survive, memory does not
		store := NewStore(c, nil)
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile/settings")

		require.True(t, d.Allow)
		require.True(t, store.IsLoggedIn())
		s, _ := store.Session()
		require.Equal(t, "jwt-refresh-2", s.JwtToken)
	})

	t.Run("guard redirects when refresh rejected", func(t *testing.T) {
		c, api := newTestClient(t)
		_, err := c.Authenticate(t.Context(), "a@x.com", "pw1", true)
		require.NoError(t, err)
		api.mu.Lock()
		api.current = "rotated-elsewhere"
		api.mu.Unlock()

		store := NewStore(c, nil)
		g := NewGuard(store, nil)

		d := g.BeforeEach(t.Context(), "/profile")

		require.False(t, d.Allow)
		require.Equal(t, "/auth?redirect=%2Fprofile", d.Redirect.String())
		require.False(t, store.IsLoggedIn())
	})
}
