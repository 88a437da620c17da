package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/taledynamic/internal/health"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/repository/postgres"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
	"github.com/nkiryanov/taledynamic/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/taledynamic/internal/service/user"
	"github.com/nkiryanov/taledynamic/internal/service/workspace"
	"github.com/nkiryanov/taledynamic/internal/testutil"
)

type apiClient struct {
	t      *testing.T
	base   string
	client *http.Client
	jwt    string
}

func (c *apiClient) do(method string, path string, body string) (*http.Response, string) {
	c.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}

	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.NoError(c.t, resp.Body.Close())

	return resp, string(data)
}

func (c *apiClient) cookie(name string) string {
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	for _, cookie := range c.client.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func TestRouter_EndToEnd(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Whole stack on a rolled back transaction
	withServer := func(t *testing.T, fn func(c *apiClient)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "e2e-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
			require.NoError(t, err)
			authService, err := auth.NewService(auth.Config{}, tokens, storage)
			require.NoError(t, err)

			router := NewRouter(
				authService,
				user.NewService(user.Config{}, storage),
				workspace.NewService(storage),
				health.NewService(health.NewPostgresChecker(pg.Pool)),
				logger.NewNoOpLogger(),
			)
			srv := httptest.NewServer(router)
			defer srv.Close()

			jar, err := cookiejar.New(nil)
			require.NoError(t, err)

			fn(&apiClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}})
		})
	}

	authenticate := func(c *apiClient, email string, password string) (*http.Response, authResponse) {
		resp, body := c.do(http.MethodPost, "/api/auth/authenticate", `{"email":"`+email+`","password":"`+password+`","remembered":true}`)
		var result authResponse
		if resp.StatusCode == http.StatusOK {
			require.NoError(c.t, json.Unmarshal([]byte(body), &result))
		}
		return resp, result
	}

	t.Run("register and authenticate", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			resp, body := c.do(http.MethodPost, "/api/users", `{"email":"a@x.com","password":"pw1","confirmPassword":"pw1"}`)
			require.Equalf(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

			resp, result := authenticate(c, "a@x.com", "pw1")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.NotEmpty(t, result.JwtToken)
			require.Equal(t, "a@x.com", result.Email)
			require.Equal(t, "Bearer "+result.JwtToken, resp.Header.Get("Authorization"))
			require.NotEmpty(t, c.cookie("refreshtoken"), "refresh token cookie should be set")
			require.Equal(t, c.cookie("refreshtoken"), result.RefreshToken, "body carries the same refresh token")
			require.Equal(t, "1", c.cookie("remembered"))

			resp, _ = authenticate(c, "a@x.com", "wrong")
			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("register twice conflicts", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			payload := `{"email":"a@x.com","password":"pw1","confirmPassword":"pw1"}`
			resp, _ := c.do(http.MethodPost, "/api/users", payload)
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, _ = c.do(http.MethodPost, "/api/users", payload)
			require.Equal(t, http.StatusConflict, resp.StatusCode)

			resp, body := c.do(http.MethodPost, "/api/users/email-used", `{"email":"a@x.com"}`)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.JSONEq(t, `{"used":true}`, body)
		})
	})

	t.Run("refresh rotates and revoke ends session", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			resp, _ := c.do(http.MethodPost, "/api/users", `{"email":"a@x.com","password":"pw1","confirmPassword":"pw1"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_, result := authenticate(c, "a@x.com", "pw1")
			first := c.cookie("refreshtoken")

			resp, body := c.do(http.MethodPost, "/api/auth/refresh", "")
			require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", body)
			second := c.cookie("refreshtoken")
			require.NotEqual(t, first, second, "refresh should rotate token")
			require.Equal(t, "1", c.cookie("remembered"), "remembered flag survives rotation")

			// Rotated token is rejected
			bare := &apiClient{t: t, base: c.base, client: http.DefaultClient}
			resp, _ = bare.do(http.MethodPost, "/api/auth/refresh", `{"token":"`+first+`"}`)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			c.jwt = result.JwtToken
			resp, body = c.do(http.MethodPost, "/api/auth/revoke", "")
			require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", body)
			assert.Empty(t, c.cookie("refreshtoken"), "revoke should clear cookies")

			resp, _ = bare.do(http.MethodPost, "/api/auth/refresh", `{"token":"`+second+`"}`)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	})

	t.Run("workspaces", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			resp, _ := c.do(http.MethodPost, "/api/users", `{"email":"a@x.com","password":"pw1","confirmPassword":"pw1"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_, result := authenticate(c, "a@x.com", "pw1")
			c.jwt = result.JwtToken

			resp, body := c.do(http.MethodPost, "/api/workspaces", `{"name":"novel"}`)
			require.Equalf(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
			var created workspaceResponse
			require.NoError(t, json.Unmarshal([]byte(body), &created))

			resp, body = c.do(http.MethodGet, "/api/workspaces", "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var list []workspaceResponse
			require.NoError(t, json.Unmarshal([]byte(body), &list))
			require.Len(t, list, 1)
			require.Equal(t, "novel", list[0].Name)

			resp, _ = c.do(http.MethodDelete, "/api/workspaces/"+jsonID(created.ID), "")
			require.Equal(t, http.StatusNoContent, resp.StatusCode)

			resp, _ = c.do(http.MethodGet, "/api/workspaces/"+jsonID(created.ID), "")
			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("update email keeps session", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			resp, _ := c.do(http.MethodPost, "/api/users", `{"email":"a@x.com","password":"pw1","confirmPassword":"pw1"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_, result := authenticate(c, "a@x.com", "pw1")
			c.jwt = result.JwtToken

			resp, body := c.do(http.MethodPut, "/api/users/"+jsonID(result.ID), `{"password":"pw2","confirmPassword":"pw2"}`)
			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "password change needs current password. Body: %s", body)

			resp, body = c.do(http.MethodPut, "/api/users/"+jsonID(result.ID), `{"email":"b@x.com","currentPassword":"pw1"}`)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", body)
			var updated authResponse
			require.NoError(t, json.Unmarshal([]byte(body), &updated))
			require.NotEqual(t, result.ID, updated.ID, "user is replaced by new row")
			require.NotEmpty(t, updated.JwtToken)
			require.Equal(t, "Bearer "+updated.JwtToken, resp.Header.Get("Authorization"))

			// Old access token points to removed user
			resp, _ = c.do(http.MethodGet, "/api/users/me", "")
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			c.jwt = updated.JwtToken
			resp, body = c.do(http.MethodGet, "/api/users/me", "")
			require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", body)
			var me userResponse
			require.NoError(t, json.Unmarshal([]byte(body), &me))
			require.Equal(t, updated.ID, me.ID)
			require.Equal(t, "b@x.com", me.Email)

			// Refresh token follows the replaced user
			resp, body = c.do(http.MethodPost, "/api/auth/refresh", "")
			require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", body)
			var refreshed authResponse
			require.NoError(t, json.Unmarshal([]byte(body), &refreshed))
			require.Equal(t, "b@x.com", refreshed.Email)

			resp, _ = authenticate(c, "a@x.com", "pw1")
			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("ready", func(t *testing.T) {
		withServer(t, func(c *apiClient) {
			resp, body := c.do(http.MethodGet, "/ready", "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.JSONEq(t, `{"status":"ready"}`, body)
		})
	})
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
