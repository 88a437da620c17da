package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/nkiryanov/taledynamic/internal/logger"
)

const (
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not-found"
	CodeUnknown      = "unknown"
)

const (
	requestTimeout       = 5 * time.Second
	rememberedCookieName = "remembered"
)

type ClientError struct {
	Code       string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("code: %s, status: %d, error: %v", e.Code, e.StatusCode, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func NewClientError(code string, status int, err error) *ClientError {
	return &ClientError{Code: code, StatusCode: status, Err: err}
}

// ErrorCode returns code of ClientError or CodeUnknown
func ErrorCode(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Code
	}
	return CodeUnknown
}

// Authenticated session as returned by the API
type Session struct {
	UserID       int64     `json:"id"`
	Email        string    `json:"email"`
	JwtToken     string    `json:"jwtToken"`
	JwtExpiresAt time.Time `json:"jwtExpiresAt"`
}

// Client talks to the auth API like a browser does: cookies set by the server
// (refresh token, 'remembered' flag) are kept in the jar and sent back.
type Client struct {
	BaseURL string

	base   *url.URL
	client *http.Client
	logger logger.Logger
}

func NewClient(baseURL string, l logger.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		BaseURL: baseURL,
		base:    base,
		client:  &http.Client{Jar: jar},
		logger:  l,
	}, nil
}

func (c *Client) Authenticate(ctx context.Context, email string, password string, remembered bool) (Session, error) {
	payload := map[string]any{
		"email":      email,
		"password":   password,
		"remembered": remembered,
	}
	return c.authRequest(ctx, "/api/auth/authenticate", payload, "")
}

// Refresh rotates refresh token kept in the cookie jar
func (c *Client) Refresh(ctx context.Context) (Session, error) {
	return c.authRequest(ctx, "/api/auth/refresh", nil, "")
}

func (c *Client) Revoke(ctx context.Context, jwt string) error {
	_, err := c.do(ctx, "/api/auth/revoke", nil, jwt)
	return err
}

// Remembered reports whether the server set 'remembered' cookie
func (c *Client) Remembered() bool {
	for _, cookie := range c.client.Jar.Cookies(c.base) {
		if cookie.Name == rememberedCookieName {
			return cookie.Value == "1"
		}
	}
	return false
}

func (c *Client) authRequest(ctx context.Context, path string, payload any, jwt string) (Session, error) {
	var s Session

	data, err := c.do(ctx, path, payload, jwt)
	if err != nil {
		return s, err
	}

	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn("Failed to decode response", "path", path, "error", err)
		return s, NewClientError(CodeUnknown, http.StatusOK, fmt.Errorf("failed to decode response: %w", err))
	}
	return s, nil
}

// do sends POST request and returns body of 200 response, any other status is an error
func (c *Client) do(ctx context.Context, path string, payload any, jwt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, NewClientError(CodeUnknown, 0, fmt.Errorf("failed to encode request: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), &body)
	if err != nil {
		return nil, NewClientError(CodeUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewClientError(CodeUnknown, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewClientError(CodeUnknown, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
		}
		return data, nil
	case http.StatusUnauthorized:
		return nil, NewClientError(CodeUnauthorized, resp.StatusCode, fmt.Errorf("%s rejected", path))
	case http.StatusNotFound:
		return nil, NewClientError(CodeNotFound, resp.StatusCode, fmt.Errorf("%s: not found", path))
	default:
		c.logger.Warn("Unexpected auth API response", "path", path, "status_code", resp.StatusCode)
		return nil, NewClientError(CodeUnknown, resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}
}
