package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/repository"
	"github.com/nkiryanov/taledynamic/internal/service/validate"
)

const (
	defaultAccessHeaderName     = "Authorization"
	defaultAccessAuthScheme     = "Bearer"
	defaultRefreshCookieName    = "refreshtoken"
	defaultRememberedCookieName = "remembered"

	// Upper bound for walking rotation chain, protects from cycles in corrupted data
	maxChainLength = 1000

	// Hashed once and compared against when email is unknown
	dummyPassword = "taledynamic-dummy-password"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Interface to mint and parse tokens
type TokenManager interface {
	IssueAccess(user models.User) (models.IssuedToken, error)
	NewRefresh(userID int64, ip string) (models.RefreshToken, error)
	ParseAccess(access string) (userID int64, err error)
}

type Config struct {
	// Hasher to compare user passwords on authentication
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Where access token is sent: "Authorization: Bearer <token>" by default
	AccessHeaderName string
	AccessAuthScheme string

	// Cookie names for refresh token and 'remember me' flag
	RefreshCookieName    string
	RememberedCookieName string

	// Revoke every descendant token when already rotated token is presented again
	RevokeChainOnReuse bool

	Logger logger.Logger
}

type AuthService struct {
	accessHeaderName     string
	accessAuthScheme     string
	refreshCookieName    string
	rememberedCookieName string

	revokeChainOnReuse bool

	hasher  PasswordHasher
	tokens  TokenManager
	storage repository.Storage
	logger  logger.Logger

	dummyOnce sync.Once
	dummyHash string

	now func() time.Time
}

func NewService(cfg Config, tokens TokenManager, storage repository.Storage) (*AuthService, error) {
	if tokens == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefault(&cfg.RememberedCookieName, defaultRememberedCookieName)

	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &AuthService{
		accessHeaderName:     cfg.AccessHeaderName,
		accessAuthScheme:     cfg.AccessAuthScheme,
		refreshCookieName:    cfg.RefreshCookieName,
		rememberedCookieName: cfg.RememberedCookieName,
		revokeChainOnReuse:   cfg.RevokeChainOnReuse,
		hasher:               cfg.Hasher,
		tokens:               tokens,
		storage:              storage,
		logger:               cfg.Logger,
		now:                  time.Now,
	}, nil
}

type AuthenticateRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// Authenticate checks credentials of active user and issues new token pair.
// Unknown email and wrong password are both reported as apperrors.ErrUserNotFound.
func (s *AuthService) Authenticate(ctx context.Context, req AuthenticateRequest) (models.AuthResult, error) {
	if err := validate.Struct(req); err != nil {
		return models.AuthResult{}, err
	}

	user, err := s.storage.User().GetByEmail(ctx, req.Email, repository.ActiveOnly)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Unknown email costs the same hash comparison as wrong password
			_ = s.hasher.Compare(s.dummy(), req.Password)
		}
		return models.AuthResult{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return models.AuthResult{}, apperrors.ErrUserNotFound
	}

	refresh, err := s.tokens.NewRefresh(user.ID, req.IP)
	if err != nil {
		return models.AuthResult{}, err
	}
	refresh, err = s.storage.Refresh().Save(ctx, refresh)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return models.AuthResult{}, err
	}

	return newResult(user, access, refresh), nil
}

// RefreshToken exchanges active refresh token for a new pair.
// Presented token is revoked and linked to its replacement.
// Revoked or expired token fails with apperrors.ErrRefreshTokenNotFound and nothing is changed.
func (s *AuthService) RefreshToken(ctx context.Context, token string, ip string) (models.AuthResult, error) {
	if token == "" {
		return models.AuthResult{}, apperrors.ErrRefreshTokenNotFound
	}

	var (
		result   models.AuthResult
		reuseErr error
	)

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		current, err := st.Refresh().GetForUpdate(ctx, token)
		if err != nil {
			return err
		}

		now := s.now()
		if !current.IsActive(now) {
			inactiveErr := inactiveTokenError(current, now)
			if !current.IsRevoked() || current.ReplacedByToken == "" {
				return inactiveErr
			}

			s.logger.Warn("rotated refresh token presented again",
				"user_id", current.UserID,
				"token_id", current.ID,
				"ip", ip,
			)
			if !s.revokeChainOnReuse {
				return inactiveErr
			}

			// Chain revocation must be committed, so the error is returned after the transaction
			reuseErr = inactiveErr
			return s.revokeChain(ctx, st, current.ReplacedByToken, now, ip)
		}

		user, err := st.User().GetByID(ctx, current.UserID, repository.ActiveOnly)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenNotFound, err)
			}
			return err
		}

		next, err := s.tokens.NewRefresh(user.ID, ip)
		if err != nil {
			return err
		}
		if _, err := st.Refresh().Revoke(ctx, current.Token, now, ip, next.Token); err != nil {
			return err
		}
		next, err = st.Refresh().Save(ctx, next)
		if err != nil {
			return fmt.Errorf("error while saving refresh token. Err: %w", err)
		}

		access, err := s.tokens.IssueAccess(user)
		if err != nil {
			return err
		}

		result = newResult(user, access, next)
		return nil
	})
	if err != nil {
		return models.AuthResult{}, err
	}
	if reuseErr != nil {
		return models.AuthResult{}, reuseErr
	}

	return result, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("can't hash dummy password", "error", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// revokeChain revokes every still active token following the rotation chain starting from token
func (s *AuthService) revokeChain(ctx context.Context, st repository.Storage, token string, now time.Time, ip string) error {
	for range maxChainLength {
		if token == "" {
			return nil
		}

		t, err := st.Refresh().GetForUpdate(ctx, token)
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if !t.IsRevoked() {
			if _, err := st.Refresh().Revoke(ctx, t.Token, now, ip, ""); err != nil {
				return err
			}
			s.logger.Warn("refresh token revoked as descendant of reused one", "user_id", t.UserID, "token_id", t.ID)
		}

		token = t.ReplacedByToken
	}

	return fmt.Errorf("refresh token chain is longer than %d", maxChainLength)
}

type RevokeRequest struct {
	Token  string `json:"token" validate:"required"`
	IP     string `json:"-"`
	UserID int64  `json:"-"`
}

// RevokeToken revokes active refresh token owned by the user without replacement.
// Tokens of other users are reported as not found.
func (s *AuthService) RevokeToken(ctx context.Context, req RevokeRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	return s.storage.InTx(ctx, func(st repository.Storage) error {
		current, err := st.Refresh().GetForUpdate(ctx, req.Token)
		if err != nil {
			return err
		}

		if current.UserID != req.UserID {
			return apperrors.ErrRefreshTokenNotFound
		}

		now := s.now()
		if !current.IsActive(now) {
			return inactiveTokenError(current, now)
		}

		_, err = st.Refresh().Revoke(ctx, current.Token, now, req.IP, "")
		return err
	})
}

// IssueAccess signs new access token for already authenticated user,
// e.g. when user is replaced by a row with new ID
func (s *AuthService) IssueAccess(user models.User) (models.IssuedToken, error) {
	return s.tokens.IssueAccess(user)
}

// Auth returns active user authenticated by access token in request header
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, access, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || access == "" {
		return models.User{}, errors.New("access token not found in request")
	}

	userID, err := s.tokens.ParseAccess(access)
	if err != nil {
		return models.User{}, err
	}

	return s.storage.User().GetByID(ctx, userID, repository.ActiveOnly)
}

// SetAuth writes access token to header and refresh token, if any, to HttpOnly cookie.
// 'remembered' cookie is readable by frontend and lets it refresh session after reload.
func (s *AuthService) SetAuth(w http.ResponseWriter, result models.AuthResult, remember bool) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+result.Access.Value)

	// Access only result, current refresh cookie stays valid
	if result.Refresh.Value == "" {
		return
	}

	maxAge := int(result.Refresh.ExpiresAt.Sub(s.now()).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    result.Refresh.Value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	if remember {
		http.SetCookie(w, &http.Cookie{
			Name:     s.rememberedCookieName,
			Value:    "1",
			Path:     "/",
			MaxAge:   maxAge,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// ClearAuth asks client to drop refresh and 'remembered' cookies
func (s *AuthService) ClearAuth(w http.ResponseWriter) {
	for _, name := range []string{s.refreshCookieName, s.rememberedCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// ReadRefresh returns refresh token from request cookie
func (s *AuthService) ReadRefresh(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrRefreshTokenNotFound
	}
	return cookie.Value, nil
}

// IsRemembered reports whether request carries 'remembered' cookie
func (s *AuthService) IsRemembered(r *http.Request) bool {
	cookie, err := r.Cookie(s.rememberedCookieName)
	return err == nil && cookie.Value == "1"
}

func inactiveTokenError(t models.RefreshToken, now time.Time) error {
	if t.IsRevoked() {
		return fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenNotFound, apperrors.ErrRefreshTokenRevoked)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenNotFound, apperrors.ErrRefreshTokenExpired)
}

func newResult(user models.User, access models.IssuedToken, refresh models.RefreshToken) models.AuthResult {
	return models.AuthResult{
		User:    user,
		Access:  access,
		Refresh: models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt},
	}
}
