package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/taledynamic/internal/handlers/middleware"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
	"github.com/nkiryanov/taledynamic/internal/service/user"
	"github.com/nkiryanov/taledynamic/internal/service/workspace"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	workspaceService workspaceService,
	healthService healthService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /authenticate", handleAuthenticate(authService, logger))
	apiauth.Handle("POST /refresh", handleRefresh(authService, logger))
	apiauth.Handle("POST /revoke", withAuth(handleRevoke(authService, logger)))

	apiusers := http.NewServeMux()
	apiusers.Handle("POST /{$}", handleCreateUser(userService, logger))
	apiusers.Handle("POST /email-used", handleIsEmailUsed(userService, logger))
	apiusers.Handle("GET /{$}", withAuth(handleListUsers(userService, logger)))
	apiusers.Handle("GET /me", withAuth(handleUserMe()))
	apiusers.Handle("GET /{id}", withAuth(handleGetUser(userService, logger)))
	apiusers.Handle("PUT /{id}", withAuth(handleUpdateUser(userService, authService, logger)))
	apiusers.Handle("DELETE /{id}", withAuth(handleDeleteUser(userService, logger)))

	apiworkspaces := http.NewServeMux()
	apiworkspaces.Handle("POST /{$}", withAuth(handleCreateWorkspace(workspaceService, logger)))
	apiworkspaces.Handle("GET /{$}", withAuth(handleListWorkspaces(workspaceService, logger)))
	apiworkspaces.Handle("GET /{id}", withAuth(handleGetWorkspace(workspaceService, logger)))
	apiworkspaces.Handle("DELETE /{id}", withAuth(handleDeleteWorkspace(workspaceService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))
	root.Handle("/api/users", http.StripPrefix("/api/users", ensureSlash(apiusers)))
	root.Handle("/api/users/", http.StripPrefix("/api/users", apiusers))
	root.Handle("/api/workspaces", http.StripPrefix("/api/workspaces", ensureSlash(apiworkspaces)))
	root.Handle("/api/workspaces/", http.StripPrefix("/api/workspaces", apiworkspaces))
	root.Handle("GET /health", handleHealth())
	root.Handle("GET /ready", handleReady(healthService, logger))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

// ensureSlash serves collection path without trailing slash as "/"
func ensureSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" {
			r.URL.Path = "/"
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

type authService interface {
	// Has to return apperrors.ErrUserNotFound if credentials do not match active user
	Authenticate(ctx context.Context, req auth.AuthenticateRequest) (models.AuthResult, error)

	// If token revoked, expired or unknown: has to return apperrors.ErrRefreshTokenNotFound
	RefreshToken(ctx context.Context, token string, ip string) (models.AuthResult, error)

	RevokeToken(ctx context.Context, req auth.RevokeRequest) error

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)

	// New access token for user whose ID changed
	IssueAccess(user models.User) (models.IssuedToken, error)

	// Set auth tokens (access, refresh) to response
	// Refresh cookie is left as is when result has no refresh token
	SetAuth(w http.ResponseWriter, result models.AuthResult, remember bool)
	ClearAuth(w http.ResponseWriter)

	// Get refresh token from request
	ReadRefresh(r *http.Request) (string, error)
	IsRemembered(r *http.Request) bool
}

type userService interface {
	CreateUser(ctx context.Context, req user.CreateUserRequest) (models.User, error)
	UpdateUser(ctx context.Context, req user.UpdateUserRequest) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	IsEmailUsed(ctx context.Context, email string) (bool, error)
}

type workspaceService interface {
	CreateWorkspace(ctx context.Context, req workspace.CreateWorkspaceRequest) (models.Workspace, error)
	GetWorkspaceByID(ctx context.Context, req workspace.GetWorkspaceByIDRequest) (models.Workspace, error)
	ListWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error)
	DeleteWorkspace(ctx context.Context, req workspace.GetWorkspaceByIDRequest) error
}

type healthService interface {
	Ready(ctx context.Context) error
}
