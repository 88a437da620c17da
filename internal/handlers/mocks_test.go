package handlers

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
	"github.com/nkiryanov/taledynamic/internal/service/user"
	"github.com/nkiryanov/taledynamic/internal/service/workspace"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Authenticate(ctx context.Context, req auth.AuthenticateRequest) (models.AuthResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.AuthResult), args.Error(1)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, token string, ip string) (models.AuthResult, error) {
	args := m.Called(ctx, token, ip)
	return args.Get(0).(models.AuthResult), args.Error(1)
}

func (m *mockAuthService) RevokeToken(ctx context.Context, req auth.RevokeRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockAuthService) IssueAccess(u models.User) (models.IssuedToken, error) {
	args := m.Called(u)
	return args.Get(0).(models.IssuedToken), args.Error(1)
}

func (m *mockAuthService) SetAuth(w http.ResponseWriter, result models.AuthResult, remember bool) {
	m.Called(w, result, remember)
}

func (m *mockAuthService) ClearAuth(w http.ResponseWriter) {
	m.Called(w)
}

func (m *mockAuthService) ReadRefresh(r *http.Request) (string, error) {
	args := m.Called(r)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) IsRemembered(r *http.Request) bool {
	return m.Called(r).Bool(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(ctx context.Context, req user.CreateUserRequest) (models.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, req user.UpdateUserRequest) (models.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockUserService) GetUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockUserService) IsEmailUsed(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type mockWorkspaceService struct {
	mock.Mock
}

func (m *mockWorkspaceService) CreateWorkspace(ctx context.Context, req workspace.CreateWorkspaceRequest) (models.Workspace, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Workspace), args.Error(1)
}

func (m *mockWorkspaceService) GetWorkspaceByID(ctx context.Context, req workspace.GetWorkspaceByIDRequest) (models.Workspace, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Workspace), args.Error(1)
}

func (m *mockWorkspaceService) ListWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Workspace), args.Error(1)
}

func (m *mockWorkspaceService) DeleteWorkspace(ctx context.Context, req workspace.GetWorkspaceByIDRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockHealthService struct {
	mock.Mock
}

func (m *mockHealthService) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
