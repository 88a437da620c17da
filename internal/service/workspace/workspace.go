package workspace

import (
	"context"
	"fmt"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/repository"
	"github.com/nkiryanov/taledynamic/internal/service/crud"
	"github.com/nkiryanov/taledynamic/internal/service/validate"
)

// WorkspaceService gives users access to their own workspaces only
type WorkspaceService struct {
	workspaces *crud.Service[models.Workspace]
	storage    repository.Storage
}

func NewService(storage repository.Storage) *WorkspaceService {
	return &WorkspaceService{
		workspaces: crud.NewService[models.Workspace](storage.Workspace(), repository.ActiveOnly),
		storage:    storage,
	}
}

type CreateWorkspaceRequest struct {
	UserID int64  `json:"-" validate:"gt=0"`
	Name   string `json:"name" validate:"required,max=255"`
}

func (s *WorkspaceService) CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) (models.Workspace, error) {
	if err := validate.Struct(req); err != nil {
		return models.Workspace{}, err
	}

	workspace, err := s.workspaces.Create(ctx, models.Workspace{UserID: req.UserID, IsActive: true, Name: req.Name})
	if err != nil {
		return models.Workspace{}, fmt.Errorf("can't create workspace. Err: %w", err)
	}

	return workspace, nil
}

type GetWorkspaceByIDRequest struct {
	ID     int64 `json:"id" validate:"gt=0"`
	UserID int64 `json:"-" validate:"gt=0"`
}

// GetWorkspaceByID returns active workspace of the user.
// Workspace of another user is reported as apperrors.ErrWorkspaceNotFound.
func (s *WorkspaceService) GetWorkspaceByID(ctx context.Context, req GetWorkspaceByIDRequest) (models.Workspace, error) {
	if err := validate.Struct(req); err != nil {
		return models.Workspace{}, err
	}

	workspace, err := s.workspaces.GetByID(ctx, req.ID)
	if err != nil {
		return models.Workspace{}, err
	}
	if workspace.UserID != req.UserID {
		return models.Workspace{}, apperrors.ErrWorkspaceNotFound
	}

	return workspace, nil
}

func (s *WorkspaceService) ListWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError(map[string]string{"userId": "Value must be greater than 0"})
	}

	return s.storage.Workspace().ListByUser(ctx, userID, repository.ActiveOnly)
}

// DeleteWorkspace removes workspace of the user, archived ones included
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, req GetWorkspaceByIDRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	return s.storage.InTx(ctx, func(st repository.Storage) error {
		workspaces := crud.NewService[models.Workspace](st.Workspace(), repository.IncludeInactive)

		workspace, err := workspaces.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if workspace.UserID != req.UserID {
			return apperrors.ErrWorkspaceNotFound
		}

		return workspaces.Delete(ctx, req.ID)
	})
}
