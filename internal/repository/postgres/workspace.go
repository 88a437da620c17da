package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/repository"
)

type WorkspaceRepo struct {
	DB DBTX
}

const createWorkspace = `-- name: CreateWorkspace
INSERT INTO workspaces (user_id, created_at, is_active, name)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, created_at, is_active, name
`

func (r *WorkspaceRepo) Create(ctx context.Context, w models.Workspace) (models.Workspace, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createWorkspace, w.UserID, w.CreatedAt, w.IsActive, w.Name)
	workspace, err := pgx.CollectOneRow(rows, rowToWorkspace)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return workspace, apperrors.ErrUserNotFound
		}
		return workspace, fmt.Errorf("db error: %w", err)
	}

	return workspace, nil
}

const getWorkspaceByID = `-- name: GetWorkspaceByID
SELECT id, user_id, created_at, is_active, name FROM workspaces
WHERE id = $1 AND (is_active OR $2)
`

func (r *WorkspaceRepo) GetByID(ctx context.Context, id int64, scope repository.Scope) (models.Workspace, error) {
	rows, _ := r.DB.Query(ctx, getWorkspaceByID, id, includeInactive(scope))
	workspace, err := pgx.CollectOneRow(rows, rowToWorkspace)

	switch {
	case err == nil:
		return workspace, nil
	case errors.Is(err, pgx.ErrNoRows):
		return workspace, apperrors.ErrWorkspaceNotFound
	default:
		return workspace, fmt.Errorf("db error: %w", err)
	}
}

const listWorkspaces = `-- name: ListWorkspaces
SELECT id, user_id, created_at, is_active, name FROM workspaces
WHERE is_active OR $1
ORDER BY id
`

func (r *WorkspaceRepo) List(ctx context.Context, scope repository.Scope) ([]models.Workspace, error) {
	rows, _ := r.DB.Query(ctx, listWorkspaces, includeInactive(scope))
	return collectWorkspaces(rows)
}

const listWorkspacesByUser = `-- name: ListWorkspacesByUser
SELECT id, user_id, created_at, is_active, name FROM workspaces
WHERE user_id = $1 AND (is_active OR $2)
ORDER BY id
`

func (r *WorkspaceRepo) ListByUser(ctx context.Context, userID int64, scope repository.Scope) ([]models.Workspace, error) {
	rows, _ := r.DB.Query(ctx, listWorkspacesByUser, userID, includeInactive(scope))
	return collectWorkspaces(rows)
}

const deleteWorkspace = `-- name: DeleteWorkspace
DELETE FROM workspaces
WHERE id = $1
`

func (r *WorkspaceRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteWorkspace, id)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrWorkspaceNotFound
	default:
		return nil
	}
}

const reassignWorkspaces = `-- name: ReassignWorkspaces
UPDATE workspaces SET user_id = $2
WHERE user_id = $1
`

func (r *WorkspaceRepo) Reassign(ctx context.Context, fromUserID int64, toUserID int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, reassignWorkspaces, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteWorkspacesByUser = `-- name: DeleteWorkspacesByUser
DELETE FROM workspaces
WHERE user_id = $1
`

func (r *WorkspaceRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteWorkspacesByUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectWorkspaces(rows pgx.Rows) ([]models.Workspace, error) {
	workspaces, err := pgx.CollectRows(rows, rowToWorkspace)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return workspaces, nil
}

func rowToWorkspace(row pgx.CollectableRow) (models.Workspace, error) {
	var w models.Workspace
	err := row.Scan(&w.ID, &w.UserID, &w.CreatedAt, &w.IsActive, &w.Name)
	return w, err
}
