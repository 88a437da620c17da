package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/taledynamic/internal/models"
)

// Scope tells a repository which rows a read may see
// Every read takes the scope explicitly, so the active-only policy lives in one place
type Scope int

const (
	// Only rows with is_active = true
	ActiveOnly Scope = iota

	// Active and soft-deleted rows
	IncludeInactive
)

// Generic CRUD contract shared by entity repositories
type CRUD[T any] interface {
	// Insert entity and return it with assigned ID
	Create(ctx context.Context, entity T) (T, error)

	// Must return entity specific not found error (apperrors.ErrUserNotFound, ...)
	GetByID(ctx context.Context, id int64, scope Scope) (T, error)

	// Return all entities visible in scope, no paging
	List(ctx context.Context, scope Scope) ([]T, error)

	// Physically remove entity
	// Must return entity specific not found error if nothing was removed
	Delete(ctx context.Context, id int64) error
}

// User repository interface
type UserRepo interface {
	// Create returns apperrors.ErrUserAlreadyExists if active user with the email exists
	CRUD[models.User]

	// If user not found must return apperrors.ErrUserNotFound
	GetByEmail(ctx context.Context, email string, scope Scope) (models.User, error)

	ExistsByEmail(ctx context.Context, email string, scope Scope) (bool, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token in repository
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token even it expired or revoked and lock it until transaction ends
	// Tokens of inactive users are treated as not existing: apperrors.ErrRefreshTokenNotFound
	GetForUpdate(ctx context.Context, token string) (models.RefreshToken, error)

	// Mark token revoked
	// replacedBy is empty when token revoked without rotation
	Revoke(ctx context.Context, token string, at time.Time, ip string, replacedBy string) (models.RefreshToken, error)

	// All user tokens, oldest first
	ListByUser(ctx context.Context, userID int64) ([]models.RefreshToken, error)

	// Move every token from one user to another
	Reassign(ctx context.Context, fromUserID int64, toUserID int64) (int64, error)

	DeleteByUser(ctx context.Context, userID int64) (int64, error)

	// Delete tokens expired before the time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Workspace repository interface
type WorkspaceRepo interface {
	// GetByID and Delete return apperrors.ErrWorkspaceNotFound
	CRUD[models.Workspace]

	ListByUser(ctx context.Context, userID int64, scope Scope) ([]models.Workspace, error)

	// Move every workspace from one user to another
	Reassign(ctx context.Context, fromUserID int64, toUserID int64) (int64, error)

	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// Storage is the unit of work over all repositories
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Workspace() WorkspaceRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	// Storage passed to fn is bound to the transaction; nested calls use savepoints
	InTx(ctx context.Context, fn func(Storage) error) error
}
