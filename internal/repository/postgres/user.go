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

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (created_at, is_active, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, is_active, email, password_hash
`

// Create user
// Zero CreatedAt is replaced with current time
func (r *UserRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createUser, u.CreatedAt, u.IsActive, u.Email, u.PasswordHash)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, is_active, email, password_hash FROM users
WHERE id = $1 AND (is_active OR $2)
`

func (r *UserRepo) GetByID(ctx context.Context, id int64, scope repository.Scope) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id, includeInactive(scope))
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, is_active, email, password_hash FROM users
WHERE email = $1 AND (is_active OR $2)
ORDER BY is_active DESC, id DESC
LIMIT 1
`

// Get user by email
// Inactive users may share the email, so the active one (or the latest) wins
func (r *UserRepo) GetByEmail(ctx context.Context, email string, scope repository.Scope) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email, includeInactive(scope))
	return collectUser(rows)
}

const existsUserByEmail = `-- name: ExistsUserByEmail
SELECT EXISTS (
	SELECT 1 FROM users
	WHERE email = $1 AND (is_active OR $2)
)
`

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string, scope repository.Scope) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, existsUserByEmail, email, includeInactive(scope)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, is_active, email, password_hash FROM users
WHERE is_active OR $1
ORDER BY id
`

func (r *UserRepo) List(ctx context.Context, scope repository.Scope) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers, includeInactive(scope))
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

// Delete user row
// Dependent rows are checked at commit, caller has to remove or reassign them in the same transaction
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.IsActive, &u.Email, &u.PasswordHash)
	return u, err
}
