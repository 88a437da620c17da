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
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (user_id, token, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by_token)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
RETURNING id, user_id, token, created_at, created_by_ip, expires_at, revoked_at, COALESCE(revoked_by_ip, ''), COALESCE(replaced_by_token, '')
`

func (r *RefreshTokenRepo) Save(ctx context.Context, t models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		t.UserID, t.Token, t.CreatedAt, t.CreatedByIP, t.ExpiresAt, t.RevokedAt, t.RevokedByIP, t.ReplacedByToken,
	)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return token, fmt.Errorf("refresh token already exists: %w", err)
		}
		return token, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

const getTokenForUpdate = `-- name: GetRefreshTokenForUpdate
SELECT rt.id, rt.user_id, rt.token, rt.created_at, rt.created_by_ip, rt.expires_at, rt.revoked_at, COALESCE(rt.revoked_by_ip, ''), COALESCE(rt.replaced_by_token, '')
FROM refresh_tokens rt
JOIN users u ON u.id = rt.user_id AND u.is_active
WHERE rt.token = $1
FOR UPDATE OF rt
`

// Get token and lock it until transaction ends
// Concurrent rotations of the same token are serialized here
func (r *RefreshTokenRepo) GetForUpdate(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getTokenForUpdate, tokenString)
	return collectRefreshToken(rows)
}

const revokeToken = `-- name: RevokeRefreshToken
UPDATE refresh_tokens
SET revoked_at = $2, revoked_by_ip = $3, replaced_by_token = NULLIF($4, '')
WHERE token = $1 AND revoked_at IS NULL
RETURNING id, user_id, token, created_at, created_by_ip, expires_at, revoked_at, COALESCE(revoked_by_ip, ''), COALESCE(replaced_by_token, '')
`

// Revoke token
// Already revoked tokens are not overwritten and reported as not found
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string, at time.Time, ip string, replacedBy string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeToken, tokenString, at, ip, replacedBy)
	return collectRefreshToken(rows)
}

const listTokensByUser = `-- name: ListRefreshTokensByUser
SELECT id, user_id, token, created_at, created_by_ip, expires_at, revoked_at, COALESCE(revoked_by_ip, ''), COALESCE(replaced_by_token, '')
FROM refresh_tokens
WHERE user_id = $1
ORDER BY created_at, id
`

func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, listTokensByUser, userID)
	tokens, err := pgx.CollectRows(rows, rowToRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

const reassignTokens = `-- name: ReassignRefreshTokens
UPDATE refresh_tokens SET user_id = $2
WHERE user_id = $1
`

func (r *RefreshTokenRepo) Reassign(ctx context.Context, fromUserID int64, toUserID int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, reassignTokens, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteTokensByUser = `-- name: DeleteRefreshTokensByUser
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteTokensByUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteExpiredTokens = `-- name: DeleteExpiredRefreshTokens
DELETE FROM refresh_tokens
WHERE expires_at < $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectRefreshToken(rows pgx.Rows) (models.RefreshToken, error) {
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.CreatedByIP, &t.ExpiresAt, &t.RevokedAt, &t.RevokedByIP, &t.ReplacedByToken)
	return t, err
}
