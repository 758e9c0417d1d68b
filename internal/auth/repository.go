// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamisam/codeplay-backend/internal/core"
)

const tokenColumns = `
	id, user_id, token_hash, expires_at, created_at, created_by_ip, device,
	revoked_at, revoked_by_ip, replaced_by`

type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	ConsumeActive(ctx context.Context, tokenHash, ip, successorHash string) error
	Revoke(ctx context.Context, tokenHash, ip string) error
	RevokeByID(ctx context.Context, id, userID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetActiveSessionsForUser(
		ctx context.Context,
		userID string,
	) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db   core.DBTX
	root *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, root: db}
}

func (r *repository) WithTx(
	ctx context.Context,
	fn func(Repository) error,
) error {
	if r.root == nil {
		return fn(r)
	}
	return core.InTx(ctx, r.root, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, created_by_ip, device
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedByIP,
		token.Device,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *repository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE token_hash = $1`

	return r.findOne(ctx, query, tokenHash)
}

func (r *repository) findOne(
	ctx context.Context,
	query string,
	arg any,
) (*RefreshToken, error) {
	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

// ConsumeActive revokes the token only while it is still active and links it
// to its successor. Inactive or unknown tokens report core.ErrNotFound and
// leave the row untouched.
func (r *repository) ConsumeActive(
	ctx context.Context,
	tokenHash, ip, successorHash string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoked_by_ip = $2, replaced_by = $3
		WHERE token_hash = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()`

	result, err := r.db.ExecContext(ctx, query, tokenHash, ip, successorHash)
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("consume refresh token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Revoke(ctx context.Context, tokenHash, ip string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoked_by_ip = $2
		WHERE token_hash = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, tokenHash, ip); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

func (r *repository) RevokeByID(ctx context.Context, id, userID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}

	return nil
}

func (r *repository) GetActiveSessionsForUser(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	query := `SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	return tokens, nil
}

func (r *repository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
