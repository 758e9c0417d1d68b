// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamisam/codeplay-backend/internal/core"
)

const userColumns = `
	id, email, password_hash, leetcode_username, display_name,
	profile_visibility, status, email_verified, otp_hash, otp_expires_at,
	real_name, country_name, company, school, about_me, reputation, ranking,
	created_at, updated_at`

type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPlatformUsername(ctx context.Context, username string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]User, error)

	MarkVerified(ctx context.Context, id string) error
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	RecordOTPFailure(ctx context.Context, id string, maxAttempts int) error
	ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfileSettings(ctx context.Context, user *User) error
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePlatformProfile(ctx context.Context, id string, p Profile) error

	ListStats(ctx context.Context, userID string) ([]SubmissionStat, error)
	ReplaceStats(ctx context.Context, userID string, stats []SubmissionStat) error
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

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, leetcode_username,
			email_verified, otp_hash, otp_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING profile_visibility, status, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.PlatformUsername,
		user.EmailVerified,
		user.OTPHash,
		user.OTPExpiresAt,
	).Scan(&user.Visibility, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", `WHERE id = $1`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", `WHERE email = $1`, email)
}

// GetByIdentifier matches a display name first, then a platform username.
func (r *repository) GetByIdentifier(
	ctx context.Context,
	identifier string,
) (*User, error) {
	return r.getOne(
		ctx,
		"get user by identifier",
		`WHERE display_name = $1 OR leetcode_username = $1
		 ORDER BY (display_name = $1) DESC NULLS LAST
		 LIMIT 1`,
		identifier,
	)
}

func (r *repository) getOne(
	ctx context.Context,
	op, where string,
	args ...any,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ` + where

	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) ExistsByPlatformUsername(
	ctx context.Context,
	username string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE leetcode_username = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}

	return exists, nil
}

func (r *repository) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]User, error) {
	q := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email_verified
			AND (display_name ILIKE $1 OR leetcode_username ILIKE $1)
		ORDER BY ranking ASC, leetcode_username ASC
		LIMIT $2`

	users := []User{}
	pattern := "%" + escapeLike(query) + "%"
	if err := r.db.SelectContext(ctx, &users, q, pattern, limit); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	return users, nil
}

func (r *repository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET email_verified = true, otp_hash = NULL, otp_expires_at = NULL,
		    otp_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND NOT email_verified`

	return r.execOne(ctx, "mark verified", query, id)
}

// SetOTP replaces any outstanding code and resets the failure counter.
func (r *repository) SetOTP(
	ctx context.Context,
	id, otpHash string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET otp_hash = $2, otp_expires_at = $3, otp_attempts = 0,
		    updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set otp", query, id, otpHash, expiresAt)
}

// RecordOTPFailure bumps the failure counter and drops the code once the
// counter reaches maxAttempts.
func (r *repository) RecordOTPFailure(
	ctx context.Context,
	id string,
	maxAttempts int,
) error {
	query := `
		UPDATE users
		SET otp_attempts = otp_attempts + 1,
		    otp_hash = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_hash END,
		    otp_expires_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_expires_at END
		WHERE id = $1 AND otp_hash IS NOT NULL`

	return r.execOne(ctx, "record otp failure", query, id, maxAttempts)
}

// ResetPassword stores the new hash only while otpHash is still the
// outstanding code, so a code resets the password at most once.
func (r *repository) ResetPassword(
	ctx context.Context,
	id, otpHash, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $3, otp_hash = NULL, otp_expires_at = NULL,
		    otp_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND otp_hash = $2 AND otp_expires_at > NOW()`

	return r.execOne(ctx, "reset password", query, id, otpHash, passwordHash)
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) UpdateProfileSettings(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET display_name = $2, profile_visibility = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.DisplayName,
		user.Visibility,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update profile: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("update profile: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update profile: %w", err)
	}

	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "update status", query, id, status)
}

func (r *repository) UpdatePlatformProfile(
	ctx context.Context,
	id string,
	p Profile,
) error {
	query := `
		UPDATE users
		SET real_name = $2, country_name = $3, company = $4, school = $5,
		    about_me = $6, reputation = $7, ranking = $8, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update platform profile", query,
		id,
		p.RealName,
		p.CountryName,
		p.Company,
		p.School,
		p.AboutMe,
		p.Reputation,
		p.Ranking,
	)
}

func (r *repository) ListStats(
	ctx context.Context,
	userID string,
) ([]SubmissionStat, error) {
	query := `
		SELECT user_id, kind, difficulty, count, submissions
		FROM user_submission_stats
		WHERE user_id = $1
		ORDER BY kind, difficulty`

	stats := []SubmissionStat{}
	if err := r.db.SelectContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}

	return stats, nil
}

func (r *repository) ReplaceStats(
	ctx context.Context,
	userID string,
	stats []SubmissionStat,
) error {
	if _, err := r.db.ExecContext(
		ctx,
		`DELETE FROM user_submission_stats WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("clear stats: %w", err)
	}

	if len(stats) == 0 {
		return nil
	}

	query := `
		INSERT INTO user_submission_stats
			(user_id, kind, difficulty, count, submissions)
		VALUES (:user_id, :kind, :difficulty, :count, :submissions)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, stats); err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}

	return nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
