// AngelaMos | 2026
// repository.go

package challenge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamisam/codeplay-backend/internal/core"
)

const challengeColumns = `
	c.id, c.challenger_id, c.recipient_id, c.problem_title_slug,
	c.problem_title, c.status, c.winner_id, c.resolution,
	c.challenger_score, c.recipient_score, c.created_at, c.updated_at`

const detailSelect = `SELECT ` + challengeColumns + `,
		cu.display_name AS challenger_display_name,
		cu.leetcode_username AS challenger_username,
		ru.display_name AS recipient_display_name,
		ru.leetcode_username AS recipient_username
	FROM challenges c
	JOIN users cu ON cu.id = c.challenger_id
	JOIN users ru ON ru.id = c.recipient_id`

type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error

	LockPair(ctx context.Context, a, b string) error
	Create(ctx context.Context, c *Challenge) error
	GetByID(ctx context.Context, id string) (*Challenge, error)
	GetDetail(ctx context.Context, id string) (*Detail, error)
	ListPendingFor(ctx context.Context, userID string) ([]Detail, error)
	HasRecentCompleted(ctx context.Context, a, b string, since time.Time) (bool, error)

	Accept(ctx context.Context, id, recipientID string) (*Challenge, error)
	DeletePending(ctx context.Context, id, userID string) error
	ExpirePending(ctx context.Context, id string, createdBefore time.Time) (bool, error)
	ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error)
	CompleteWithWinner(ctx context.Context, id, winnerID string) (bool, error)
	IncrementScore(ctx context.Context, id, userID string) (bool, error)

	CreateSubmission(ctx context.Context, s *Submission) error
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

// LockPair serialises invites between the same two users regardless of
// direction. Must run inside WithTx.
func (r *repository) LockPair(ctx context.Context, a, b string) error {
	return core.AdvisoryXactLock(ctx, r.db, pairKey(a, b))
}

func (r *repository) Create(ctx context.Context, c *Challenge) error {
	query := `
		INSERT INTO challenges (
			id, challenger_id, recipient_id, problem_title_slug, problem_title
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING status, challenger_score, recipient_score, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.ChallengerID,
		c.RecipientID,
		c.ProblemTitleSlug,
		c.ProblemTitle,
	).Scan(
		&c.Status,
		&c.ChallengerScore,
		&c.RecipientScore,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create challenge: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create challenge: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Challenge, error) {
	query := `SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.id = $1`

	var c Challenge
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get challenge: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	return &c, nil
}

func (r *repository) GetDetail(ctx context.Context, id string) (*Detail, error) {
	query := detailSelect + `
		WHERE c.id = $1`

	var d Detail
	err := r.db.GetContext(ctx, &d, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get challenge detail: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge detail: %w", err)
	}

	return &d, nil
}

func (r *repository) ListPendingFor(
	ctx context.Context,
	userID string,
) ([]Detail, error) {
	query := detailSelect + `
		WHERE c.status = 'pending'
			AND (c.challenger_id = $1 OR c.recipient_id = $1)
		ORDER BY c.created_at DESC`

	var details []Detail
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list pending challenges: %w", err)
	}

	return details, nil
}

func (r *repository) HasRecentCompleted(
	ctx context.Context,
	a, b string,
	since time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM challenges
			WHERE status = 'completed'
				AND updated_at >= $3
				AND (
					(challenger_id = $1 AND recipient_id = $2)
					OR (challenger_id = $2 AND recipient_id = $1)
				)
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, a, b, since); err != nil {
		return false, fmt.Errorf("check recent challenge: %w", err)
	}

	return exists, nil
}

func (r *repository) Accept(
	ctx context.Context,
	id, recipientID string,
) (*Challenge, error) {
	query := `
		UPDATE challenges c
		SET status = 'active', updated_at = NOW()
		WHERE c.id = $1 AND c.recipient_id = $2 AND c.status = 'pending'
		RETURNING ` + challengeColumns

	var c Challenge
	err := r.db.GetContext(ctx, &c, query, id, recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("accept challenge: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("accept challenge: %w", err)
	}

	return &c, nil
}

func (r *repository) DeletePending(ctx context.Context, id, userID string) error {
	query := `
		DELETE FROM challenges
		WHERE id = $1
			AND status = 'pending'
			AND (challenger_id = $2 OR recipient_id = $2)`

	_, err := r.execOne(ctx, "delete pending challenge", query, id, userID)
	return err
}

// ExpirePending resolves an abandoned invite in the challenger's favour. It
// reports false when the invite was already resolved, accepted or is not
// old enough.
func (r *repository) ExpirePending(
	ctx context.Context,
	id string,
	createdBefore time.Time,
) (bool, error) {
	query := `
		UPDATE challenges
		SET status = 'completed',
			winner_id = challenger_id,
			resolution = 'expired',
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND created_at < $2`

	return r.execMaybe(ctx, "expire challenge", query, id, createdBefore)
}

func (r *repository) ExpireStale(
	ctx context.Context,
	createdBefore time.Time,
) (int64, error) {
	query := `
		UPDATE challenges
		SET status = 'completed',
			winner_id = challenger_id,
			resolution = 'expired',
			updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1`

	result, err := r.db.ExecContext(ctx, query, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("expire stale challenges: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale challenges: %w", err)
	}

	return rows, nil
}

// CompleteWithWinner only succeeds while the challenge is active, so at
// most one caller ever records a winner.
func (r *repository) CompleteWithWinner(
	ctx context.Context,
	id, winnerID string,
) (bool, error) {
	query := `
		UPDATE challenges
		SET status = 'completed',
			winner_id = $2,
			resolution = 'solved',
			updated_at = NOW()
		WHERE id = $1
			AND status = 'active'
			AND (challenger_id = $2 OR recipient_id = $2)`

	return r.execMaybe(ctx, "complete challenge", query, id, winnerID)
}

func (r *repository) IncrementScore(
	ctx context.Context,
	id, userID string,
) (bool, error) {
	query := `
		UPDATE challenges
		SET challenger_score = challenger_score +
				CASE WHEN challenger_id = $2 THEN 1 ELSE 0 END,
			recipient_score = recipient_score +
				CASE WHEN recipient_id = $2 THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
			AND status = 'active'
			AND (challenger_id = $2 OR recipient_id = $2)`

	return r.execMaybe(ctx, "increment score", query, id, userID)
}

func (r *repository) CreateSubmission(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO challenge_submissions (
			id, challenge_id, user_id, language_id, correct
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.ChallengeID,
		s.UserID,
		s.LanguageID,
		s.Correct,
	)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	return nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (int64, error) {
	rows, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return rows, nil
}

func (r *repository) execMaybe(
	ctx context.Context,
	op, query string,
	args ...any,
) (bool, error) {
	rows, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) exec(
	ctx context.Context,
	op, query string,
	args ...any,
) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "challenge-pair:" + a + ":" + b
}
