// AngelaMos | 2026
// repository.go

package problem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamisam/codeplay-backend/internal/core"
)

type Repository interface {
	Upsert(ctx context.Context, p *Problem) error
	FindBySlug(ctx context.Context, slug string) (*Problem, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, p *Problem) error {
	query := `
		INSERT INTO problems (slug, title, test_cases, boilerplate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			test_cases = EXCLUDED.test_cases,
			boilerplate = EXCLUDED.boilerplate,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.Slug,
		p.Title,
		p.TestCases,
		p.Boilerplate,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert problem %s: %w", p.Slug, err)
	}

	return nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*Problem, error) {
	query := `
		SELECT slug, title, test_cases, boilerplate, created_at, updated_at
		FROM problems
		WHERE slug = $1`

	var p Problem
	err := r.db.GetContext(ctx, &p, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find problem %s: %w", slug, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find problem %s: %w", slug, err)
	}

	return &p, nil
}
