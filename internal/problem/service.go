// AngelaMos | 2026
// service.go

package problem

import (
	"context"
	"fmt"
	"log/slog"
)

// Catalog serves judge fixtures keyed by problem slug.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Seed upserts every fixture so restarts pick up catalog edits.
func (c *Catalog) Seed(ctx context.Context, problems []Problem) error {
	for i := range problems {
		if err := c.repo.Upsert(ctx, &problems[i]); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	slog.Info("problem catalog seeded", "problems", len(problems))
	return nil
}

func (c *Catalog) GetProblem(ctx context.Context, slug string) (*Problem, error) {
	return c.repo.FindBySlug(ctx, NormalizeSlug(slug))
}
