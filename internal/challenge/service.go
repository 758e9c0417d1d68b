// AngelaMos | 2026
// service.go

package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/judge"
	"github.com/iamisam/codeplay-backend/internal/leetcode"
	"github.com/iamisam/codeplay-backend/internal/problem"
)

type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type ProblemSource interface {
	GetDaily(ctx context.Context) (*leetcode.ProblemRef, error)
	Search(ctx context.Context, query string) ([]leetcode.ProblemRef, error)
	GetProblem(ctx context.Context, slug string) (leetcode.ProblemDetails, error)
}

type Catalog interface {
	GetProblem(ctx context.Context, slug string) (*problem.Problem, error)
}

type Judge interface {
	SubmitBatch(ctx context.Context, subs []judge.Submission) ([]string, error)
	GetBatch(ctx context.Context, tokens []string) ([]judge.Result, error)
}

// Deferrer runs task after delay with a context that outlives the request.
type Deferrer interface {
	After(delay time.Duration, name string, task func(ctx context.Context)) error
}

type Deps struct {
	Repo     Repository
	Users    UserDirectory
	Problems ProblemSource
	Catalog  Catalog
	Judge    Judge
	Tickets  TicketStore
	Deferrer Deferrer
	Config   config.ChallengeConfig
	Logger   *slog.Logger
}

type Service struct {
	repo     Repository
	users    UserDirectory
	problems ProblemSource
	catalog  Catalog
	judge    Judge
	tickets  TicketStore
	deferrer Deferrer
	cfg      config.ChallengeConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     d.Repo,
		users:    d.Users,
		problems: d.Problems,
		catalog:  d.Catalog,
		judge:    d.Judge,
		tickets:  d.Tickets,
		deferrer: d.Deferrer,
		cfg:      d.Config,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) DailyProblem(ctx context.Context) (*leetcode.ProblemRef, error) {
	daily, err := s.problems.GetDaily(ctx)
	if err != nil {
		return nil, upstream("problem service", err)
	}
	return daily, nil
}

func (s *Service) SearchProblems(
	ctx context.Context,
	query string,
) ([]leetcode.ProblemRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []leetcode.ProblemRef{}, nil
	}

	results, err := s.problems.Search(ctx, query)
	if err != nil {
		return nil, upstream("problem service", err)
	}
	return results, nil
}

// Invite opens a pending challenge. Without an explicit problem the current
// daily problem is snapshotted and the pair cooldown applies.
func (s *Service) Invite(
	ctx context.Context,
	challengerID string,
	req InviteRequest,
) (*Challenge, error) {
	if req.RecipientID == challengerID {
		return nil, core.ValidationError("cannot challenge yourself")
	}

	exists, err := s.users.Exists(ctx, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("check recipient: %w", err)
	}
	if !exists {
		return nil, core.NotFoundError("recipient")
	}

	slug := problem.NormalizeSlug(strings.TrimSpace(req.ProblemTitleSlug))
	title := strings.TrimSpace(req.ProblemTitle)
	explicit := slug != ""

	if explicit {
		if title == "" {
			title = slug
		}
	} else {
		daily, err := s.DailyProblem(ctx)
		if err != nil {
			return nil, err
		}
		slug, title = daily.TitleSlug, daily.Title
	}

	c := &Challenge{
		ID:               uuid.New().String(),
		ChallengerID:     challengerID,
		RecipientID:      req.RecipientID,
		ProblemTitleSlug: slug,
		ProblemTitle:     title,
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.LockPair(ctx, challengerID, req.RecipientID); err != nil {
			return err
		}

		if !explicit {
			since := s.now().Add(-s.cfg.Cooldown)
			recent, err := tx.HasRecentCompleted(ctx, challengerID, req.RecipientID, since)
			if err != nil {
				return err
			}
			if recent {
				return core.RateLimitedError(
					"you have already completed a daily challenge with this user in the last 24 hours",
				)
			}
		}

		if err := tx.Create(ctx, c); err != nil {
			if errors.Is(err, core.ErrDuplicateKey) {
				return core.ConflictError("an open challenge already exists with this user")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "challenge invited",
		"challenge_id", c.ID,
		"challenger_id", c.ChallengerID,
		"recipient_id", c.RecipientID,
		"problem", c.ProblemTitleSlug,
	)

	return c, nil
}

func (s *Service) ListInvites(ctx context.Context, userID string) ([]Detail, error) {
	return s.repo.ListPendingFor(ctx, userID)
}

func (s *Service) Accept(ctx context.Context, id, userID string) (*Challenge, error) {
	c, err := s.repo.Accept(ctx, id, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NotFoundError("invitation")
	}
	return c, err
}

func (s *Service) DeclineOrCancel(ctx context.Context, id, userID string) error {
	err := s.repo.DeletePending(ctx, id, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("invitation")
	}
	return err
}

type Details struct {
	Challenge      *Detail
	ProblemDetails leetcode.ProblemDetails
	Boilerplate    problem.Boilerplate
}

func (s *Service) GetDetails(ctx context.Context, id, userID string) (*Details, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && !d.IsParticipant(userID)) {
		return nil, core.NotFoundError("challenge")
	}
	if err != nil {
		return nil, err
	}

	details, err := s.problems.GetProblem(ctx, d.ProblemTitleSlug)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NotFoundError("problem")
	}
	if err != nil {
		return nil, upstream("problem service", err)
	}

	out := &Details{Challenge: d, ProblemDetails: details}

	p, err := s.catalog.GetProblem(ctx, d.ProblemTitleSlug)
	switch {
	case err == nil:
		out.Boilerplate = p.Boilerplate
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	return out, nil
}

// GetStatus reports the challenge state and resolves pending invites older
// than the pending TTL in the challenger's favour. Repeated calls on an
// expired invite keep reporting expired with the same winner.
func (s *Service) GetStatus(ctx context.Context, id string) (*StatusReport, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NotFoundError("challenge")
	}
	if err != nil {
		return nil, err
	}

	if d.Status == StatusPending && s.now().Sub(d.CreatedAt) > s.cfg.PendingTTL {
		if _, err := s.repo.ExpirePending(ctx, id, s.now().Add(-s.cfg.PendingTTL)); err != nil {
			return nil, err
		}

		d, err = s.repo.GetDetail(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return reportFor(d), nil
}

func reportFor(d *Detail) *StatusReport {
	switch d.Status {
	case StatusCompleted:
		status := StatusCompleted
		if d.IsExpiredResolution() {
			status = StatusExpired
		}
		return &StatusReport{Status: status, Winner: d.Winner()}
	default:
		return &StatusReport{Status: d.Status}
	}
}

// ExpireStale is the background counterpart of the expiry in GetStatus.
func (s *Service) ExpireStale(ctx context.Context) {
	n, err := s.repo.ExpireStale(ctx, s.now().Add(-s.cfg.PendingTTL))
	if err != nil {
		s.logger.Error("expire stale challenges", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired stale challenges", "count", n)
	}
}

func upstream(service string, err error) error {
	if core.IsAppError(err) {
		return err
	}
	return core.NewAppError(
		err,
		service+" is unavailable",
		http.StatusBadGateway,
		"UPSTREAM_ERROR",
	)
}
