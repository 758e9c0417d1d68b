// AngelaMos | 2026
// judging.go

package challenge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/judge"
)

const (
	tracerName = "challenge"

	failJudgeUnavailable = "judge service unavailable"
	failJudgeTimeout     = "judging did not finish in time"
	failRecordVerdict    = "could not record verdict"
)

// SubmitSolution sends one judge submission per test case and returns a
// ticket immediately. The verdict is applied later by a deferred poll.
func (s *Service) SubmitSolution(
	ctx context.Context,
	id, userID string,
	req SubmitRequest,
) (*Ticket, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && !c.IsParticipant(userID)) {
		return nil, core.NotFoundError("challenge")
	}
	if err != nil {
		return nil, err
	}

	if c.Status != StatusActive {
		return nil, core.InvalidStateError("challenge is not active")
	}

	p, err := s.catalog.GetProblem(ctx, c.ProblemTitleSlug)
	if errors.Is(err, core.ErrNotFound) || (err == nil && len(p.TestCases) == 0) {
		return nil, core.NotFoundError("test cases for " + c.ProblemTitleSlug)
	}
	if err != nil {
		return nil, err
	}

	subs := make([]judge.Submission, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		subs = append(subs, judge.Submission{
			LanguageID:     req.LanguageID,
			SourceCode:     req.Code,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		})
	}

	tokens, err := s.judge.SubmitBatch(ctx, subs)
	if err != nil {
		s.logger.ErrorContext(ctx, "judge batch submit failed",
			"challenge_id", id,
			"error", err,
		)
		return nil, upstream("judge service", err)
	}

	now := s.now()
	t := &Ticket{
		ID:          uuid.New().String(),
		ChallengeID: c.ID,
		UserID:      userID,
		LanguageID:  req.LanguageID,
		Tokens:      tokens,
		Status:      TicketJudging,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tickets.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save ticket: %w", err)
	}

	if err := s.schedulePoll(t.ID); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) GetTicket(
	ctx context.Context,
	challengeID, ticketID, userID string,
) (*Ticket, error) {
	t, err := s.tickets.Get(ctx, ticketID)
	if errors.Is(err, core.ErrNotFound) ||
		(err == nil && (t.ChallengeID != challengeID || t.UserID != userID)) {
		return nil, core.NotFoundError("judging")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) schedulePoll(ticketID string) error {
	err := s.deferrer.After(s.cfg.JudgeGrace, "judge-poll:"+ticketID, func(ctx context.Context) {
		s.PollJudging(ctx, ticketID)
	})
	if err != nil {
		return fmt.Errorf("schedule judge poll: %w", err)
	}
	return nil
}

// PollJudging fetches verdicts for a ticket. While any verdict is still
// queued or processing it re-schedules itself, up to JudgeMaxPolls polls in
// total. A failed judge call fails the ticket without touching the
// challenge.
func (s *Service) PollJudging(ctx context.Context, ticketID string) {
	t, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		s.logger.Error("load judging ticket", "ticket_id", ticketID, "error", err)
		return
	}
	if t.Status != TicketJudging {
		return
	}

	logger := s.logger.With("ticket_id", t.ID, "challenge_id", t.ChallengeID)

	results, err := s.judge.GetBatch(ctx, t.Tokens)
	t.Polls++
	if err != nil {
		logger.Error("judge poll failed", "error", err)
		s.finish(ctx, t, failJudgeUnavailable)
		return
	}

	if judge.AnyPending(results) {
		if t.Polls >= s.cfg.JudgeMaxPolls {
			logger.Warn("judge still pending after final poll", "polls", t.Polls)
			s.finish(ctx, t, failJudgeTimeout)
			return
		}
		t.UpdatedAt = s.now()
		if err := s.tickets.Save(ctx, t); err != nil {
			logger.Error("save judging ticket", "error", err)
			return
		}
		if err := s.schedulePoll(t.ID); err != nil {
			logger.Error("reschedule judge poll", "error", err)
			s.finish(ctx, t, failJudgeTimeout)
		}
		return
	}

	allPassed := judge.AllAccepted(results)
	outcome, err := s.ApplyVerdict(ctx, t.ChallengeID, t.UserID, t.LanguageID, allPassed)
	if err != nil {
		logger.Error("apply verdict", "error", err)
		s.finish(ctx, t, failRecordVerdict)
		return
	}

	t.AllPassed = allPassed
	t.Outcome = outcome
	t.Results = toTestResults(results)
	s.finish(ctx, t, "")

	logger.Info("verdict applied",
		"user_id", t.UserID,
		"all_passed", allPassed,
		"outcome", string(outcome),
	)
}

// ApplyVerdict records the attempt and applies its effect in one
// transaction. A passing attempt wins only while the challenge is active; a
// failing one bumps the submitter's counter under the same condition.
func (s *Service) ApplyVerdict(
	ctx context.Context,
	challengeID, userID string,
	languageID int,
	allPassed bool,
) (Outcome, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "challenge.apply_verdict",
		attribute.String("challenge.id", challengeID),
		attribute.Bool("challenge.all_passed", allPassed),
	)
	defer span.End()

	outcome := OutcomeUnknown

	err := s.repo.WithTx(ctx, func(tx Repository) error {
		sub := &Submission{
			ID:          uuid.New().String(),
			ChallengeID: challengeID,
			UserID:      userID,
			LanguageID:  languageID,
			Correct:     allPassed,
		}
		if err := tx.CreateSubmission(ctx, sub); err != nil {
			return err
		}

		var (
			applied bool
			err     error
		)
		if allPassed {
			applied, err = tx.CompleteWithWinner(ctx, challengeID, userID)
			outcome = OutcomeWon
		} else {
			applied, err = tx.IncrementScore(ctx, challengeID, userID)
			outcome = OutcomeScored
		}
		if err != nil {
			return err
		}
		if !applied {
			outcome = OutcomeClosed
		}
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return OutcomeUnknown, err
	}

	span.SetAttributes(attribute.String("challenge.outcome", string(outcome)))
	return outcome, nil
}

func (s *Service) finish(ctx context.Context, t *Ticket, failure string) {
	t.Status = TicketDone
	if failure != "" {
		t.Status = TicketFailed
		t.Error = failure
	}
	t.UpdatedAt = s.now()

	if err := s.tickets.Save(ctx, t); err != nil {
		s.logger.Error("save judging ticket", "ticket_id", t.ID, "error", err)
	}
}

func toTestResults(results []judge.Result) []TestResult {
	out := make([]TestResult, 0, len(results))
	for _, r := range results {
		out = append(out, TestResult{
			Status:   r.Status.Description,
			Accepted: r.Accepted(),
			Time:     r.Time,
			Memory:   r.Memory,
		})
	}
	return out
}
