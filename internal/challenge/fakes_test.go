// AngelaMos | 2026
// fakes_test.go

package challenge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/judge"
	"github.com/iamisam/codeplay-backend/internal/leetcode"
	"github.com/iamisam/codeplay-backend/internal/problem"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUser struct {
	displayName *string
	username    string
}

type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	clock       *clock
	users       map[string]fakeUser
	challenges  map[string]Challenge
	submissions []Submission

	failSubmission error
}

func newFakeRepo(c *clock) *fakeRepo {
	return &fakeRepo{
		clock:      c,
		users:      map[string]fakeUser{},
		challenges: map[string]Challenge{},
	}
}

func (f *fakeRepo) addUser(id, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = fakeUser{username: username}
}

func (f *fakeRepo) put(c Challenge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[c.ID] = c
}

func (f *fakeRepo) get(id string) (Challenge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	return c, ok
}

func (f *fakeRepo) submissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := make(map[string]Challenge, len(f.challenges))
	for k, v := range f.challenges {
		snapshot[k] = v
	}
	subs := append([]Submission(nil), f.submissions...)
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.challenges = snapshot
		f.submissions = subs
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepo) LockPair(ctx context.Context, a, b string) error { return nil }

func samePair(c Challenge, a, b string) bool {
	return (c.ChallengerID == a && c.RecipientID == b) ||
		(c.ChallengerID == b && c.RecipientID == a)
}

func (f *fakeRepo) Create(ctx context.Context, c *Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.challenges {
		if samePair(existing, c.ChallengerID, c.RecipientID) &&
			(existing.Status == StatusPending || existing.Status == StatusActive) {
			return fmt.Errorf("create challenge: %w", core.ErrDuplicateKey)
		}
	}

	now := f.clock.Now()
	c.Status = StatusPending
	c.CreatedAt = now
	c.UpdatedAt = now
	f.challenges[c.ID] = *c
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &c, nil
}

func (f *fakeRepo) detail(c Challenge) Detail {
	cu := f.users[c.ChallengerID]
	ru := f.users[c.RecipientID]
	return Detail{
		Challenge:             c,
		ChallengerDisplayName: cu.displayName,
		ChallengerUsername:    cu.username,
		RecipientDisplayName:  ru.displayName,
		RecipientUsername:     ru.username,
	}
}

func (f *fakeRepo) GetDetail(ctx context.Context, id string) (*Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	d := f.detail(c)
	return &d, nil
}

func (f *fakeRepo) ListPendingFor(ctx context.Context, userID string) ([]Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Detail
	for _, c := range f.challenges {
		if c.Status == StatusPending && c.IsParticipant(userID) {
			out = append(out, f.detail(c))
		}
	}
	return out, nil
}

func (f *fakeRepo) HasRecentCompleted(
	ctx context.Context,
	a, b string,
	since time.Time,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if samePair(c, a, b) && c.Status == StatusCompleted && !c.UpdatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Accept(ctx context.Context, id, recipientID string) (*Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.RecipientID != recipientID || c.Status != StatusPending {
		return nil, core.ErrNotFound
	}
	c.Status = StatusActive
	c.UpdatedAt = f.clock.Now()
	f.challenges[id] = c
	return &c, nil
}

func (f *fakeRepo) DeletePending(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != StatusPending || !c.IsParticipant(userID) {
		return core.ErrNotFound
	}
	delete(f.challenges, id)
	return nil
}

func (f *fakeRepo) expire(c Challenge) Challenge {
	resolution := ResolutionExpired
	winner := c.ChallengerID
	c.Status = StatusCompleted
	c.WinnerID = &winner
	c.Resolution = &resolution
	c.UpdatedAt = f.clock.Now()
	return c
}

func (f *fakeRepo) ExpirePending(
	ctx context.Context,
	id string,
	createdBefore time.Time,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != StatusPending || !c.CreatedAt.Before(createdBefore) {
		return false, nil
	}
	f.challenges[id] = f.expire(c)
	return true, nil
}

func (f *fakeRepo) ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.challenges {
		if c.Status == StatusPending && c.CreatedAt.Before(createdBefore) {
			f.challenges[id] = f.expire(c)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CompleteWithWinner(ctx context.Context, id, winnerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != StatusActive || !c.IsParticipant(winnerID) {
		return false, nil
	}
	resolution := ResolutionSolved
	c.Status = StatusCompleted
	c.WinnerID = &winnerID
	c.Resolution = &resolution
	c.UpdatedAt = f.clock.Now()
	f.challenges[id] = c
	return true, nil
}

func (f *fakeRepo) IncrementScore(ctx context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != StatusActive || !c.IsParticipant(userID) {
		return false, nil
	}
	if c.ChallengerID == userID {
		c.ChallengerScore++
	} else {
		c.RecipientScore++
	}
	c.UpdatedAt = f.clock.Now()
	f.challenges[id] = c
	return true, nil
}

func (f *fakeRepo) CreateSubmission(ctx context.Context, s *Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmission != nil {
		return f.failSubmission
	}
	s.CreatedAt = f.clock.Now()
	f.submissions = append(f.submissions, *s)
	return nil
}

type fakeUsers struct {
	repo *fakeRepo
}

func (u fakeUsers) Exists(ctx context.Context, id string) (bool, error) {
	u.repo.mu.Lock()
	defer u.repo.mu.Unlock()
	_, ok := u.repo.users[id]
	return ok, nil
}

type fakeProblems struct {
	daily     leetcode.ProblemRef
	dailyErr  error
	details   leetcode.ProblemDetails
	searchHit []leetcode.ProblemRef
}

func (p *fakeProblems) GetDaily(ctx context.Context) (*leetcode.ProblemRef, error) {
	if p.dailyErr != nil {
		return nil, p.dailyErr
	}
	ref := p.daily
	return &ref, nil
}

func (p *fakeProblems) Search(ctx context.Context, query string) ([]leetcode.ProblemRef, error) {
	return p.searchHit, nil
}

func (p *fakeProblems) GetProblem(ctx context.Context, slug string) (leetcode.ProblemDetails, error) {
	return p.details, nil
}

type fakeCatalog struct {
	problems map[string]*problem.Problem
}

func (c *fakeCatalog) GetProblem(ctx context.Context, slug string) (*problem.Problem, error) {
	p, ok := c.problems[slug]
	if !ok {
		return nil, fmt.Errorf("find problem: %w", core.ErrNotFound)
	}
	return p, nil
}

type fakeJudge struct {
	mu        sync.Mutex
	submitErr error
	getErr    error
	results   []judge.Result
	submitted [][]judge.Submission
	polls     int
}

func (j *fakeJudge) SubmitBatch(ctx context.Context, subs []judge.Submission) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.submitErr != nil {
		return nil, j.submitErr
	}
	j.submitted = append(j.submitted, subs)
	tokens := make([]string, len(subs))
	for i := range subs {
		tokens[i] = fmt.Sprintf("tok-%d-%d", len(j.submitted), i)
	}
	return tokens, nil
}

func (j *fakeJudge) GetBatch(ctx context.Context, tokens []string) ([]judge.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.polls++
	if j.getErr != nil {
		return nil, j.getErr
	}
	out := make([]judge.Result, len(tokens))
	for i, tok := range tokens {
		r := j.results[i%len(j.results)]
		r.Token = tok
		out[i] = r
	}
	return out, nil
}

func (j *fakeJudge) setResults(ids ...int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = j.results[:0]
	for _, id := range ids {
		j.results = append(j.results, judge.Result{Status: judge.Status{ID: id}})
	}
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[string]Ticket
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{tickets: map[string]Ticket{}}
}

func (s *fakeTickets) Save(ctx context.Context, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = *t
	return nil
}

func (s *fakeTickets) Get(ctx context.Context, id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("get ticket: %w", core.ErrNotFound)
	}
	return &t, nil
}

type deferred struct {
	delay time.Duration
	name  string
	task  func(ctx context.Context)
}

// fakeDeferrer queues tasks so tests decide when the deferred work runs.
type fakeDeferrer struct {
	mu    sync.Mutex
	queue []deferred
}

func (d *fakeDeferrer) After(delay time.Duration, name string, task func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, deferred{delay: delay, name: name, task: task})
	return nil
}

func (d *fakeDeferrer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// runNext pops and runs the oldest task. It reports false when empty.
func (d *fakeDeferrer) runNext(ctx context.Context) bool {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return false
	}
	next := d.queue[0]
	d.queue = d.queue[1:]
	d.mu.Unlock()

	next.task(ctx)
	return true
}

func (d *fakeDeferrer) drain(ctx context.Context) {
	for d.runNext(ctx) {
	}
}

const (
	userA = "11111111-1111-1111-1111-111111111111"
	userB = "22222222-2222-2222-2222-222222222222"
	userC = "33333333-3333-3333-3333-333333333333"
)

type harness struct {
	svc      *Service
	repo     *fakeRepo
	clock    *clock
	problems *fakeProblems
	judge    *fakeJudge
	tickets  *fakeTickets
	deferrer *fakeDeferrer
}

func testConfig() config.ChallengeConfig {
	return config.ChallengeConfig{
		PendingTTL:    5 * time.Minute,
		Cooldown:      24 * time.Hour,
		JudgeGrace:    3 * time.Second,
		JudgeMaxPolls: 3,
		TicketTTL:     time.Hour,
		SweepInterval: time.Minute,
	}
}

func newHarness() *harness {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := newFakeRepo(c)
	repo.addUser(userA, "alice")
	repo.addUser(userB, "bob")
	repo.addUser(userC, "carol")

	problems := &fakeProblems{
		daily:   leetcode.ProblemRef{Title: "2sum", TitleSlug: "two-sum"},
		details: leetcode.ProblemDetails(`{"title":"Two Sum"}`),
	}
	catalog := &fakeCatalog{problems: map[string]*problem.Problem{
		"two-sum": {
			Slug:  "two-sum",
			Title: "Two Sum",
			TestCases: problem.TestCases{
				{Input: "1", Output: "1"},
				{Input: "2", Output: "2"},
				{Input: "3", Output: "3"},
			},
			Boilerplate: problem.Boilerplate{71: "def solve(): pass"},
		},
	}}
	j := &fakeJudge{}
	j.setResults(judge.StatusAccepted)
	tickets := newFakeTickets()
	deferrer := &fakeDeferrer{}

	svc := NewService(Deps{
		Repo:     repo,
		Users:    fakeUsers{repo: repo},
		Problems: problems,
		Catalog:  catalog,
		Judge:    j,
		Tickets:  tickets,
		Deferrer: deferrer,
		Config:   testConfig(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	svc.now = c.Now

	return &harness{
		svc:      svc,
		repo:     repo,
		clock:    c,
		problems: problems,
		judge:    j,
		tickets:  tickets,
		deferrer: deferrer,
	}
}

// activeChallenge invites B on behalf of A and has B accept.
func (h *harness) activeChallenge(ctx context.Context) (*Challenge, error) {
	c, err := h.svc.Invite(ctx, userA, InviteRequest{RecipientID: userB})
	if err != nil {
		return nil, err
	}
	return h.svc.Accept(ctx, c.ID, userB)
}

func appStatus(err error) int {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}
