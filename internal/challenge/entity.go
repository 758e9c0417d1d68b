// AngelaMos | 2026
// entity.go

package challenge

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"

	// StatusExpired is reported, never stored. An expired invite is stored
	// as completed with ResolutionExpired.
	StatusExpired = "expired"
)

const (
	ResolutionSolved  = "solved"
	ResolutionExpired = "expired"
)

type Challenge struct {
	ID               string    `db:"id"`
	ChallengerID     string    `db:"challenger_id"`
	RecipientID      string    `db:"recipient_id"`
	ProblemTitleSlug string    `db:"problem_title_slug"`
	ProblemTitle     string    `db:"problem_title"`
	Status           string    `db:"status"`
	WinnerID         *string   `db:"winner_id"`
	Resolution       *string   `db:"resolution"`
	ChallengerScore  int       `db:"challenger_score"`
	RecipientScore   int       `db:"recipient_score"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (c *Challenge) IsParticipant(userID string) bool {
	return userID != "" && (c.ChallengerID == userID || c.RecipientID == userID)
}

func (c *Challenge) IsExpiredResolution() bool {
	return c.Resolution != nil && *c.Resolution == ResolutionExpired
}

// Detail is a challenge joined with both participants' public names.
type Detail struct {
	Challenge
	ChallengerDisplayName *string `db:"challenger_display_name"`
	ChallengerUsername    string  `db:"challenger_username"`
	RecipientDisplayName  *string `db:"recipient_display_name"`
	RecipientUsername     string  `db:"recipient_username"`
}

type Participant struct {
	ID               string
	DisplayName      *string
	LeetcodeUsername string
}

func (d *Detail) Challenger() Participant {
	return Participant{
		ID:               d.ChallengerID,
		DisplayName:      d.ChallengerDisplayName,
		LeetcodeUsername: d.ChallengerUsername,
	}
}

func (d *Detail) Recipient() Participant {
	return Participant{
		ID:               d.RecipientID,
		DisplayName:      d.RecipientDisplayName,
		LeetcodeUsername: d.RecipientUsername,
	}
}

func (d *Detail) Winner() *Participant {
	if d.WinnerID == nil {
		return nil
	}
	switch *d.WinnerID {
	case d.ChallengerID:
		p := d.Challenger()
		return &p
	case d.RecipientID:
		p := d.Recipient()
		return &p
	}
	return nil
}

// Submission is one judged attempt. Rows are append-only.
type Submission struct {
	ID          string    `db:"id"`
	ChallengeID string    `db:"challenge_id"`
	UserID      string    `db:"user_id"`
	LanguageID  int       `db:"language_id"`
	Correct     bool      `db:"correct"`
	CreatedAt   time.Time `db:"created_at"`
}

type StatusReport struct {
	Status string
	Winner *Participant
}

type TicketStatus string

const (
	TicketJudging TicketStatus = "judging"
	TicketDone    TicketStatus = "done"
	TicketFailed  TicketStatus = "failed"
)

type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeScored  Outcome = "attempt_recorded"
	OutcomeClosed  Outcome = "challenge_closed"
	OutcomeUnknown Outcome = ""
)

// Ticket tracks one deferred judging run between submit and verdict.
type Ticket struct {
	ID          string       `json:"id"`
	ChallengeID string       `json:"challengeId"`
	UserID      string       `json:"userId"`
	LanguageID  int          `json:"languageId"`
	Tokens      []string     `json:"tokens"`
	Polls       int          `json:"polls"`
	Status      TicketStatus `json:"status"`
	AllPassed   bool         `json:"allPassed"`
	Outcome     Outcome      `json:"outcome,omitempty"`
	Results     []TestResult `json:"results,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type TestResult struct {
	Status   string  `json:"status"`
	Accepted bool    `json:"accepted"`
	Time     *string `json:"time,omitempty"`
	Memory   *int    `json:"memory,omitempty"`
}
