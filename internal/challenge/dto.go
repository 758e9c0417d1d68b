// AngelaMos | 2026
// dto.go

package challenge

import (
	"encoding/json"
	"time"
)

type InviteRequest struct {
	RecipientID      string `json:"recipientId"      validate:"required,uuid"`
	ProblemTitleSlug string `json:"problemTitleSlug" validate:"omitempty,max=200"`
	ProblemTitle     string `json:"problemTitle"     validate:"omitempty,max=300"`
}

type SubmitRequest struct {
	LanguageID int    `json:"languageId" validate:"required,gt=0"`
	Code       string `json:"code"       validate:"required,max=65536"`
}

type ChallengeResponse struct {
	ID               string    `json:"id"`
	ChallengerID     string    `json:"challengerId"`
	RecipientID      string    `json:"recipientId"`
	ProblemTitleSlug string    `json:"problemTitleSlug"`
	ProblemTitle     string    `json:"problemTitle"`
	Status           string    `json:"status"`
	WinnerID         *string   `json:"winnerId"`
	ChallengerScore  int       `json:"challengerScore"`
	RecipientScore   int       `json:"recipientScore"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type ParticipantResponse struct {
	ID               string  `json:"id"`
	DisplayName      *string `json:"displayName"`
	LeetcodeUsername string  `json:"leetcodeUsername"`
}

type InviteResponse struct {
	ChallengeResponse
	Challenger ParticipantResponse `json:"challenger"`
	Recipient  ParticipantResponse `json:"recipient"`
}

type DetailsResponse struct {
	Challenge      InviteResponse  `json:"challenge"`
	ProblemDetails json.RawMessage `json:"problemDetails"`
	Boilerplate    map[int]string  `json:"boilerplate"`
}

type StatusResponse struct {
	Status string               `json:"status"`
	Winner *ParticipantResponse `json:"winner,omitempty"`
}

type TicketResponse struct {
	TicketID  string       `json:"ticketId"`
	Status    TicketStatus `json:"status"`
	AllPassed bool         `json:"allPassed"`
	Outcome   Outcome      `json:"outcome,omitempty"`
	Results   []TestResult `json:"results"`
	Error     string       `json:"error,omitempty"`
}

func ToChallengeResponse(c *Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:               c.ID,
		ChallengerID:     c.ChallengerID,
		RecipientID:      c.RecipientID,
		ProblemTitleSlug: c.ProblemTitleSlug,
		ProblemTitle:     c.ProblemTitle,
		Status:           c.Status,
		WinnerID:         c.WinnerID,
		ChallengerScore:  c.ChallengerScore,
		RecipientScore:   c.RecipientScore,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func toParticipantResponse(p Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		LeetcodeUsername: p.LeetcodeUsername,
	}
}

func ToInviteResponse(d *Detail) InviteResponse {
	return InviteResponse{
		ChallengeResponse: ToChallengeResponse(&d.Challenge),
		Challenger:        toParticipantResponse(d.Challenger()),
		Recipient:         toParticipantResponse(d.Recipient()),
	}
}

func ToInviteResponses(details []Detail) []InviteResponse {
	out := make([]InviteResponse, 0, len(details))
	for i := range details {
		out = append(out, ToInviteResponse(&details[i]))
	}
	return out
}

func ToStatusResponse(r *StatusReport) StatusResponse {
	resp := StatusResponse{Status: r.Status}
	if r.Winner != nil {
		w := toParticipantResponse(*r.Winner)
		resp.Winner = &w
	}
	return resp
}

func ToTicketResponse(t *Ticket) TicketResponse {
	results := t.Results
	if results == nil {
		results = []TestResult{}
	}
	return TicketResponse{
		TicketID:  t.ID,
		Status:    t.Status,
		AllPassed: t.AllPassed,
		Outcome:   t.Outcome,
		Results:   results,
		Error:     t.Error,
	}
}

func ToDetailsResponse(d *Details) DetailsResponse {
	boilerplate := map[int]string(d.Boilerplate)
	if boilerplate == nil {
		boilerplate = map[int]string{}
	}
	return DetailsResponse{
		Challenge:      ToInviteResponse(d.Challenge),
		ProblemDetails: json.RawMessage(d.ProblemDetails),
		Boilerplate:    boilerplate,
	}
}
