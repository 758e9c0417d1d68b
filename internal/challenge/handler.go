// AngelaMos | 2026
// handler.go

package challenge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	submitLimiter func(http.Handler) http.Handler,
) {
	r.Route("/challenges", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/daily-problem", h.DailyProblem)
		r.Get("/search-problems", h.SearchProblems)
		r.Post("/invite", h.Invite)
		r.Get("/invites", h.ListInvites)
		r.Put("/invites/{challengeID}/accept", h.Accept)
		r.Delete("/invites/{challengeID}/decline", h.Decline)

		r.Get("/{challengeID}", h.GetDetails)
		r.Get("/{challengeID}/status", h.GetStatus)
		r.Get("/{challengeID}/judgings/{ticketID}", h.GetTicket)
		r.With(submitLimiter).Post("/{challengeID}/submit", h.Submit)
	})
}

func (h *Handler) DailyProblem(w http.ResponseWriter, r *http.Request) {
	daily, err := h.service.DailyProblem(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, daily)
}

func (h *Handler) SearchProblems(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SearchProblems(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, results)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Invite(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToChallengeResponse(c))
}

func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	invites, err := h.service.ListInvites(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToInviteResponses(invites))
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, err := h.service.Accept(r.Context(), chi.URLParam(r, "challengeID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToChallengeResponse(c))
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	err := h.service.DeclineOrCancel(r.Context(), chi.URLParam(r, "challengeID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, map[string]string{"message": "Invitation removed."})
}

func (h *Handler) GetDetails(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	details, err := h.service.GetDetails(r.Context(), chi.URLParam(r, "challengeID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToDetailsResponse(details))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetStatus(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToStatusResponse(report))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ticket, err := h.service.SubmitSolution(
		r.Context(),
		chi.URLParam(r, "challengeID"),
		userID,
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Accepted(w, ToTicketResponse(ticket))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	ticket, err := h.service.GetTicket(
		r.Context(),
		chi.URLParam(r, "challengeID"),
		chi.URLParam(r, "ticketID"),
		userID,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToTicketResponse(ticket))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "challenge")
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("upstream service"))
	default:
		core.InternalServerError(w, err)
	}
}
