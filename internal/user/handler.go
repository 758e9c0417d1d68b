// AngelaMos | 2026
// handler.go

package user

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
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Patch("/me", h.UpdateMe)
		r.Put("/me/status", h.UpdateStatus)
		r.Post("/me/sync", h.Sync)
		r.Get("/search", h.Search)
		r.Get("/compare/{identifier}", h.Compare)
		r.Get("/{identifier}", h.GetProfile)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(view, true))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	view, err := h.service.UpdateMe(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(view, true))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.SetPresence(r.Context(), userID, req.Status); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, map[string]string{"status": req.Status})
}

// Sync refreshes the caller's profile from the platform.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.SyncProfile(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(view, true))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToSearchResults(users))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	identifier := chi.URLParam(r, "identifier")

	view, full, err := h.service.GetPublicProfile(r.Context(), viewerID, identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	if !full {
		core.OK(w, ToPrivateProfileResponse(view.User))
		return
	}

	core.OK(w, ToProfileResponse(view, view.User.ID == viewerID))
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	identifier := chi.URLParam(r, "identifier")

	current, other, err := h.service.Compare(r.Context(), viewerID, identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ComparisonResponse{
		CurrentUser: ToProfileResponse(current, true),
		OtherUser:   ToProfileResponse(other, false),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("display name"))
	case errors.Is(err, core.ErrInvalidInput):
		core.JSONError(w, core.ValidationError("invalid input"))
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "profile is private")
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "authentication required")
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("profile service"))
	default:
		core.InternalServerError(w, err)
	}
}
