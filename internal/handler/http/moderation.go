package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/service"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/httputil"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/pagination"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/validator"
)

// ModerationHandler handles HTTP requests for admin moderation endpoints.
type ModerationHandler struct {
	service *service.ModerationService
	logger  *slog.Logger
}

// NewModerationHandler creates a new moderation HTTP handler.
func NewModerationHandler(svc *service.ModerationService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{
		service: svc,
		logger:  logger,
	}
}

// ModerateReviewRequest is the JSON request body for a moderation decision.
type ModerateReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// ListReviews handles GET /api/v1/admin/reviews
func (h *ModerationHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.ReviewFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("course_id"); v != "" {
		filter.CourseID = &v
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}

	reviews, total, err := h.service.ListReviews(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, params))
}

// ModerateReview handles PATCH /api/v1/admin/reviews/{reviewId}/status
func (h *ModerationHandler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req ModerateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Moderate(r.Context(), chi.URLParam(r, "reviewId"), req.Status)
	if err != nil {
		// The status change is already committed when only the rating
		// recompute failed; report success with a staleness warning.
		if errors.Is(err, apperrors.ErrAggregation) && review != nil {
			httputil.WriteJSON(w, http.StatusOK, httputil.Response{
				Data:    review,
				Warning: "course rating may be stale; it will be corrected on the next moderation event",
			})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}
