package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/service"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/httputil"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/pagination"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for submitting a review or reply.
type CreateReviewRequest struct {
	Content  string  `json:"content" validate:"required,max=4000"`
	Rating   *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// --- Handlers ---

// CreateReview handles POST /api/v1/courses/{courseId}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req CreateReviewRequest
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

	review, err := h.service.SubmitReview(r.Context(), service.SubmitReviewInput{
		CourseID: chi.URLParam(r, "courseId"),
		UserID:   userID,
		Content:  req.Content,
		Rating:   req.Rating,
		ParentID: req.ParentID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// ListCourseReviews handles GET /api/v1/courses/{courseId}/reviews
func (h *ReviewHandler) ListCourseReviews(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := userIDFromContext(r.Context())

	feed, err := h.service.ListCourseReviews(r.Context(), chi.URLParam(r, "courseId"), requesterID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: feed})
}

// GetCourseRating handles GET /api/v1/courses/{courseId}/rating
func (h *ReviewHandler) GetCourseRating(w http.ResponseWriter, r *http.Request) {
	course, histogram, err := h.service.GetCourseRating(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"course_id":    course.ID,
		"avg_rating":   course.AvgRating,
		"total_rating": course.TotalRating,
		"histogram":    histogram,
	}})
}

// ListMyReviews handles GET /api/v1/reviews/my
func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

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

	reviews, total, err := h.service.ListUserReviews(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, params))
}
