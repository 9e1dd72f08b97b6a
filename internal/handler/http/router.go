package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/service"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/health"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/middleware"
)

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	moderationService *service.ModerationService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("review"))
	r.Use(middleware.Tracing("review"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(CORS)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)
	moderationHandler := NewModerationHandler(moderationService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/courses/{courseId}", func(r chi.Router) {
			r.With(UserIDFromHeader).Post("/reviews", reviewHandler.CreateReview)
			r.With(OptionalUserID).Get("/reviews", reviewHandler.ListCourseReviews)
			r.Get("/rating", reviewHandler.GetCourseRating)
		})

		r.With(UserIDFromHeader).Get("/reviews/my", reviewHandler.ListMyReviews)

		r.Route("/admin/reviews", func(r chi.Router) {
			r.Use(UserIDFromHeader)
			r.Use(RequireAdmin)

			r.Get("/", moderationHandler.ListReviews)
			r.Patch("/{reviewId}/status", moderationHandler.ModerateReview)
		})
	})

	return r
}
