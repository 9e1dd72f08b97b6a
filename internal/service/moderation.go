package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/event"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

// ModerationService implements the moderation workflow for reviews.
type ModerationService struct {
	reviews    repository.ReviewRepository
	aggregator *RatingAggregator
	cache      FeedCache
	producer   *event.Producer
	logger     *slog.Logger
}

// NewModerationService creates a new moderation service.
func NewModerationService(
	reviews repository.ReviewRepository,
	aggregator *RatingAggregator,
	cache FeedCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		reviews:    reviews,
		aggregator: aggregator,
		cache:      cache,
		producer:   producer,
		logger:     logger,
	}
}

// ListReviews returns a filtered, paginated moderation listing.
func (s *ModerationService) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput("invalid status filter")
	}

	normalizeFilter(&filter)

	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews for moderation: %w", err)
	}

	return reviews, total, nil
}

// Moderate transitions a review to the target status and recomputes the
// course's rating snapshot. The status change is committed before the
// recompute runs; when the recompute fails the review is still returned
// together with an aggregation error so callers can report the stale
// rating without undoing the moderation decision.
func (s *ModerationService) Moderate(ctx context.Context, reviewID, target string) (*domain.Review, error) {
	if target != domain.ReviewStatusApproved && target != domain.ReviewStatusRejected {
		return nil, apperrors.InvalidInput("status must be approved or rejected")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}

	if review.Status == target {
		return nil, apperrors.InvalidInput(fmt.Sprintf("review is already %s", target))
	}
	if !review.CanTransitionTo(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot transition review from %s to %s", review.Status, target))
	}

	oldStatus := review.Status
	if err := s.reviews.UpdateStatus(ctx, reviewID, target); err != nil {
		return nil, fmt.Errorf("update review status: %w", err)
	}
	review.Status = target

	if err := s.producer.PublishReviewModerated(ctx, review.ID, review.CourseID, oldStatus, target); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.moderated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	if err := s.cache.Invalidate(ctx, review.CourseID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate course feed cache",
			slog.String("course_id", review.CourseID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", review.ID),
		slog.String("course_id", review.CourseID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", target),
	)

	if _, err := s.aggregator.Recompute(ctx, review.CourseID); err != nil {
		s.logger.ErrorContext(ctx, "rating recompute failed after moderation",
			slog.String("review_id", review.ID),
			slog.String("course_id", review.CourseID),
			slog.String("error", err.Error()),
		)
		return review, apperrors.Aggregation(review.CourseID, err)
	}

	return review, nil
}
