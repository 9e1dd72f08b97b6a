package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/event"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

// FeedCache caches assembled course feeds for anonymous requests.
type FeedCache interface {
	Get(ctx context.Context, courseID string) ([]*domain.ReviewTree, error)
	Set(ctx context.Context, courseID string, feed []*domain.ReviewTree) error
	Invalidate(ctx context.Context, courseID string) error
}

// ReviewService implements the business logic for submitting and
// reading reviews.
type ReviewService struct {
	reviews    repository.ReviewRepository
	courses    repository.CourseRepository
	cache      FeedCache
	aggregator *RatingAggregator
	producer   *event.Producer
	logger     *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	courses repository.CourseRepository,
	cache FeedCache,
	aggregator *RatingAggregator,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		courses:    courses,
		cache:      cache,
		aggregator: aggregator,
		producer:   producer,
		logger:     logger,
	}
}

// SubmitReviewInput holds the parameters for submitting a review or reply.
type SubmitReviewInput struct {
	CourseID string
	UserID   string
	Content  string
	Rating   *int
	ParentID *string
}

// SubmitReview creates a new review in pending status. Top-level reviews
// require a star rating; replies must not carry one and must point at an
// existing review on the same course.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.Content == "" {
		return nil, apperrors.InvalidInput("content is required")
	}

	isReply := input.ParentID != nil && *input.ParentID != ""

	if isReply {
		if input.Rating != nil {
			return nil, apperrors.InvalidInput("replies cannot carry a rating")
		}
	} else {
		if input.Rating == nil {
			return nil, apperrors.InvalidInput("rating is required for a top-level review")
		}
		if !domain.IsValidRating(*input.Rating) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
		}
	}

	if _, err := s.courses.GetByID(ctx, input.CourseID); err != nil {
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	if isReply {
		parent, err := s.reviews.GetByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput("parent review does not exist")
			}
			return nil, fmt.Errorf("get parent review: %w", err)
		}
		if parent.CourseID != input.CourseID {
			return nil, apperrors.InvalidInput("parent review belongs to a different course")
		}
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		CourseID:  input.CourseID,
		UserID:    input.UserID,
		Content:   input.Content,
		Rating:    input.Rating,
		Status:    domain.ReviewStatusPending,
		ParentID:  input.ParentID,
		ReplyIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if isReply {
		if err := s.reviews.CreateReply(ctx, review); err != nil {
			// The parent can vanish between the lookup above and the append.
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput("parent review does not exist")
			}
			return nil, fmt.Errorf("create reply: %w", err)
		}
	} else {
		if err := s.reviews.Create(ctx, review); err != nil {
			return nil, fmt.Errorf("create review: %w", err)
		}
	}

	if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("course_id", review.CourseID),
		slog.String("user_id", review.UserID),
		slog.Bool("is_reply", isReply),
	)

	return review, nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// ListCourseReviews assembles the visible review feed for a course.
// Everyone sees approved threads with replies filtered to approved at
// every depth. An authenticated requester additionally sees their own
// pending top-level reviews. Only the anonymous feed is cached since it
// is identical for every visitor.
func (s *ReviewService) ListCourseReviews(ctx context.Context, courseID, requesterID string) ([]*domain.ReviewTree, error) {
	if requesterID == "" {
		if feed, err := s.cache.Get(ctx, courseID); err == nil {
			return feed, nil
		}
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	reviews, err := s.reviews.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course reviews: %w", err)
	}

	feed := domain.BuildReviewTrees(reviews, func(r *domain.Review) bool {
		if r.Status == domain.ReviewStatusApproved {
			return true
		}
		return requesterID != "" &&
			r.UserID == requesterID &&
			r.Status == domain.ReviewStatusPending &&
			r.IsTopLevel()
	})

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})

	if requesterID == "" {
		if err := s.cache.Set(ctx, courseID, feed); err != nil {
			s.logger.WarnContext(ctx, "failed to cache course feed",
				slog.String("course_id", courseID),
				slog.String("error", err.Error()),
			)
		}
	}

	return feed, nil
}

// ListUserReviews returns a user's own reviews in any status, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput("invalid status filter")
	}

	normalizeFilter(&filter)

	reviews, total, err := s.reviews.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list user reviews: %w", err)
	}

	return reviews, total, nil
}

// GetCourseRating returns a course together with its rating histogram.
func (s *ReviewService) GetCourseRating(ctx context.Context, courseID string) (*domain.Course, []domain.HistogramBucket, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get course by id: %w", err)
	}

	histogram, err := s.aggregator.Histogram(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("build rating histogram: %w", err)
	}

	return course, histogram, nil
}

func normalizeFilter(filter *repository.ReviewFilter) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
}
