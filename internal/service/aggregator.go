package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/event"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
)

// RatingAggregator recomputes a course's rating snapshot from its
// approved reviews. Recomputes for the same course are serialized
// through a per-course mutex so concurrent moderation decisions cannot
// interleave their read-then-write cycles.
type RatingAggregator struct {
	reviews  repository.ReviewRepository
	courses  repository.CourseRepository
	producer *event.Producer
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRatingAggregator creates a new rating aggregator.
func NewRatingAggregator(
	reviews repository.ReviewRepository,
	courses repository.CourseRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *RatingAggregator {
	return &RatingAggregator{
		reviews:  reviews,
		courses:  courses,
		producer: producer,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (a *RatingAggregator) lockFor(courseID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[courseID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[courseID] = lock
	}
	return lock
}

// Recompute rebuilds the rating snapshot for a course from scratch and
// persists it. A failed read-then-write cycle is retried once before the
// error is surfaced.
func (a *RatingAggregator) Recompute(ctx context.Context, courseID string) (domain.RatingSnapshot, error) {
	lock := a.lockFor(courseID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, err := a.recomputeOnce(ctx, courseID)
	if err != nil {
		a.logger.WarnContext(ctx, "rating recompute failed, retrying",
			slog.String("course_id", courseID),
			slog.String("error", err.Error()),
		)
		snapshot, err = a.recomputeOnce(ctx, courseID)
		if err != nil {
			return domain.RatingSnapshot{}, err
		}
	}

	if err := a.producer.PublishCourseRatingUpdated(ctx, courseID, snapshot); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish course.rating_updated event",
			slog.String("course_id", courseID),
			slog.String("error", err.Error()),
		)
		// Do not fail the recompute if event publishing fails.
	}

	a.logger.InfoContext(ctx, "course rating recomputed",
		slog.String("course_id", courseID),
		slog.Float64("avg_rating", snapshot.AvgRating),
		slog.Int("total_rating", snapshot.TotalRating),
	)

	return snapshot, nil
}

func (a *RatingAggregator) recomputeOnce(ctx context.Context, courseID string) (domain.RatingSnapshot, error) {
	ratings, err := a.reviews.ApprovedTopLevelRatings(ctx, courseID)
	if err != nil {
		return domain.RatingSnapshot{}, fmt.Errorf("load approved ratings: %w", err)
	}

	totalApproved, err := a.reviews.CountApproved(ctx, courseID)
	if err != nil {
		return domain.RatingSnapshot{}, fmt.Errorf("count approved reviews: %w", err)
	}

	snapshot := domain.ComputeSnapshot(ratings, totalApproved)

	if err := a.courses.UpdateRatingSnapshot(ctx, courseID, snapshot); err != nil {
		return domain.RatingSnapshot{}, fmt.Errorf("persist rating snapshot: %w", err)
	}

	return snapshot, nil
}

// Histogram returns the per-star rating distribution for a course over
// its approved top-level reviews.
func (a *RatingAggregator) Histogram(ctx context.Context, courseID string) ([]domain.HistogramBucket, error) {
	counts, err := a.reviews.ApprovedRatingCounts(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load rating counts: %w", err)
	}
	return domain.BuildHistogram(counts), nil
}
