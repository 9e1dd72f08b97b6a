package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
)

func newTestAggregator(reviews *mockReviewRepository, courses *mockCourseRepository) *RatingAggregator {
	return NewRatingAggregator(reviews, courses, newTestProducer(), newTestLogger())
}

// --- Recompute Tests ---

func TestRecompute_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{5, 4, 4}, nil)
	reviews.On("CountApproved", ctx, "course-1").Return(5, nil)
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 4.3, TotalRating: 5}).Return(nil)

	snap, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 4.3, snap.AvgRating)
	assert.Equal(t, 5, snap.TotalRating)

	reviews.AssertExpectations(t)
	courses.AssertExpectations(t)
}

func TestRecompute_NoApprovedReviews_ResetsSnapshot(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{}, nil)
	reviews.On("CountApproved", ctx, "course-1").Return(0, nil)
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{}).Return(nil)

	snap, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.AvgRating)
	assert.Equal(t, 0, snap.TotalRating)
}

func TestRecompute_OnlyApprovedReplies(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	// Two approved replies but no rated top-level review.
	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{}, nil)
	reviews.On("CountApproved", ctx, "course-1").Return(2, nil)
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 0, TotalRating: 2}).Return(nil)

	snap, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.AvgRating)
	assert.Equal(t, 2, snap.TotalRating)
}

func TestRecompute_RetriesOnceOnWriteFailure(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{5}, nil).Twice()
	reviews.On("CountApproved", ctx, "course-1").Return(1, nil).Twice()
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 5, TotalRating: 1}).
		Return(errors.New("deadlock detected")).Once()
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 5, TotalRating: 1}).
		Return(nil).Once()

	snap, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, snap.AvgRating)

	reviews.AssertExpectations(t)
	courses.AssertExpectations(t)
}

func TestRecompute_FailsAfterSecondAttempt(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return(nil, errors.New("connection reset")).Twice()

	_, err := agg.Recompute(ctx, "course-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "load approved ratings")

	reviews.AssertNumberOfCalls(t, "ApprovedTopLevelRatings", 2)
}

func TestRecompute_RetryRereadsState(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	// The first cycle reads stale state and fails to write; the retry
	// must read again rather than reuse the first read.
	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{4}, nil).Once()
	reviews.On("CountApproved", ctx, "course-1").Return(1, nil).Once()
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 4, TotalRating: 1}).
		Return(errors.New("serialization failure")).Once()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{4, 2}, nil).Once()
	reviews.On("CountApproved", ctx, "course-1").Return(2, nil).Once()
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 3, TotalRating: 2}).
		Return(nil).Once()

	snap, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, snap.AvgRating)
	assert.Equal(t, 2, snap.TotalRating)

	courses.AssertExpectations(t)
}

func TestRecompute_Idempotent(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").Return([]int{3, 4}, nil)
	reviews.On("CountApproved", ctx, "course-1").Return(2, nil)
	courses.On("UpdateRatingSnapshot", ctx, "course-1", domain.RatingSnapshot{AvgRating: 3.5, TotalRating: 2}).Return(nil)

	first, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)
	second, err := agg.Recompute(ctx, "course-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecompute_ConcurrentSameCourseSerialized(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	var inFlight, maxInFlight int
	var mu sync.Mutex

	reviews.On("ApprovedTopLevelRatings", ctx, "course-1").
		Run(func(args mock.Arguments) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
		}).
		Return([]int{5}, nil)
	reviews.On("CountApproved", ctx, "course-1").
		Run(func(args mock.Arguments) {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}).
		Return(1, nil)
	courses.On("UpdateRatingSnapshot", ctx, "course-1", mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Recompute(ctx, "course-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Read-then-write cycles for the same course never overlap.
	assert.Equal(t, 1, maxInFlight)
}

// --- Histogram Tests ---

func TestHistogram_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedRatingCounts", ctx, "course-1").Return(map[int]int{5: 3, 3: 1}, nil)

	buckets, err := agg.Histogram(ctx, "course-1")
	require.NoError(t, err)
	require.Len(t, buckets, 5)
	assert.Equal(t, 5, buckets[0].Rating)
	assert.Equal(t, 3, buckets[0].Count)
	assert.Equal(t, 75.0, buckets[0].Percent)
}

func TestHistogram_RepositoryError(t *testing.T) {
	reviews := new(mockReviewRepository)
	courses := new(mockCourseRepository)
	agg := newTestAggregator(reviews, courses)
	ctx := context.Background()

	reviews.On("ApprovedRatingCounts", ctx, "course-1").Return(nil, errors.New("timeout"))

	buckets, err := agg.Histogram(ctx, "course-1")
	assert.Nil(t, buckets)
	assert.Error(t, err)
}
