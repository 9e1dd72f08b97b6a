package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/event"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	pkgkafka "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/kafka"
)

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) CreateReply(ctx context.Context, reply *domain.Review) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.Review, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByUser(ctx context.Context, userID string, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) CountApproved(ctx context.Context, courseID string) (int, error) {
	args := m.Called(ctx, courseID)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewRepository) ApprovedTopLevelRatings(ctx context.Context, courseID string) ([]int, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *mockReviewRepository) ApprovedRatingCounts(ctx context.Context, courseID string) (map[int]int, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

// --- Mock Course Repository ---

type mockCourseRepository struct {
	mock.Mock
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *mockCourseRepository) UpdateRatingSnapshot(ctx context.Context, courseID string, snapshot domain.RatingSnapshot) error {
	args := m.Called(ctx, courseID, snapshot)
	return args.Error(0)
}

// --- Mock Feed Cache ---

type mockFeedCache struct {
	mock.Mock
}

func (m *mockFeedCache) Get(ctx context.Context, courseID string) ([]*domain.ReviewTree, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewTree), args.Error(1)
}

func (m *mockFeedCache) Set(ctx context.Context, courseID string, feed []*domain.ReviewTree) error {
	args := m.Called(ctx, courseID, feed)
	return args.Error(0)
}

func (m *mockFeedCache) Invalidate(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds a producer pointed at a broker that is not
// there. Publishing fails and the services treat that as non-fatal.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func intPtr(n int) *int {
	return &n
}

func strPtr(s string) *string {
	return &s
}
