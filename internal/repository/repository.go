package repository

import (
	"context"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
)

// ReviewFilter defines filter criteria for moderation listings.
type ReviewFilter struct {
	CourseID *string
	UserID   *string
	Status   *string
	Page     int
	PerPage  int
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new top-level review.
	Create(ctx context.Context, review *domain.Review) error

	// CreateReply inserts a reply and appends its id to the parent's
	// reply index atomically.
	CreateReply(ctx context.Context, reply *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// UpdateStatus changes a review's moderation status.
	UpdateStatus(ctx context.Context, id string, status string) error

	// ListByCourse returns every review on a course, top-level reviews
	// first by newest creation, replies after.
	ListByCourse(ctx context.Context, courseID string) ([]*domain.Review, error)

	// ListByUser returns a user's reviews matching the filter with the
	// total count.
	ListByUser(ctx context.Context, userID string, filter ReviewFilter) ([]*domain.Review, int, error)

	// List returns reviews matching the filter with the total count.
	List(ctx context.Context, filter ReviewFilter) ([]*domain.Review, int, error)

	// CountApproved counts every approved review on a course, replies
	// included.
	CountApproved(ctx context.Context, courseID string) (int, error)

	// ApprovedTopLevelRatings returns the ratings of a course's approved
	// top-level reviews.
	ApprovedTopLevelRatings(ctx context.Context, courseID string) ([]int, error)

	// ApprovedRatingCounts returns per-star counts over a course's
	// approved top-level reviews.
	ApprovedRatingCounts(ctx context.Context, courseID string) (map[int]int, error)
}

// CourseRepository defines the interface for course persistence operations.
type CourseRepository interface {
	// GetByID retrieves a course by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Course, error)

	// UpdateRatingSnapshot writes a course's derived rating state.
	UpdateRatingSnapshot(ctx context.Context, courseID string, snapshot domain.RatingSnapshot) error
}
