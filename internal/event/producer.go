package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	pkgkafka "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewSubmitted     = "lms.review.submitted"
	TopicReviewModerated     = "lms.review.moderated"
	TopicCourseRatingUpdated = "lms.course.rating_updated"
)

// Aggregate type constants.
const (
	AggregateTypeReview = "review"
	AggregateTypeCourse = "course"
)

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ID       string  `json:"id"`
	CourseID string  `json:"course_id"`
	UserID   string  `json:"user_id"`
	Content  string  `json:"content"`
	Rating   *int    `json:"rating,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	Status   string  `json:"status"`
}

// ReviewModeratedData is the payload for a review.moderated event.
type ReviewModeratedData struct {
	ReviewID  string `json:"review_id"`
	CourseID  string `json:"course_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// CourseRatingUpdatedData is the payload for a course.rating_updated event.
type CourseRatingUpdatedData struct {
	CourseID    string  `json:"course_id"`
	AvgRating   float64 `json:"avg_rating"`
	TotalRating int     `json:"total_rating"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := ReviewSubmittedData{
		ID:       review.ID,
		CourseID: review.CourseID,
		UserID:   review.UserID,
		Content:  review.Content,
		Rating:   review.Rating,
		ParentID: review.ParentID,
		Status:   review.Status,
	}

	event, err := pkgkafka.NewEvent(TopicReviewSubmitted, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("review_id", review.ID),
		slog.String("course_id", review.CourseID),
	)

	return nil
}

// PublishReviewModerated publishes a review.moderated event.
func (p *Producer) PublishReviewModerated(ctx context.Context, reviewID, courseID, oldStatus, newStatus string) error {
	data := ReviewModeratedData{
		ReviewID:  reviewID,
		CourseID:  courseID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}

	event, err := pkgkafka.NewEvent(TopicReviewModerated, reviewID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.moderated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewModerated, event); err != nil {
		return fmt.Errorf("publish review.moderated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.moderated event",
		slog.String("review_id", reviewID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	return nil
}

// PublishCourseRatingUpdated publishes a course.rating_updated event.
func (p *Producer) PublishCourseRatingUpdated(ctx context.Context, courseID string, snapshot domain.RatingSnapshot) error {
	data := CourseRatingUpdatedData{
		CourseID:    courseID,
		AvgRating:   snapshot.AvgRating,
		TotalRating: snapshot.TotalRating,
	}

	event, err := pkgkafka.NewEvent(TopicCourseRatingUpdated, courseID, AggregateTypeCourse, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create course.rating_updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCourseRatingUpdated, event); err != nil {
		return fmt.Errorf("publish course.rating_updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published course.rating_updated event",
		slog.String("course_id", courseID),
		slog.Float64("avg_rating", snapshot.AvgRating),
		slog.Int("total_rating", snapshot.TotalRating),
	)

	return nil
}
