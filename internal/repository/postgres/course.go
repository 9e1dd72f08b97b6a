package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/database"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

// CourseRepository implements repository.CourseRepository using PostgreSQL.
type CourseRepository struct {
	pool database.DBTX
}

// NewCourseRepository creates a new PostgreSQL-backed course repository.
func NewCourseRepository(pool database.DBTX) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course by its ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	query := `
		SELECT id, title, avg_rating, total_rating, created_at, updated_at
		FROM courses
		WHERE id = $1`

	var c domain.Course
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.AvgRating,
		&c.TotalRating,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("course", id)
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}

	return &c, nil
}

// UpdateRatingSnapshot writes a course's derived rating state in a single
// statement.
func (r *CourseRepository) UpdateRatingSnapshot(ctx context.Context, courseID string, snapshot domain.RatingSnapshot) error {
	query := `
		UPDATE courses
		SET avg_rating = $1, total_rating = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query, snapshot.AvgRating, snapshot.TotalRating, time.Now().UTC(), courseID)
	if err != nil {
		return fmt.Errorf("update rating snapshot: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("course", courseID)
	}

	return nil
}
