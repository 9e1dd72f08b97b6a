package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/database"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

const reviewColumns = "id, course_id, user_id, content, rating, status, parent_id, reply_ids, created_at, updated_at"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new top-level review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, course_id, user_id, content, rating, status, parent_id, reply_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.CourseID,
		review.UserID,
		review.Content,
		review.Rating,
		review.Status,
		review.ParentID,
		review.ReplyIDs,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// CreateReply inserts a reply and appends its id to the parent's reply
// index within a single transaction, so the parent either references the
// reply or the reply does not exist.
func (r *ReviewRepository) CreateReply(ctx context.Context, reply *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO reviews (id, course_id, user_id, content, rating, status, parent_id, reply_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, insertQuery,
		reply.ID,
		reply.CourseID,
		reply.UserID,
		reply.Content,
		reply.Rating,
		reply.Status,
		reply.ParentID,
		reply.ReplyIDs,
		reply.CreatedAt,
		reply.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}

	appendQuery := `
		UPDATE reviews
		SET reply_ids = array_append(reply_ids, $1), updated_at = $2
		WHERE id = $3`

	ct, err := tx.Exec(ctx, appendQuery, reply.ID, time.Now().UTC(), *reply.ParentID)
	if err != nil {
		return fmt.Errorf("append reply id: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", *reply.ParentID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return review, nil
}

// UpdateStatus changes a review's moderation status.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `
		UPDATE reviews
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListByCourse returns every review on a course. Top-level reviews come
// first ordered newest to oldest so tree roots land in feed order; the
// replies that follow are resolved through their parents' reply indexes.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE course_id = $1
		ORDER BY (parent_id IS NOT NULL), created_at DESC`, reviewColumns)

	ctx, end := database.TraceQuery(ctx, "ListCourseReviews", query)
	rows, err := r.pool.Query(ctx, query, courseID)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("list course reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

// ListByUser returns a user's reviews matching the filter with the total count.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	filter.UserID = &userID
	return r.List(ctx, filter)
}

// List returns reviews matching the filter with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.Review, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", argIndex))
		args = append(args, *filter.CourseID)
		argIndex++
	}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		reviewColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]*domain.Review, 0)

	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.CourseID,
			&rev.UserID,
			&rev.Content,
			&rev.Rating,
			&rev.Status,
			&rev.ParentID,
			&rev.ReplyIDs,
			&rev.CreatedAt,
			&rev.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &rev)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// CountApproved counts every approved review on a course, replies included.
func (r *ReviewRepository) CountApproved(ctx context.Context, courseID string) (int, error) {
	query := `SELECT count(*) FROM reviews WHERE course_id = $1 AND status = $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, courseID, domain.ReviewStatusApproved).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved reviews: %w", err)
	}

	return count, nil
}

// ApprovedTopLevelRatings returns the ratings of a course's approved
// top-level reviews.
func (r *ReviewRepository) ApprovedTopLevelRatings(ctx context.Context, courseID string) ([]int, error) {
	query := `
		SELECT rating
		FROM reviews
		WHERE course_id = $1 AND status = $2 AND parent_id IS NULL AND rating IS NOT NULL`

	rows, err := r.pool.Query(ctx, query, courseID, domain.ReviewStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query approved ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]int, 0)
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}

	return ratings, nil
}

// ApprovedRatingCounts returns per-star counts over a course's approved
// top-level reviews.
func (r *ReviewRepository) ApprovedRatingCounts(ctx context.Context, courseID string) (map[int]int, error) {
	query := `
		SELECT rating, count(*)
		FROM reviews
		WHERE course_id = $1 AND status = $2 AND parent_id IS NULL AND rating IS NOT NULL
		GROUP BY rating`

	rows, err := r.pool.Query(ctx, query, courseID, domain.ReviewStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query rating counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts[rating] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating count rows: %w", err)
	}

	return counts, nil
}

func collectReviews(rows pgx.Rows) ([]*domain.Review, error) {
	reviews := make([]*domain.Review, 0)
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.CourseID,
			&rev.UserID,
			&rev.Content,
			&rev.Rating,
			&rev.Status,
			&rev.ParentID,
			&rev.ReplyIDs,
			&rev.CreatedAt,
			&rev.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rev domain.Review
	if err := row.Scan(
		&rev.ID,
		&rev.CourseID,
		&rev.UserID,
		&rev.Content,
		&rev.Rating,
		&rev.Status,
		&rev.ParentID,
		&rev.ReplyIDs,
		&rev.CreatedAt,
		&rev.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rev, nil
}
