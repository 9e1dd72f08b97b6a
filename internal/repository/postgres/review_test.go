package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/domain"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/internal/repository"
	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/database"
	apperrors "github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/errors"
)

// --- Test Helpers ---

var reviewRowColumns = []string{
	"id", "course_id", "user_id", "content", "rating", "status",
	"parent_id", "reply_ids", "created_at", "updated_at",
}

func newTestReviewRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func intptr(n int) *int       { return &n }
func strptr(s string) *string { return &s }

func sampleReview() *domain.Review {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Review{
		ID:        "rev-001",
		CourseID:  "course-001",
		UserID:    "user-001",
		Content:   "Great course, well paced.",
		Rating:    intptr(5),
		Status:    domain.ReviewStatusPending,
		ReplyIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sampleReply() *domain.Review {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Review{
		ID:        "rev-002",
		CourseID:  "course-001",
		UserID:    "user-002",
		Content:   "Agreed, the exercises helped a lot.",
		Status:    domain.ReviewStatusPending,
		ParentID:  strptr("rev-001"),
		ReplyIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func reviewRow(mock pgxmock.PgxPoolIface, r *domain.Review) *pgxmock.Rows {
	return mock.NewRows(reviewRowColumns).AddRow(
		r.ID, r.CourseID, r.UserID, r.Content, r.Rating, r.Status,
		r.ParentID, r.ReplyIDs, r.CreatedAt, r.UpdatedAt,
	)
}

// --- Create Tests ---

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rev.ID, rev.CourseID, rev.UserID, rev.Content, rev.Rating,
			rev.Status, rev.ParentID, rev.ReplyIDs, rev.CreatedAt, rev.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), rev)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_Error(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rev.ID, rev.CourseID, rev.UserID, rev.Content, rev.Rating,
			rev.Status, rev.ParentID, rev.ReplyIDs, rev.CreatedAt, rev.UpdatedAt,
		).
		WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), rev)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert review")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- CreateReply Tests ---

func TestReviewRepository_CreateReply_Success(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	reply := sampleReply()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			reply.ID, reply.CourseID, reply.UserID, reply.Content, reply.Rating,
			reply.Status, reply.ParentID, reply.ReplyIDs, reply.CreatedAt, reply.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reply.ID, pgxmock.AnyArg(), *reply.ParentID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.CreateReply(context.Background(), reply)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateReply_ParentGone(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	reply := sampleReply()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			reply.ID, reply.CourseID, reply.UserID, reply.Content, reply.Rating,
			reply.Status, reply.ParentID, reply.ReplyIDs, reply.CreatedAt, reply.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reply.ID, pgxmock.AnyArg(), *reply.ParentID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.CreateReply(context.Background(), reply)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CreateReply_BeginError(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.CreateReply(context.Background(), sampleReply())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID Tests ---

func TestReviewRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE id").
		WithArgs(rev.ID).
		WillReturnRows(reviewRow(mock, rev))

	got, err := repo.GetByID(context.Background(), rev.ID)
	require.NoError(t, err)
	assert.Equal(t, rev.ID, got.ID)
	assert.Equal(t, rev.CourseID, got.CourseID)
	assert.Equal(t, 5, *got.Rating)
	assert.Nil(t, got.ParentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE id").
		WithArgs("missing").
		WillReturnRows(mock.NewRows(reviewRowColumns))

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdateStatus Tests ---

func TestReviewRepository_UpdateStatus_Success(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.ReviewStatusApproved, pgxmock.AnyArg(), "rev-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateStatus(context.Background(), "rev-001", domain.ReviewStatusApproved)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.ReviewStatusRejected, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.ReviewStatusRejected)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListByCourse Tests ---

func TestReviewRepository_ListByCourse_Success(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()
	rev.ReplyIDs = []string{"rev-002"}
	reply := sampleReply()

	rows := mock.NewRows(reviewRowColumns).
		AddRow(rev.ID, rev.CourseID, rev.UserID, rev.Content, rev.Rating, rev.Status,
			rev.ParentID, rev.ReplyIDs, rev.CreatedAt, rev.UpdatedAt).
		AddRow(reply.ID, reply.CourseID, reply.UserID, reply.Content, reply.Rating, reply.Status,
			reply.ParentID, reply.ReplyIDs, reply.CreatedAt, reply.UpdatedAt)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs("course-001").
		WillReturnRows(rows)

	got, err := repo.ListByCourse(context.Background(), "course-001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rev-001", got[0].ID)
	assert.Equal(t, []string{"rev-002"}, got[0].ReplyIDs)
	assert.Equal(t, "rev-001", *got[1].ParentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByCourse_Empty(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs("course-empty").
		WillReturnRows(mock.NewRows(reviewRowColumns))

	got, err := repo.ListByCourse(context.Background(), "course-empty")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- List Tests ---

func TestReviewRepository_List_StatusFilter(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()
	rows := mock.NewRows(append(reviewRowColumns, "total_count")).
		AddRow(rev.ID, rev.CourseID, rev.UserID, rev.Content, rev.Rating, rev.Status,
			rev.ParentID, rev.ReplyIDs, rev.CreatedAt, rev.UpdatedAt, 7)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs(domain.ReviewStatusPending, 20, 0).
		WillReturnRows(rows)

	status := domain.ReviewStatusPending
	got, total, err := repo.List(context.Background(), repository.ReviewFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_Pagination(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs(10, 20).
		WillReturnRows(mock.NewRows(append(reviewRowColumns, "total_count")))

	got, total, err := repo.List(context.Background(), repository.ReviewFilter{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByUser_SetsUserFilter(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rev := sampleReview()
	rows := mock.NewRows(append(reviewRowColumns, "total_count")).
		AddRow(rev.ID, rev.CourseID, rev.UserID, rev.Content, rev.Rating, rev.Status,
			rev.ParentID, rev.ReplyIDs, rev.CreatedAt, rev.UpdatedAt, 1)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs("user-001", 20, 0).
		WillReturnRows(rows)

	got, total, err := repo.ListByUser(context.Background(), "user-001", repository.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Aggregation Query Tests ---

func TestReviewRepository_CountApproved(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectQuery("SELECT count").
		WithArgs("course-001", domain.ReviewStatusApproved).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountApproved(context.Background(), "course-001")
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ApprovedTopLevelRatings(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rows := mock.NewRows([]string{"rating"}).AddRow(5).AddRow(4).AddRow(4)

	mock.ExpectQuery("SELECT rating").
		WithArgs("course-001", domain.ReviewStatusApproved).
		WillReturnRows(rows)

	ratings, err := repo.ApprovedTopLevelRatings(context.Background(), "course-001")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4, 4}, ratings)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ApprovedTopLevelRatings_None(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	mock.ExpectQuery("SELECT rating").
		WithArgs("course-001", domain.ReviewStatusApproved).
		WillReturnRows(mock.NewRows([]string{"rating"}))

	ratings, err := repo.ApprovedTopLevelRatings(context.Background(), "course-001")
	require.NoError(t, err)
	assert.Empty(t, ratings)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ApprovedRatingCounts(t *testing.T) {
	repo, mock := newTestReviewRepo(t)

	rows := mock.NewRows([]string{"rating", "count"}).
		AddRow(5, 3).
		AddRow(2, 1)

	mock.ExpectQuery("SELECT rating, count").
		WithArgs("course-001", domain.ReviewStatusApproved).
		WillReturnRows(rows)

	counts, err := repo.ApprovedRatingCounts(context.Background(), "course-001")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{5: 3, 2: 1}, counts)

	assert.NoError(t, mock.ExpectationsWereMet())
}
