package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

func newRatingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func ratingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "group_id", "grades", "attendance", "homework_completion",
		"class_participation", "total_score", "rank_in_group", "total_homeworks", "completed_homeworks",
		"total_classes", "attended_classes", "participation_count", "average_grade", "version", "created_at", "updated_at"})
}

func TestRatingRepositoryFindByStudentAndGroup(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM ratings WHERE student_id = \\$1 AND group_id = \\$2").
		WithArgs("s1", "g1").
		WillReturnRows(ratingRows().AddRow("r1", "s1", "g1", 8.0, 6.0, 10.0, 4.0, 8.0, 1, 5, 5, 10, 6, 2, 8.0, 3, time.Now(), time.Now()))

	rating, err := repo.FindByStudentAndGroup(context.Background(), "s1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "r1", rating.ID)
	assert.Equal(t, 8.0, rating.TotalScore)
	assert.Equal(t, 3, rating.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryFindByStudentAndGroupNotFound(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM ratings WHERE student_id = \\$1 AND group_id = \\$2").
		WithArgs("s1", "g1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentAndGroup(context.Background(), "s1", "g1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryUpdateWithVersion(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectExec("UPDATE ratings SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rating := &models.Rating{ID: "r1", Version: 3, Grades: 8, Attendance: 6, HomeworkCompletion: 10, ClassParticipation: 4, TotalScore: 8}
	err := repo.UpdateWithVersion(context.Background(), rating)
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryUpdateWithVersionStale(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectExec("UPDATE ratings SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rating := &models.Rating{ID: "r1", Version: 2}
	err := repo.UpdateWithVersion(context.Background(), rating)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 2, rating.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryListByGroup(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM ratings WHERE group_id = \\$1 ORDER BY created_at ASC, id ASC").
		WithArgs("g1").
		WillReturnRows(ratingRows().
			AddRow("r1", "s1", "g1", 8.0, 8.0, 8.0, 8.0, 8.0, 0, 0, 0, 0, 0, 0, 0.0, 1, time.Now(), time.Now()).
			AddRow("r2", "s2", "g1", 5.0, 5.0, 5.0, 5.0, 5.0, 0, 0, 0, 0, 0, 0, 0.0, 1, time.Now(), time.Now()))

	ratings, err := repo.ListByGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.Equal(t, "r1", ratings[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryUpdateRanks(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ratings SET rank_in_group = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("r1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ratings SET rank_in_group = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("r2", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateRanks(context.Background(), []models.RankAssignment{
		{RatingID: "r1", Rank: 1},
		{RatingID: "r2", Rank: 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryAppendMonthlySnapshot(t *testing.T) {
	db, mock, cleanup := newRatingMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectExec("INSERT INTO rating_monthly_stats").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AppendMonthlySnapshot(context.Background(), &models.RatingMonthlyStat{
		RatingID: "r1", Year: 2026, Month: 8, TotalScore: 8, RankInGroup: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
