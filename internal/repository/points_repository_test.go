package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

func newPointsMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPointsRepositoryCredit(t *testing.T) {
	db, mock, cleanup := newPointsMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET points = points + $2, updated_at = $3 WHERE id = $1 RETURNING points")).
		WithArgs("u1", 30, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(130))

	balance, err := repo.Credit(context.Background(), "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, 130, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryDebitInsufficient(t *testing.T) {
	db, mock, cleanup := newPointsMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET points = points - $2, updated_at = $3 WHERE id = $1 AND points >= $2 RETURNING points")).
		WithArgs("u1", 500, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Debit(context.Background(), "u1", 500)
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryCreditForTask(t *testing.T) {
	db, mock, cleanup := newPointsMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bonus_task_completions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET points = points + $2, updated_at = $3 WHERE id = $1 RETURNING points")).
		WithArgs("u1", 25, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(75))
	mock.ExpectCommit()

	balance, err := repo.CreditForTask(context.Background(), &models.BonusTaskCompletion{
		UserID: "u1", TaskID: "t1", PointsEarned: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryCreditForTaskDuplicate(t *testing.T) {
	db, mock, cleanup := newPointsMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bonus_task_completions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CreditForTask(context.Background(), &models.BonusTaskCompletion{
		UserID: "u1", TaskID: "t1", PointsEarned: 25,
	})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryAppendAchievement(t *testing.T) {
	db, mock, cleanup := newPointsMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectExec("INSERT INTO achievements").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AppendAchievement(context.Background(), &models.Achievement{
		UserID: "u1", Milestone: 5, Title: "5 bonus tasks",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
