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
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

func newRewardMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRewardRepositoryList(t *testing.T) {
	db, mock, cleanup := newRewardMock(t)
	defer cleanup()
	repo := NewRewardRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "points_required", "order_num", "active", "created_at", "updated_at"}).
		AddRow("rw1", "Sticker pack", nil, 50, 1, true, time.Now(), time.Now()).
		AddRow("rw2", "Museum trip", nil, 200, 2, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM rewards WHERE active = TRUE ORDER BY order_num ASC").
		WillReturnRows(rows)

	rewards, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, 1, rewards[0].OrderNum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardRepositoryClaimWithDebit(t *testing.T) {
	db, mock, cleanup := newRewardMock(t)
	defer cleanup()
	repo := NewRewardRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reward_claims").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET points = points - $2, updated_at = $3 WHERE id = $1 AND points >= $2 RETURNING points")).
		WithArgs("u1", 50, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(70))
	mock.ExpectCommit()

	claim := &models.RewardClaim{RewardID: "rw1", UserID: "u1"}
	balance, err := repo.ClaimWithDebit(context.Background(), claim, 50)
	require.NoError(t, err)
	assert.Equal(t, 70, balance)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardRepositoryClaimWithDebitDuplicate(t *testing.T) {
	db, mock, cleanup := newRewardMock(t)
	defer cleanup()
	repo := NewRewardRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reward_claims").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ClaimWithDebit(context.Background(), &models.RewardClaim{RewardID: "rw1", UserID: "u1"}, 50)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardRepositoryClaimWithDebitInsufficient(t *testing.T) {
	db, mock, cleanup := newRewardMock(t)
	defer cleanup()
	repo := NewRewardRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reward_claims").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE users SET points = points -").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ClaimWithDebit(context.Background(), &models.RewardClaim{RewardID: "rw1", UserID: "u1"}, 50)
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardRepositoryUpdateClaimStatusMissing(t *testing.T) {
	db, mock, cleanup := newRewardMock(t)
	defer cleanup()
	repo := NewRewardRepository(db)

	mock.ExpectExec("UPDATE reward_claims SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateClaimStatus(context.Background(), "rw1", "u1", models.ClaimStatusDelivered)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
