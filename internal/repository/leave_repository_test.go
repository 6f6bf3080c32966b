package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-workplace/portal-api/internal/models"
)

func newLeaveMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeaveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLeaveMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec("INSERT INTO leave_requests").
		WithArgs(sqlmock.AnyArg(), "emp-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "vacation", models.LeavePending, nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	leave := &models.LeaveRequest{
		EmployeeID: "emp-1",
		StartDate:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		Reason:     "vacation",
		Status:     models.LeavePending,
	}
	err := repo.Create(context.Background(), leave)
	require.NoError(t, err)
	assert.NotEmpty(t, leave.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryFindOverlapping(t *testing.T) {
	db, mock, cleanup := newLeaveMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "employee_id", "start_date", "end_date", "reason", "status", "manager_id", "submitted_at", "processed_at"}).
		AddRow("l1", "emp-1", start.AddDate(0, 0, -2), start.AddDate(0, 0, 2), "vacation", "APPROVED", nil, time.Now(), nil)

	// Bound order matters: start_date compares against the new range's end,
	// end_date against its start.
	mock.ExpectQuery(`status IN \('PENDING', 'APPROVED'\)`).
		WithArgs("emp-1", end, start).
		WillReturnRows(rows)

	leaves, err := repo.FindOverlapping(context.Background(), "emp-1", start, end)
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryDecideWins(t *testing.T) {
	db, mock, cleanup := newLeaveMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	processedAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE leave_requests SET status = \$2, manager_id = \$3, processed_at = \$4 WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs("l1", models.LeaveApproved, "mgr-1", processedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.Decide(context.Background(), "l1", models.LeaveApproved, "mgr-1", processedAt)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryDecideLosesWhenAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newLeaveMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	processedAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE leave_requests SET status = \$2, manager_id = \$3, processed_at = \$4 WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs("l1", models.LeaveRejected, "mgr-2", processedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.Decide(context.Background(), "l1", models.LeaveRejected, "mgr-2", processedAt)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryMonthlyCounts(t *testing.T) {
	db, mock, cleanup := newLeaveMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	rows := sqlmock.NewRows([]string{"month", "count"}).AddRow(1, 4).AddRow(3, 2)
	mock.ExpectQuery(`EXTRACT\(MONTH FROM submitted_at\)`).
		WithArgs(2025).
		WillReturnRows(rows)

	counts, err := repo.MonthlyCounts(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].Month)
	assert.Equal(t, 4, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
