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

func newComplaintMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestComplaintRepositoryAssignSetsInProgress(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec(`UPDATE complaints SET assigned_to = \$2, status = 'IN_PROGRESS', updated_at = \$3 WHERE id = \$1`).
		WithArgs("c1", "staff-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Assign(context.Background(), "c1", "staff-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	resolution := "Replaced the chair."
	resolvedAt := time.Now().UTC()
	complaint := &models.Complaint{
		ID:         "c1",
		Status:     models.ComplaintResolved,
		Resolution: &resolution,
		ResolvedAt: &resolvedAt,
	}

	mock.ExpectQuery(`UPDATE complaints\s+SET status = \$2`).
		WithArgs("c1", models.ComplaintResolved, resolution, resolvedAt, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"resolved_at"}).AddRow(resolvedAt))

	err := repo.Update(context.Background(), complaint)
	require.NoError(t, err)
	assert.False(t, complaint.UpdatedAt.IsZero())
	require.NotNil(t, complaint.ResolvedAt)
	assert.True(t, complaint.ResolvedAt.Equal(resolvedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryUpdateKeepsStoredResolvedAt(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	// A concurrent resolver already stamped the row an hour ago; this
	// writer's candidate loses and the model picks up the stored value.
	firstStamp := time.Now().UTC().Add(-time.Hour)
	candidate := time.Now().UTC()
	complaint := &models.Complaint{
		ID:         "c1",
		Status:     models.ComplaintResolved,
		ResolvedAt: &candidate,
	}

	mock.ExpectQuery(`UPDATE complaints\s+SET status = \$2`).
		WithArgs("c1", models.ComplaintResolved, nil, candidate, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"resolved_at"}).AddRow(firstStamp))

	err := repo.Update(context.Background(), complaint)
	require.NoError(t, err)
	require.NotNil(t, complaint.ResolvedAt)
	assert.True(t, complaint.ResolvedAt.Equal(firstStamp))
	assert.False(t, complaint.ResolvedAt.Equal(candidate))
}

func TestComplaintRepositoryDeleteIsHard(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec(`DELETE FROM complaints WHERE id = \$1`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "c1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryFindUnassigned(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "description", "category", "priority", "status", "assigned_to", "resolution", "submitted_at", "updated_at", "resolved_at"}).
		AddRow("c1", "u1", "Broken chair", "desc", nil, "MEDIUM", "OPEN", nil, nil, time.Now(), time.Now(), nil)

	mock.ExpectQuery(`SELECT (.+) FROM complaints WHERE assigned_to IS NULL`).
		WillReturnRows(rows)

	complaints, err := repo.FindUnassigned(context.Background())
	require.NoError(t, err)
	require.Len(t, complaints, 1)
	assert.Nil(t, complaints[0].AssignedToID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
