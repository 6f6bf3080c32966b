package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smart-workplace/portal-api/internal/models"
)

const leaveColumns = `id, employee_id, start_date, end_date, reason, status, manager_id, submitted_at, processed_at`

// LeaveRepository provides database access for leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository creates a new instance of LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.SubmittedAt.IsZero() {
		leave.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO leave_requests (id, employee_id, start_date, end_date, reason, status, manager_id, submitted_at, processed_at)
		VALUES (:id, :employee_id, :start_date, :end_date, :reason, :status, :manager_id, :submitted_at, :processed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns a leave request by identifier.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1 LIMIT 1`, leaveColumns)
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request by id: %w", err)
	}
	return &leave, nil
}

// FindByEmployee returns all leave requests submitted by the employee.
func (r *LeaveRepository) FindByEmployee(ctx context.Context, employeeID string) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE employee_id = $1 ORDER BY start_date DESC`, leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, employeeID); err != nil {
		return nil, fmt.Errorf("find leave requests by employee: %w", err)
	}
	return leaves, nil
}

// FindAll returns every leave request ordered by submission time.
func (r *LeaveRepository) FindAll(ctx context.Context) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests ORDER BY submitted_at DESC`, leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query); err != nil {
		return nil, fmt.Errorf("find all leave requests: %w", err)
	}
	return leaves, nil
}

// FindOverlapping returns the employee's PENDING or APPROVED requests whose
// inclusive [start_date, end_date] range intersects the given range.
func (r *LeaveRepository) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests
		WHERE employee_id = $1
		AND status IN ('PENDING', 'APPROVED')
		AND start_date <= $2 AND end_date >= $3`, leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, employeeID, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping leave requests: %w", err)
	}
	return leaves, nil
}

// Decide atomically transitions a PENDING request to the given terminal
// status, stamping the manager and processing time in the same statement.
// The status guard makes concurrent decisions first-committer-wins: the
// loser sees zero rows affected.
func (r *LeaveRepository) Decide(ctx context.Context, id string, status models.LeaveStatus, managerID string, processedAt time.Time) (bool, error) {
	const query = `UPDATE leave_requests SET status = $2, manager_id = $3, processed_at = $4 WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, managerID, processedAt)
	if err != nil {
		return false, fmt.Errorf("decide leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide leave request rows affected: %w", err)
	}
	return affected == 1, nil
}

// CountByStatus returns the number of leave requests in the given status.
func (r *LeaveRepository) CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM leave_requests WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count leave requests by status: %w", err)
	}
	return count, nil
}

// Count returns the total number of leave requests.
func (r *LeaveRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM leave_requests`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count leave requests: %w", err)
	}
	return count, nil
}

// MonthlyCounts returns submissions per month for the given year.
func (r *LeaveRepository) MonthlyCounts(ctx context.Context, year int) ([]models.MonthlyLeaveCount, error) {
	const query = `SELECT EXTRACT(MONTH FROM submitted_at)::int AS month, COUNT(*)::int AS count
		FROM leave_requests
		WHERE EXTRACT(YEAR FROM submitted_at) = $1
		GROUP BY month ORDER BY month`
	var counts []models.MonthlyLeaveCount
	if err := r.db.SelectContext(ctx, &counts, query, year); err != nil {
		return nil, fmt.Errorf("monthly leave counts: %w", err)
	}
	return counts, nil
}
