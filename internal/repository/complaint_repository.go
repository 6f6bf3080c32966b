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

const complaintColumns = `id, user_id, title, description, category, priority, status, assigned_to, resolution, submitted_at, updated_at, resolved_at`

// ComplaintRepository provides database access for complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new instance of ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a new complaint.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if complaint.SubmittedAt.IsZero() {
		complaint.SubmittedAt = now
	}
	complaint.UpdatedAt = now

	const query = `INSERT INTO complaints (id, user_id, title, description, category, priority, status, assigned_to, resolution, submitted_at, updated_at, resolved_at)
		VALUES (:id, :user_id, :title, :description, :category, :priority, :status, :assigned_to, :resolution, :submitted_at, :updated_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// FindByID returns a complaint by identifier.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id = $1 LIMIT 1`, complaintColumns)
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by id: %w", err)
	}
	return &complaint, nil
}

// FindByUser returns complaints submitted by the user.
func (r *ComplaintRepository) FindByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE user_id = $1 ORDER BY submitted_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, userID); err != nil {
		return nil, fmt.Errorf("find complaints by user: %w", err)
	}
	return complaints, nil
}

// FindAll returns every complaint ordered by submission time.
func (r *ComplaintRepository) FindAll(ctx context.Context) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints ORDER BY submitted_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query); err != nil {
		return nil, fmt.Errorf("find all complaints: %w", err)
	}
	return complaints, nil
}

// FindByAssignee returns complaints assigned to the given staff member.
func (r *ComplaintRepository) FindByAssignee(ctx context.Context, staffID string) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE assigned_to = $1 ORDER BY submitted_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, staffID); err != nil {
		return nil, fmt.Errorf("find complaints by assignee: %w", err)
	}
	return complaints, nil
}

// FindUnassigned returns complaints without an assignee.
func (r *ComplaintRepository) FindUnassigned(ctx context.Context) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE assigned_to IS NULL ORDER BY submitted_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query); err != nil {
		return nil, fmt.Errorf("find unassigned complaints: %w", err)
	}
	return complaints, nil
}

// Assign sets the assignee and moves the complaint to IN_PROGRESS.
// Last write wins; assignment is not guarded on current status.
func (r *ComplaintRepository) Assign(ctx context.Context, id, staffID string) error {
	const query = `UPDATE complaints SET assigned_to = $2, status = 'IN_PROGRESS', updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, staffID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign complaint: %w", err)
	}
	return nil
}

// Update persists status and resolution. resolved_at is stamped inside the
// statement the first time the status becomes RESOLVED and an already stored
// stamp always wins, so concurrent updates cannot move it. The model is
// refreshed with the stored value.
func (r *ComplaintRepository) Update(ctx context.Context, complaint *models.Complaint) error {
	complaint.UpdatedAt = time.Now().UTC()
	const query = `UPDATE complaints
		SET status = $2,
			resolution = $3,
			resolved_at = CASE WHEN $2 = 'RESOLVED' THEN COALESCE(resolved_at, $4) ELSE resolved_at END,
			updated_at = $5
		WHERE id = $1
		RETURNING resolved_at`
	row := r.db.QueryRowContext(ctx, query, complaint.ID, complaint.Status, complaint.Resolution, complaint.ResolvedAt, complaint.UpdatedAt)
	if err := row.Scan(&complaint.ResolvedAt); err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	return nil
}

// Delete permanently removes a complaint. Unlike identities, complaints are
// hard-deleted.
func (r *ComplaintRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM complaints WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete complaint: %w", err)
	}
	return nil
}

// CountByStatus returns the number of complaints in the given status.
func (r *ComplaintRepository) CountByStatus(ctx context.Context, status models.ComplaintStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count complaints by status: %w", err)
	}
	return count, nil
}

// Count returns the total number of complaints.
func (r *ComplaintRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count complaints: %w", err)
	}
	return count, nil
}
