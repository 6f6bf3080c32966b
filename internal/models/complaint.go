package models

import "time"

// ComplaintStatus enumerates complaint states. Progression is operator-set
// and deliberately not forced into a forward-only order; only the assignment
// side effect and the set-once resolved_at are machine-enforced.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "OPEN"
	ComplaintInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintResolved   ComplaintStatus = "RESOLVED"
	ComplaintClosed     ComplaintStatus = "CLOSED"
)

// Valid reports whether the status is a known value.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintOpen, ComplaintInProgress, ComplaintResolved, ComplaintClosed:
		return true
	}
	return false
}

// ComplaintPriority enumerates priority levels.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "LOW"
	PriorityMedium ComplaintPriority = "MEDIUM"
	PriorityHigh   ComplaintPriority = "HIGH"
	PriorityUrgent ComplaintPriority = "URGENT"
)

// Complaint tracks a workplace issue raised by a user.
type Complaint struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"user_id"`
	Title        string            `db:"title" json:"title"`
	Description  string            `db:"description" json:"description"`
	Category     *string           `db:"category" json:"category,omitempty"`
	Priority     ComplaintPriority `db:"priority" json:"priority"`
	Status       ComplaintStatus   `db:"status" json:"status"`
	AssignedToID *string           `db:"assigned_to" json:"assigned_to_id,omitempty"`
	Resolution   *string           `db:"resolution" json:"resolution,omitempty"`
	SubmittedAt  time.Time         `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
	ResolvedAt   *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
}

// SubmitComplaintRequest is the payload for a new complaint.
type SubmitComplaintRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

// UpdateComplaintRequest carries the optional status and resolution fields.
type UpdateComplaintRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Resolution *string `json:"resolution"`
}

// ComplaintStats aggregates counts by status for the admin dashboard.
type ComplaintStats struct {
	Total          int     `json:"total"`
	Open           int     `json:"open"`
	InProgress     int     `json:"inProgress"`
	Resolved       int     `json:"resolved"`
	Closed         int     `json:"closed"`
	ResolutionRate float64 `json:"resolutionRate"`
}
