package models

import "time"

// LeaveStatus enumerates the leave request state machine. PENDING is the only
// non-terminal state; APPROVED and REJECTED admit no further transitions.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

// LeaveRequest is a leave record owned by the submitting employee.
// ManagerID and ProcessedAt are written exactly once, on the transition out
// of PENDING.
type LeaveRequest struct {
	ID          string      `db:"id" json:"id"`
	EmployeeID  string      `db:"employee_id" json:"employee_id"`
	StartDate   time.Time   `db:"start_date" json:"start_date"`
	EndDate     time.Time   `db:"end_date" json:"end_date"`
	Reason      string      `db:"reason" json:"reason"`
	Status      LeaveStatus `db:"status" json:"status"`
	ManagerID   *string     `db:"manager_id" json:"manager_id,omitempty"`
	SubmittedAt time.Time   `db:"submitted_at" json:"submitted_at"`
	ProcessedAt *time.Time  `db:"processed_at" json:"processed_at,omitempty"`
}

// SubmitLeaveRequest is the payload for a new leave submission. Dates use
// the YYYY-MM-DD calendar-day format; both bounds are inclusive.
type SubmitLeaveRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required"`
}

// LeaveStats aggregates counts by status for the admin dashboard.
type LeaveStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// MonthlyLeaveCount is one point of the monthly submission series.
type MonthlyLeaveCount struct {
	Month int `db:"month" json:"month"`
	Count int `db:"count" json:"count"`
}
