package models

// UserStats aggregates account counts for the admin dashboard.
type UserStats struct {
	Total     int `json:"total"`
	Employees int `json:"employees"`
	Managers  int `json:"managers"`
	Admins    int `json:"admins"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=EMPLOYEE MANAGER ADMIN"`
}

// DashboardData is the combined admin overview payload.
type DashboardData struct {
	Users      UserStats      `json:"users"`
	Leaves     LeaveStats     `json:"leaves"`
	Complaints ComplaintStats `json:"complaints"`
}
