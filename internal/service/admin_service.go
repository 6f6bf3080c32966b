package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/repository"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
	"github.com/smart-workplace/portal-api/pkg/export"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	CountByActive(ctx context.Context, active bool) (int, error)
	Count(ctx context.Context) (int, error)
}

type adminLeaveRepository interface {
	CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error)
	Count(ctx context.Context) (int, error)
	MonthlyCounts(ctx context.Context, year int) ([]models.MonthlyLeaveCount, error)
}

type adminComplaintRepository interface {
	CountByStatus(ctx context.Context, status models.ComplaintStatus) (int, error)
	Count(ctx context.Context) (int, error)
}

// AdminService covers user administration and the statistics dashboard.
// Every identity mutation invalidates the identity cache entry so the
// authorizer observes the change on the next request.
type AdminService struct {
	users      adminUserRepository
	leaves     adminLeaveRepository
	complaints adminComplaintRepository
	cache      *repository.IdentityCache
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(
	users adminUserRepository,
	leaves adminLeaveRepository,
	complaints adminComplaintRepository,
	cache *repository.IdentityCache,
	validate *validator.Validate,
	logger *zap.Logger,
) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		users:      users,
		leaves:     leaves,
		complaints: complaints,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
	}
}

// ListUsers returns users matching the filter with pagination metadata.
func (s *AdminService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetUser returns a single user by identifier.
func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, id)
}

// UpdateRole changes a user's role and drops the cached identity.
func (s *AdminService) UpdateRole(ctx context.Context, id string, req models.UpdateRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	role := models.UserRole(req.Role)
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	user.Role = role

	s.invalidateIdentity(ctx, user.Email)
	s.logger.Info("user role updated", zap.String("user_id", id), zap.String("role", req.Role))
	return user, nil
}

// SetActive enables or disables an account and drops the cached identity.
// Disabling takes effect on the user's next request.
func (s *AdminService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account state")
	}
	user.Active = active

	s.invalidateIdentity(ctx, user.Email)
	s.logger.Info("user active flag changed", zap.String("user_id", id), zap.Bool("active", active))
	return user, nil
}

// DeleteUser soft-deletes an account by deactivating it and drops the cached
// identity.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.invalidateIdentity(ctx, user.Email)
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// UserStats aggregates account counts by role and active state.
func (s *AdminService) UserStats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}
	var err error

	if stats.Total, err = s.users.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	if stats.Employees, err = s.users.CountByRole(ctx, models.RoleEmployee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count employees")
	}
	if stats.Managers, err = s.users.CountByRole(ctx, models.RoleManager); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count managers")
	}
	if stats.Admins, err = s.users.CountByRole(ctx, models.RoleAdmin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count admins")
	}
	if stats.Active, err = s.users.CountByActive(ctx, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active users")
	}
	stats.Inactive = stats.Total - stats.Active

	return stats, nil
}

// LeaveStats aggregates leave request counts by status.
func (s *AdminService) LeaveStats(ctx context.Context) (*models.LeaveStats, error) {
	stats := &models.LeaveStats{}
	var err error

	if stats.Total, err = s.leaves.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leave requests")
	}
	if stats.Pending, err = s.leaves.CountByStatus(ctx, models.LeavePending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	if stats.Approved, err = s.leaves.CountByStatus(ctx, models.LeaveApproved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approved requests")
	}
	if stats.Rejected, err = s.leaves.CountByStatus(ctx, models.LeaveRejected); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rejected requests")
	}

	return stats, nil
}

// ComplaintStats aggregates complaint counts by status. The resolution rate
// counts RESOLVED and CLOSED complaints against the total.
func (s *AdminService) ComplaintStats(ctx context.Context) (*models.ComplaintStats, error) {
	stats := &models.ComplaintStats{}
	var err error

	if stats.Total, err = s.complaints.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count complaints")
	}
	if stats.Open, err = s.complaints.CountByStatus(ctx, models.ComplaintOpen); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open complaints")
	}
	if stats.InProgress, err = s.complaints.CountByStatus(ctx, models.ComplaintInProgress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count in-progress complaints")
	}
	if stats.Resolved, err = s.complaints.CountByStatus(ctx, models.ComplaintResolved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count resolved complaints")
	}
	if stats.Closed, err = s.complaints.CountByStatus(ctx, models.ComplaintClosed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count closed complaints")
	}

	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved+stats.Closed) / float64(stats.Total) * 100
	}

	return stats, nil
}

// Dashboard combines the three stat blocks into a single payload.
func (s *AdminService) Dashboard(ctx context.Context) (*models.DashboardData, error) {
	users, err := s.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	leaves, err := s.LeaveStats(ctx)
	if err != nil {
		return nil, err
	}
	complaints, err := s.ComplaintStats(ctx)
	if err != nil {
		return nil, err
	}

	return &models.DashboardData{Users: *users, Leaves: *leaves, Complaints: *complaints}, nil
}

// MonthlyLeaveSeries returns leave submissions per month for a year.
func (s *AdminService) MonthlyLeaveSeries(ctx context.Context, year int) ([]models.MonthlyLeaveCount, error) {
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	counts, err := s.leaves.MonthlyCounts(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly leave counts")
	}
	return counts, nil
}

// ExportLeaveStats renders the leave statistics report in the requested
// format, csv or pdf.
func (s *AdminService) ExportLeaveStats(ctx context.Context, format string, year int) ([]byte, string, error) {
	stats, err := s.LeaveStats(ctx)
	if err != nil {
		return nil, "", err
	}
	series, err := s.MonthlyLeaveSeries(ctx, year)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Total", "Value": strconv.Itoa(stats.Total)},
			{"Metric": "Pending", "Value": strconv.Itoa(stats.Pending)},
			{"Metric": "Approved", "Value": strconv.Itoa(stats.Approved)},
			{"Metric": "Rejected", "Value": strconv.Itoa(stats.Rejected)},
		},
	}
	for _, point := range series {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Metric": fmt.Sprintf("Month %02d submissions", point.Month),
			"Value":  strconv.Itoa(point.Count),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Leave Statistics")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *AdminService) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *AdminService) invalidateIdentity(ctx context.Context, email string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, email); err != nil {
		s.logger.Warn("identity cache invalidation failed", zap.String("email", email), zap.Error(err))
	}
}
