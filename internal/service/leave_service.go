package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type leaveRepository interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	FindByEmployee(ctx context.Context, employeeID string) ([]models.LeaveRequest, error)
	FindAll(ctx context.Context) ([]models.LeaveRequest, error)
	FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]models.LeaveRequest, error)
	Decide(ctx context.Context, id string, status models.LeaveStatus, managerID string, processedAt time.Time) (bool, error)
}

// LeaveService implements the leave request workflow. A request starts
// PENDING and transitions exactly once to APPROVED or REJECTED.
type LeaveService struct {
	repo      leaveRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService instance.
func NewLeaveService(repo leaveRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{repo: repo, validator: validate, metrics: metrics, logger: logger}
}

// Submit records a new leave request for the acting employee. The request is
// rejected when the range is inverted or when it intersects an existing
// PENDING or APPROVED request by the same employee (inclusive bounds).
func (s *LeaveService) Submit(ctx context.Context, actor *models.JWTClaims, req models.SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}

	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "")
	}

	overlapping, err := s.repo.FindOverlapping(ctx, actor.UserID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlapping requests")
	}
	if len(overlapping) > 0 {
		return nil, appErrors.Clone(appErrors.ErrOverlappingLeave, "")
	}

	leave := &models.LeaveRequest{
		EmployeeID:  actor.UserID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
		Status:      models.LeavePending,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	s.logger.Info("leave request submitted", zap.String("leave_id", leave.ID), zap.String("employee_id", actor.UserID))
	return leave, nil
}

// MyRequests returns the acting employee's leave requests.
func (s *LeaveService) MyRequests(ctx context.Context, actor *models.JWTClaims) ([]models.LeaveRequest, error) {
	leaves, err := s.repo.FindByEmployee(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, nil
}

// All returns every leave request in the system.
func (s *LeaveService) All(ctx context.Context) ([]models.LeaveRequest, error) {
	leaves, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, nil
}

// Decide approves or rejects a PENDING request. The transition is a
// conditional update guarded on the current status, so of two concurrent
// decisions exactly one wins and the loser observes ALREADY_PROCESSED.
func (s *LeaveService) Decide(ctx context.Context, actor *models.JWTClaims, leaveID string, outcome models.LeaveStatus) (*models.LeaveRequest, error) {
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers and admins may process leave requests")
	}
	if outcome != models.LeaveApproved && outcome != models.LeaveRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome must be APPROVED or REJECTED")
	}

	leave, err := s.repo.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}

	if leave.Status != models.LeavePending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "")
	}

	processedAt := time.Now().UTC()
	won, err := s.repo.Decide(ctx, leaveID, outcome, actor.UserID, processedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave request")
	}
	if !won {
		// Lost the race against a concurrent decision.
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "")
	}

	leave.Status = outcome
	leave.ManagerID = &actor.UserID
	leave.ProcessedAt = &processedAt

	s.metrics.RecordLeaveDecision(string(outcome))
	s.logger.Info("leave request processed",
		zap.String("leave_id", leaveID),
		zap.String("status", string(outcome)),
		zap.String("manager_id", actor.UserID))

	return leave, nil
}
