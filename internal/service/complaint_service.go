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

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	FindByUser(ctx context.Context, userID string) ([]models.Complaint, error)
	FindAll(ctx context.Context) ([]models.Complaint, error)
	FindByAssignee(ctx context.Context, staffID string) ([]models.Complaint, error)
	FindUnassigned(ctx context.Context) ([]models.Complaint, error)
	Assign(ctx context.Context, id, staffID string) error
	Update(ctx context.Context, complaint *models.Complaint) error
	Delete(ctx context.Context, id string) error
}

type complaintUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ComplaintService implements the complaint workflow. Status is operator-set
// and may move backwards; only the assignment side effect and the set-once
// resolved_at timestamp are enforced here.
type ComplaintService struct {
	repo      complaintRepository
	users     complaintUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs a ComplaintService instance.
func NewComplaintService(repo complaintRepository, users complaintUserRepository, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ComplaintService{repo: repo, users: users, validator: validate, logger: logger}
}

// Submit records a new complaint for the acting user. Priority defaults to
// MEDIUM and status to OPEN.
func (s *ComplaintService) Submit(ctx context.Context, actor *models.JWTClaims, req models.SubmitComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	priority := models.PriorityMedium
	if req.Priority != "" {
		priority = models.ComplaintPriority(req.Priority)
	}

	complaint := &models.Complaint{
		UserID:      actor.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    priority,
		Status:      models.ComplaintOpen,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}

	s.logger.Info("complaint submitted", zap.String("complaint_id", complaint.ID), zap.String("user_id", actor.UserID))
	return complaint, nil
}

// My returns complaints submitted by the acting user.
func (s *ComplaintService) My(ctx context.Context, actor *models.JWTClaims) ([]models.Complaint, error) {
	complaints, err := s.repo.FindByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return complaints, nil
}

// All returns every complaint.
func (s *ComplaintService) All(ctx context.Context) ([]models.Complaint, error) {
	complaints, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return complaints, nil
}

// Assigned returns complaints assigned to the acting staff member.
func (s *ComplaintService) Assigned(ctx context.Context, actor *models.JWTClaims) ([]models.Complaint, error) {
	complaints, err := s.repo.FindByAssignee(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned complaints")
	}
	return complaints, nil
}

// Unassigned returns complaints without an assignee.
func (s *ComplaintService) Unassigned(ctx context.Context) ([]models.Complaint, error) {
	complaints, err := s.repo.FindUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned complaints")
	}
	return complaints, nil
}

// Assign hands a complaint to a staff member and moves it to IN_PROGRESS.
// Reassignment is allowed regardless of the current status; last write wins.
func (s *ComplaintService) Assign(ctx context.Context, actor *models.JWTClaims, complaintID, staffID string) (*models.Complaint, error) {
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers and admins may assign complaints")
	}

	complaint, err := s.findComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, staffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	if err := s.repo.Assign(ctx, complaintID, staffID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign complaint")
	}

	complaint.AssignedToID = &staffID
	complaint.Status = models.ComplaintInProgress

	s.logger.Info("complaint assigned",
		zap.String("complaint_id", complaintID),
		zap.String("staff_id", staffID),
		zap.String("assigned_by", actor.UserID))

	return complaint, nil
}

// Update applies the provided status and/or resolution. Only the currently
// assigned staff member or an admin may update; resolved_at is stamped the
// first time the status becomes RESOLVED and never moves afterwards.
func (s *ComplaintService) Update(ctx context.Context, actor *models.JWTClaims, complaintID string, req models.UpdateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint update payload")
	}

	complaint, err := s.findComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	isAssignee := complaint.AssignedToID != nil && *complaint.AssignedToID == actor.UserID
	if !isAssignee && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned staff member or an admin may update this complaint")
	}

	if req.Status != nil {
		complaint.Status = models.ComplaintStatus(*req.Status)
	}
	if req.Resolution != nil {
		complaint.Resolution = req.Resolution
	}
	// Candidate stamp only: the repository statement keeps an already
	// stored resolved_at and writes the winner back into the model.
	if complaint.Status == models.ComplaintResolved && complaint.ResolvedAt == nil {
		now := time.Now().UTC()
		complaint.ResolvedAt = &now
	}

	if err := s.repo.Update(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint")
	}

	s.logger.Info("complaint updated", zap.String("complaint_id", complaintID), zap.String("updated_by", actor.UserID))
	return complaint, nil
}

// Delete permanently removes a complaint. Admin only.
func (s *ComplaintService) Delete(ctx context.Context, actor *models.JWTClaims, complaintID string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may delete complaints")
	}

	if _, err := s.findComplaint(ctx, complaintID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, complaintID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete complaint")
	}

	s.logger.Info("complaint deleted", zap.String("complaint_id", complaintID), zap.String("deleted_by", actor.UserID))
	return nil
}

func (s *ComplaintService) findComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	return complaint, nil
}
