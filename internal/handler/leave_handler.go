package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/service"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
	"github.com/smart-workplace/portal-api/pkg/response"
)

// LeaveHandler wires HTTP endpoints to the leave service.
type LeaveHandler struct {
	service *service.LeaveService
}

// NewLeaveHandler creates a new handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Submit godoc
// @Summary Submit a leave request
// @Description Create a PENDING leave request for the authenticated employee
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body models.SubmitLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave/submit [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	leave, err := h.service.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, leave)
}

// MyRequests godoc
// @Summary List own leave requests
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave/my-requests [get]
func (h *LeaveHandler) MyRequests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	leaves, err := h.service.MyRequests(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leaves, nil)
}

// All godoc
// @Summary List all leave requests
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leave/all [get]
func (h *LeaveHandler) All(c *gin.Context) {
	leaves, err := h.service.All(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leaves, nil)
}

// Approve godoc
// @Summary Approve a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave/{id}/approve [put]
func (h *LeaveHandler) Approve(c *gin.Context) {
	h.decide(c, models.LeaveApproved)
}

// Reject godoc
// @Summary Reject a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave/{id}/reject [put]
func (h *LeaveHandler) Reject(c *gin.Context) {
	h.decide(c, models.LeaveRejected)
}

func (h *LeaveHandler) decide(c *gin.Context, outcome models.LeaveStatus) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	leave, err := h.service.Decide(c.Request.Context(), claims, c.Param("id"), outcome)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}
