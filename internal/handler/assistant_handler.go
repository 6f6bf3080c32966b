package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/service"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
	"github.com/smart-workplace/portal-api/pkg/response"
)

// AssistantHandler wires HTTP endpoints to the assistant service.
type AssistantHandler struct {
	service *service.AssistantService
}

// NewAssistantHandler creates a new handler.
func NewAssistantHandler(svc *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// Chat godoc
// @Summary Ask the workplace assistant
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body models.ChatRequest true "Chat payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}

	res, err := h.service.Chat(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
