package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/pkg/config"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type assistantLeaveRepository interface {
	FindByEmployee(ctx context.Context, employeeID string) ([]models.LeaveRequest, error)
}

type assistantComplaintRepository interface {
	FindByUser(ctx context.Context, userID string) ([]models.Complaint, error)
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// AssistantService proxies portal questions to an external chat completion
// API, prefixed with a summary of the caller's own leave requests and
// complaints. The upstream never sees credentials or other users' records.
type AssistantService struct {
	config     config.AssistantConfig
	leaves     assistantLeaveRepository
	complaints assistantComplaintRepository
	client     *http.Client
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAssistantService constructs an AssistantService.
func NewAssistantService(cfg config.AssistantConfig, leaves assistantLeaveRepository, complaints assistantComplaintRepository, validate *validator.Validate, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistantService{
		config:     cfg,
		leaves:     leaves,
		complaints: complaints,
		client:     &http.Client{Timeout: timeout},
		validator:  validate,
		logger:     logger,
	}
}

// Chat answers a user message. Upstream failures of any kind surface as
// EXTERNAL_SERVICE_UNAVAILABLE rather than leaking transport details.
func (s *AssistantService) Chat(ctx context.Context, actor *models.JWTClaims, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}
	if !s.config.Enabled || s.config.APIKey == "" {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "assistant is not configured")
	}

	systemPrompt, err := s.buildContext(ctx, actor)
	if err != nil {
		return nil, err
	}

	payload := completionRequest{
		Model: s.config.Model,
		Messages: []completionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Message},
		},
		Temperature: 0.7,
		MaxTokens:   s.config.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.Warn("assistant upstream request failed", zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrExternalService, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("assistant upstream returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, appErrors.Clone(appErrors.ErrExternalService, "")
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		s.logger.Warn("assistant upstream response unreadable", zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrExternalService, "")
	}
	if len(completion.Choices) == 0 {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "")
	}

	return &models.ChatResponse{
		Reply:       completion.Choices[0].Message.Content,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildContext summarizes the caller's own records for the system prompt.
func (s *AssistantService) buildContext(ctx context.Context, actor *models.JWTClaims) (string, error) {
	leaves, err := s.leaves.FindByEmployee(ctx, actor.UserID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave context")
	}
	complaints, err := s.complaints.FindByUser(ctx, actor.UserID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint context")
	}

	var b strings.Builder
	b.WriteString("You are the workplace portal assistant. Answer questions about the user's leave requests and complaints using the data below. Be concise.\n")
	fmt.Fprintf(&b, "User: %s (role %s)\n", actor.FullName, actor.Role)

	b.WriteString("Leave requests:\n")
	if len(leaves) == 0 {
		b.WriteString("- none\n")
	}
	for _, leave := range leaves {
		fmt.Fprintf(&b, "- %s to %s: %s\n",
			leave.StartDate.Format(time.DateOnly),
			leave.EndDate.Format(time.DateOnly),
			leave.Status)
	}

	b.WriteString("Complaints:\n")
	if len(complaints) == 0 {
		b.WriteString("- none\n")
	}
	for _, complaint := range complaints {
		fmt.Fprintf(&b, "- %q: %s\n", complaint.Title, complaint.Status)
	}

	return b.String(), nil
}
