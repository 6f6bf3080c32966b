package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/pkg/config"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type stubLeaveLister struct {
	leaves []models.LeaveRequest
}

func (s *stubLeaveLister) FindByEmployee(ctx context.Context, employeeID string) ([]models.LeaveRequest, error) {
	return s.leaves, nil
}

type stubComplaintLister struct {
	complaints []models.Complaint
}

func (s *stubComplaintLister) FindByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	return s.complaints, nil
}

func newTestAssistant(url string, timeout time.Duration) *AssistantService {
	cfg := config.AssistantConfig{
		Enabled:   true,
		APIKey:    "test-key",
		Model:     "test-model",
		URL:       url,
		Timeout:   timeout,
		MaxTokens: 100,
	}
	leaves := &stubLeaveLister{leaves: []models.LeaveRequest{{
		StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		Status:    models.LeaveApproved,
	}}}
	complaints := &stubComplaintLister{complaints: []models.Complaint{{
		Title:  "Broken chair",
		Status: models.ComplaintOpen,
	}}}
	return NewAssistantService(cfg, leaves, complaints, validator.New(), zap.NewNop())
}

func TestAssistantServiceChatSuccess(t *testing.T) {
	var captured completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Your leave is approved."}}]}`))
	}))
	defer server.Close()

	svc := newTestAssistant(server.URL, 5*time.Second)
	res, err := svc.Chat(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleEmployee, FullName: "Ava Stone"}, models.ChatRequest{Message: "Is my leave approved?"})
	require.NoError(t, err)
	assert.Equal(t, "Your leave is approved.", res.Reply)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "2025-02-01")
	assert.Contains(t, captured.Messages[0].Content, "Broken chair")
	assert.Equal(t, "Is my leave approved?", captured.Messages[1].Content)
}

func TestAssistantServiceChatUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestAssistant(server.URL, 5*time.Second)
	_, err := svc.Chat(context.Background(), &models.JWTClaims{UserID: "u1"}, models.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
}

func TestAssistantServiceChatTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	svc := newTestAssistant(server.URL, 20*time.Millisecond)
	_, err := svc.Chat(context.Background(), &models.JWTClaims{UserID: "u1"}, models.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
}

func TestAssistantServiceChatDisabled(t *testing.T) {
	svc := NewAssistantService(config.AssistantConfig{Enabled: false}, &stubLeaveLister{}, &stubComplaintLister{}, validator.New(), zap.NewNop())

	_, err := svc.Chat(context.Background(), &models.JWTClaims{UserID: "u1"}, models.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
}

func TestAssistantServiceChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	svc := newTestAssistant(server.URL, 5*time.Second)
	_, err := svc.Chat(context.Background(), &models.JWTClaims{UserID: "u1"}, models.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
}
