package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-workplace/portal-api/internal/middleware"
	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/service"
)

type fakeLeaveRepo struct {
	leaves map[string]*models.LeaveRequest
}

func newFakeLeaveRepo() *fakeLeaveRepo {
	return &fakeLeaveRepo{leaves: make(map[string]*models.LeaveRequest)}
}

func (f *fakeLeaveRepo) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = "leave-1"
	}
	stored := *leave
	f.leaves[leave.ID] = &stored
	return nil
}

func (f *fakeLeaveRepo) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, ok := f.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *leave
	return &copied, nil
}

func (f *fakeLeaveRepo) FindByEmployee(ctx context.Context, employeeID string) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, leave := range f.leaves {
		if leave.EmployeeID == employeeID {
			out = append(out, *leave)
		}
	}
	return out, nil
}

func (f *fakeLeaveRepo) FindAll(ctx context.Context) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, leave := range f.leaves {
		out = append(out, *leave)
	}
	return out, nil
}

func (f *fakeLeaveRepo) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]models.LeaveRequest, error) {
	return nil, nil
}

func (f *fakeLeaveRepo) Decide(ctx context.Context, id string, status models.LeaveStatus, managerID string, processedAt time.Time) (bool, error) {
	leave, ok := f.leaves[id]
	if !ok || leave.Status != models.LeavePending {
		return false, nil
	}
	leave.Status = status
	leave.ManagerID = &managerID
	leave.ProcessedAt = &processedAt
	return true, nil
}

func newLeaveTestContext(t *testing.T, claims *models.JWTClaims, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestLeaveHandlerSubmitCreated(t *testing.T) {
	handler := NewLeaveHandler(service.NewLeaveService(newFakeLeaveRepo(), nil, nil, nil))

	claims := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}
	c, rec := newLeaveTestContext(t, claims, http.MethodPost, "/api/leave/submit", models.SubmitLeaveRequest{
		StartDate: "2025-02-01",
		EndDate:   "2025-02-05",
		Reason:    "vacation",
	})

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.LeaveRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.LeavePending, envelope.Data.Status)
	assert.Equal(t, "emp-1", envelope.Data.EmployeeID)
}

func TestLeaveHandlerSubmitInvalidRange(t *testing.T) {
	handler := NewLeaveHandler(service.NewLeaveService(newFakeLeaveRepo(), nil, nil, nil))

	claims := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}
	c, rec := newLeaveTestContext(t, claims, http.MethodPost, "/api/leave/submit", models.SubmitLeaveRequest{
		StartDate: "2025-01-10",
		EndDate:   "2025-01-05",
		Reason:    "inverted",
	})

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_RANGE", envelope.Error.Code)
}

func TestLeaveHandlerSubmitWithoutClaims(t *testing.T) {
	handler := NewLeaveHandler(service.NewLeaveService(newFakeLeaveRepo(), nil, nil, nil))

	c, rec := newLeaveTestContext(t, nil, http.MethodPost, "/api/leave/submit", models.SubmitLeaveRequest{
		StartDate: "2025-02-01",
		EndDate:   "2025-02-05",
		Reason:    "vacation",
	})

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaveHandlerApproveAsEmployeeForbidden(t *testing.T) {
	repo := newFakeLeaveRepo()
	repo.leaves["l1"] = &models.LeaveRequest{ID: "l1", EmployeeID: "emp-1", Status: models.LeavePending}
	handler := NewLeaveHandler(service.NewLeaveService(repo, nil, nil, nil))

	claims := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}
	c, rec := newLeaveTestContext(t, claims, http.MethodPut, "/api/leave/l1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeaveHandlerApproveAsManager(t *testing.T) {
	repo := newFakeLeaveRepo()
	repo.leaves["l1"] = &models.LeaveRequest{ID: "l1", EmployeeID: "emp-1", Status: models.LeavePending}
	handler := NewLeaveHandler(service.NewLeaveService(repo, nil, nil, nil))

	claims := &models.JWTClaims{UserID: "mgr-1", Role: models.RoleManager}
	c, rec := newLeaveTestContext(t, claims, http.MethodPut, "/api/leave/l1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.LeaveRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.LeaveApproved, envelope.Data.Status)
}
