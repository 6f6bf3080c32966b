package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-workplace/portal-api/internal/models"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type stubTokens struct {
	claims map[string]*models.JWTClaims
}

func (s *stubTokens) Validate(token string) (*models.JWTClaims, error) {
	claims, ok := s.claims[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "malformed token")
	}
	return claims, nil
}

type stubIdentities struct {
	disabled map[string]bool
	missing  map[string]bool
}

func (s *stubIdentities) ResolveActive(ctx context.Context, email string) (*models.User, error) {
	if s.missing[email] {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	}
	if s.disabled[email] {
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "")
	}
	return &models.User{Email: email, Active: true}, nil
}

func claimsFor(role models.UserRole, email string) *models.JWTClaims {
	c := &models.JWTClaims{UserID: "id-" + email, Role: role}
	c.Subject = email
	return c
}

func newTestRouter(identities *stubIdentities) (*gin.Engine, *stubTokens) {
	gin.SetMode(gin.TestMode)
	tokens := &stubTokens{claims: map[string]*models.JWTClaims{
		"employee-token": claimsFor(models.RoleEmployee, "emp@x.com"),
		"manager-token":  claimsFor(models.RoleManager, "mgr@x.com"),
		"admin-token":    claimsFor(models.RoleAdmin, "adm@x.com"),
	}}
	if identities == nil {
		identities = &stubIdentities{}
	}

	authorizer := NewAuthorizer(tokens, identities, DefaultPolicies(), nil)

	r := gin.New()
	r.Use(authorizer.Handler())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.POST("/api/auth/login", ok)
	r.POST("/api/leave/submit", ok)
	r.GET("/api/leave/all", ok)
	r.PUT("/api/leave/:id/approve", ok)
	r.DELETE("/api/complaints/:id", ok)
	r.GET("/api/admin/users", ok)
	r.POST("/api/assistant/chat", ok)
	r.GET("/api/unlisted", ok)
	return r, tokens
}

func do(t *testing.T, r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthorizerPublicPathsSkipAuth(t *testing.T) {
	r, _ := newTestRouter(nil)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/auth/login", "").Code)
}

func TestAuthorizerRequiresToken(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := do(t, r, http.MethodPost, "/api/leave/submit", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/leave/submit", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizerRoleEnforcement(t *testing.T) {
	r, _ := newTestRouter(nil)

	// Any authenticated role may submit leave.
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/leave/submit", "employee-token").Code)

	// Listing all requests is manager/admin only.
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/leave/all", "employee-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/leave/all", "manager-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/leave/all", "admin-token").Code)

	// Approvals follow the same rule for parameterized paths.
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPut, "/api/leave/l1/approve", "employee-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/api/leave/l1/approve", "manager-token").Code)

	// Complaint deletion is admin only.
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodDelete, "/api/complaints/c1", "manager-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/api/complaints/c1", "admin-token").Code)

	// The admin catch-all denies everyone else.
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/admin/users", "employee-token").Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/admin/users", "manager-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/admin/users", "admin-token").Code)

	// Assistant is open to all authenticated roles.
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/assistant/chat", "employee-token").Code)
}

func TestAuthorizerDenyByDefaultStillRequiresAuth(t *testing.T) {
	r, _ := newTestRouter(nil)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/unlisted", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/unlisted", "employee-token").Code)
}

func TestAuthorizerRejectsDeactivatedIdentity(t *testing.T) {
	identities := &stubIdentities{disabled: map[string]bool{"emp@x.com": true}}
	r, _ := newTestRouter(identities)

	w := do(t, r, http.MethodPost, "/api/leave/submit", "employee-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizerRejectsMissingIdentity(t *testing.T) {
	identities := &stubIdentities{missing: map[string]bool{"emp@x.com": true}}
	r, _ := newTestRouter(identities)

	w := do(t, r, http.MethodPost, "/api/leave/submit", "employee-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizerCustomPrefixKeepsAdminGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := &stubTokens{claims: map[string]*models.JWTClaims{
		"employee-token": claimsFor(models.RoleEmployee, "emp@x.com"),
		"admin-token":    claimsFor(models.RoleAdmin, "adm@x.com"),
	}}
	authorizer := NewAuthorizer(tokens, &stubIdentities{}, PoliciesFor("/portal/v1"), nil)

	r := gin.New()
	r.Use(authorizer.Handler())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/portal/v1/auth/login", ok)
	r.GET("/portal/v1/admin/users", ok)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/portal/v1/auth/login", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/portal/v1/admin/users", "employee-token").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/portal/v1/admin/users", "admin-token").Code)
}

func TestAuthorizerSetsClaimsInContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := &stubTokens{claims: map[string]*models.JWTClaims{
		"employee-token": claimsFor(models.RoleEmployee, "emp@x.com"),
	}}
	authorizer := NewAuthorizer(tokens, &stubIdentities{}, DefaultPolicies(), nil)

	r := gin.New()
	r.Use(authorizer.Handler())
	r.POST("/api/leave/submit", func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		require.True(t, ok)
		assert.Equal(t, "emp@x.com", claims.Subject)
		c.Status(http.StatusOK)
	})

	w := do(t, r, http.MethodPost, "/api/leave/submit", "employee-token")
	assert.Equal(t, http.StatusOK, w.Code)
}
