package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smart-workplace/portal-api/internal/models"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
	"github.com/smart-workplace/portal-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	Validate(token string) (*models.JWTClaims, error)
}

type identityResolver interface {
	ResolveActive(ctx context.Context, email string) (*models.User, error)
}

type decisionRecorder interface {
	RecordAuthzDecision(outcome string)
}

// Authorizer is the single request gate: it authenticates the bearer token,
// resolves the subject to an active identity and enforces the route policy
// table. Routes not covered by a policy still require authentication.
type Authorizer struct {
	tokens   tokenValidator
	identity identityResolver
	policies *PolicyTable
	metrics  decisionRecorder
}

// NewAuthorizer builds an Authorizer over the given policy table. The
// identity resolver must reject missing or deactivated accounts.
func NewAuthorizer(tokens tokenValidator, identity identityResolver, policies *PolicyTable, metrics decisionRecorder) *Authorizer {
	return &Authorizer{tokens: tokens, identity: identity, policies: policies, metrics: metrics}
}

// Handler returns the gin middleware enforcing the policy table.
func (a *Authorizer) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if a.policies.IsPublic(path) {
			// Attach claims opportunistically so public endpoints like
			// /auth/me can read them, but never block.
			if claims, err := a.authenticate(c); err == nil {
				c.Set(ContextUserKey, claims)
			}
			c.Next()
			return
		}

		claims, err := a.authenticate(c)
		if err != nil {
			a.record("unauthenticated")
			response.Error(c, err)
			c.Abort()
			return
		}

		policy, matched := a.policies.Match(c.Request.Method, path)
		if matched && !policy.Allows(claims.Role) {
			a.record("denied")
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		a.record("allowed")
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func (a *Authorizer) authenticate(c *gin.Context) (*models.JWTClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, appErrors.ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}

	claims, err := a.tokens.Validate(parts[1])
	if err != nil {
		return nil, err
	}

	// Identity is re-resolved on every request so a deactivation or deletion
	// takes effect before the token expires.
	if a.identity != nil {
		if _, err := a.identity.ResolveActive(c.Request.Context(), claims.Subject); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

func (a *Authorizer) record(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordAuthzDecision(outcome)
	}
}

// CurrentUser extracts the authenticated claims from the gin context.
func CurrentUser(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
