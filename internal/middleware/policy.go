package middleware

import (
	"strings"

	"github.com/smart-workplace/portal-api/internal/models"
)

// AnyMethod matches every HTTP method in a route policy.
const AnyMethod = "*"

// RoutePolicy grants the listed roles access to requests matching the method
// and path pattern. An empty role list means any authenticated identity.
// Pattern segments starting with ':' match exactly one path segment; a
// trailing '**' matches the remainder of the path.
type RoutePolicy struct {
	Method  string
	Pattern string
	Roles   []models.UserRole
}

// Matches reports whether the request method and path fall under this policy.
func (p RoutePolicy) Matches(method, path string) bool {
	if p.Method != AnyMethod && p.Method != method {
		return false
	}
	return matchPattern(p.Pattern, path)
}

// Allows reports whether the role satisfies the policy.
func (p RoutePolicy) Allows(role models.UserRole) bool {
	if len(p.Roles) == 0 {
		return true
	}
	for _, allowed := range p.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// PolicyTable bundles the ordered route policies with the public allow-list
// for one API prefix.
type PolicyTable struct {
	Policies []RoutePolicy

	publicPrefixes []string
	publicExact    map[string]struct{}
}

// DefaultPolicies returns the policy table for the default /api prefix.
func DefaultPolicies() *PolicyTable {
	return PoliciesFor("/api")
}

// PoliciesFor builds the ordered route policy table under the given API
// prefix, most specific first. The first matching entry decides; unmatched
// paths still require an authenticated identity. The prefix must match the
// one the routes are mounted under or every route falls into the
// unmatched authenticated-only bucket.
func PoliciesFor(prefix string) *PolicyTable {
	prefix = normalizePrefix(prefix)
	managers := []models.UserRole{models.RoleManager, models.RoleAdmin}
	admins := []models.UserRole{models.RoleAdmin}

	return &PolicyTable{
		Policies: []RoutePolicy{
			{Method: "POST", Pattern: prefix + "/leave/submit"},
			{Method: "GET", Pattern: prefix + "/leave/my-requests"},
			{Method: "GET", Pattern: prefix + "/leave/all", Roles: managers},
			{Method: "PUT", Pattern: prefix + "/leave/:id/approve", Roles: managers},
			{Method: "PUT", Pattern: prefix + "/leave/:id/reject", Roles: managers},

			{Method: "POST", Pattern: prefix + "/complaints"},
			{Method: "GET", Pattern: prefix + "/complaints/my"},
			{Method: "GET", Pattern: prefix + "/complaints/all", Roles: managers},
			{Method: "GET", Pattern: prefix + "/complaints/assigned", Roles: managers},
			{Method: "GET", Pattern: prefix + "/complaints/unassigned", Roles: managers},
			{Method: "PUT", Pattern: prefix + "/complaints/:id/assign/:staffId", Roles: managers},
			{Method: "PUT", Pattern: prefix + "/complaints/:id"},
			{Method: "DELETE", Pattern: prefix + "/complaints/:id", Roles: admins},

			{Method: AnyMethod, Pattern: prefix + "/admin/**", Roles: admins},
			{Method: AnyMethod, Pattern: prefix + "/assistant/**"},
		},
		publicPrefixes: []string{prefix + "/auth/"},
		publicExact: map[string]struct{}{
			"/health":  {},
			"/ready":   {},
			"/metrics": {},
			"/error":   {},
		},
	}
}

// Match returns the first policy covering the method and path.
func (t *PolicyTable) Match(method, path string) (RoutePolicy, bool) {
	for _, policy := range t.Policies {
		if policy.Matches(method, path) {
			return policy, true
		}
	}
	return RoutePolicy{}, false
}

// IsPublic reports whether a path is reachable without authentication. Auth
// endpoints match as a prefix; the operational endpoints are exact.
func (t *PolicyTable) IsPublic(path string) bool {
	if _, ok := t.publicExact[path]; ok {
		return true
	}
	for _, prefix := range t.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

func matchPattern(pattern, path string) bool {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	for i, part := range patternParts {
		if part == "**" {
			// Trailing wildcard swallows the rest, including nothing.
			return i == len(patternParts)-1
		}
		if i >= len(pathParts) {
			return false
		}
		if strings.HasPrefix(part, ":") {
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return len(patternParts) == len(pathParts)
}
