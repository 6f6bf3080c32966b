package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/repository"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type stubIdentityRepo struct {
	users map[string]*models.User
	calls int
}

func (s *stubIdentityRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.calls++
	user, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func TestIdentityServiceResolveActive(t *testing.T) {
	repo := &stubIdentityRepo{users: map[string]*models.User{
		"a@x.com": {ID: "u1", Email: "a@x.com", Active: true, Role: models.RoleEmployee},
	}}
	// A cache with no client always misses, so every call falls through to
	// the repository.
	cache := repository.NewIdentityCache(nil, time.Minute, zap.NewNop())
	svc := NewIdentityService(repo, cache, nil, zap.NewNop())

	user, err := svc.ResolveActive(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, 1, repo.calls)
}

func TestIdentityServiceResolveMissingAccount(t *testing.T) {
	svc := NewIdentityService(&stubIdentityRepo{users: map[string]*models.User{}}, nil, nil, zap.NewNop())

	_, err := svc.ResolveActive(context.Background(), "gone@x.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestIdentityServiceResolveDisabledAccount(t *testing.T) {
	repo := &stubIdentityRepo{users: map[string]*models.User{
		"a@x.com": {ID: "u1", Email: "a@x.com", Active: false},
	}}
	svc := NewIdentityService(repo, nil, nil, zap.NewNop())

	_, err := svc.ResolveActive(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountDisabled.Code, appErrors.FromError(err).Code)
}
