package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/smart-workplace/portal-api/internal/models"
	"github.com/smart-workplace/portal-api/internal/repository"
	appErrors "github.com/smart-workplace/portal-api/pkg/errors"
)

type identityUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// IdentityService resolves token subjects to stored identities for the
// request authorizer, backed by the redis identity cache. A token whose
// subject does not resolve to an active account denies the request no
// matter how valid the signature is.
type IdentityService struct {
	repo    identityUserRepository
	cache   *repository.IdentityCache
	metrics *MetricsService
	logger  *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(repo identityUserRepository, cache *repository.IdentityCache, metrics *MetricsService, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// ResolveActive returns the active identity for an email. Missing accounts
// map to UNAUTHORIZED; deactivated accounts to ACCOUNT_DISABLED.
func (s *IdentityService) ResolveActive(ctx context.Context, email string) (*models.User, error) {
	if s.cache != nil {
		if user, err := s.cache.Get(ctx, email); err == nil {
			s.metrics.RecordIdentityLookup(true)
			return s.checkActive(user)
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("identity cache read failed", zap.Error(err))
		}
	}
	s.metrics.RecordIdentityLookup(false)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve identity")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, user); err != nil {
			s.logger.Warn("identity cache write failed", zap.Error(err))
		}
	}

	return s.checkActive(user)
}

func (s *IdentityService) checkActive(user *models.User) (*models.User, error) {
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "")
	}
	return user, nil
}
