package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/civreg/personnel-api/internal/dto"
	"github.com/civreg/personnel-api/internal/models"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
)

const (
	dashboardStatsKey = "stats:dashboard"
	adminStatsKey     = "stats:admin"
)

type recordStatsProvider interface {
	Stats(ctx context.Context) (*models.RecordStats, error)
}

type userStatsProvider interface {
	Stats(ctx context.Context) (*models.UserStats, error)
}

type auditStatsProvider interface {
	Stats(ctx context.Context) (*models.AuditStats, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService assembles cached statistics for the dashboard endpoints.
type DashboardService struct {
	records  recordStatsProvider
	users    userStatsProvider
	audits   auditStatsProvider
	cache    statsCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(records recordStatsProvider, users userStatsProvider, audits auditStatsProvider, cache statsCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{records: records, users: users, audits: audits, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Overview returns record statistics for any authenticated user. The second
// return value reports whether the payload came from cache.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardStatsResponse, bool, error) {
	var cached dto.DashboardStatsResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, dashboardStatsKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	recordStats, err := s.records.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate record stats")
	}

	resp := &dto.DashboardStatsResponse{Records: *recordStats, GeneratedAt: time.Now().UTC()}
	s.store(ctx, dashboardStatsKey, resp)
	return resp, false, nil
}

// AdminOverview returns the combined account, record and audit statistics for
// the admin dashboard.
func (s *DashboardService) AdminOverview(ctx context.Context) (*dto.AdminStatsResponse, bool, error) {
	var cached dto.AdminStatsResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, adminStatsKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	recordStats, err := s.records.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate record stats")
	}
	userStats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate user stats")
	}
	auditStats, err := s.audits.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate audit stats")
	}

	resp := &dto.AdminStatsResponse{
		Records:     *recordStats,
		Users:       *userStats,
		Audit:       *auditStats,
		GeneratedAt: time.Now().UTC(),
	}
	s.store(ctx, adminStatsKey, resp)
	return resp, false, nil
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache stats payload", zap.String("key", key), zap.Error(err))
	}
}
