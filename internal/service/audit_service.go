package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civreg/personnel-api/internal/models"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
	Stats(ctx context.Context) (*models.AuditStats, error)
}

// AuditService exposes the audit trail for admin review.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService creates an instance of AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// List returns paginated audit entries and pagination metadata.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return entries, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Stats returns aggregated audit trail figures.
func (s *AuditService) Stats(ctx context.Context) (*models.AuditStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate audit stats")
	}
	return stats, nil
}
