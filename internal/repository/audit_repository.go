package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civreg/personnel-api/internal/models"
)

const auditColumns = `id, user_id, target_user_id, action, details, ip_address, user_agent, created_at`

// AuditRepository appends and reads audit trail entries. The application
// never issues UPDATE or DELETE statements against audit_logs.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit trail entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, target_user_id, action, details, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :target_user_id, :action, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit entries matching the filter with total count, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	baseQuery := `FROM audit_logs WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		baseQuery += fmt.Sprintf(" AND user_id = $%d", len(args)+1)
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		baseQuery += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", auditColumns, baseQuery, limit, offset)

	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	return entries, total, nil
}

// Stats aggregates the audit trail: totals, recent activity, per-action counts
// and the most active accounts.
func (r *AuditRepository) Stats(ctx context.Context) (*models.AuditStats, error) {
	stats := &models.AuditStats{}

	if err := r.db.GetContext(ctx, &stats.TotalEntries, `SELECT COUNT(*) FROM audit_logs`); err != nil {
		return nil, fmt.Errorf("audit total: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.Last24Hours,
		`SELECT COUNT(*) FROM audit_logs WHERE created_at >= NOW() - INTERVAL '24 hours'`); err != nil {
		return nil, fmt.Errorf("audit last 24h: %w", err)
	}
	if err := r.db.SelectContext(ctx, &stats.ByAction,
		`SELECT action, COUNT(*) AS count FROM audit_logs GROUP BY action ORDER BY count DESC`); err != nil {
		return nil, fmt.Errorf("audit by action: %w", err)
	}
	if err := r.db.SelectContext(ctx, &stats.TopActors,
		`SELECT user_id, COUNT(*) AS count FROM audit_logs WHERE user_id IS NOT NULL GROUP BY user_id ORDER BY count DESC LIMIT 5`); err != nil {
		return nil, fmt.Errorf("audit top actors: %w", err)
	}

	return stats, nil
}
