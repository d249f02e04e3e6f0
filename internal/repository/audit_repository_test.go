package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civreg/personnel-api/internal/models"
)

var auditColumnNames = []string{
	"id", "user_id", "target_user_id", "action", "details", "ip_address", "user_agent", "created_at",
}

func TestAuditCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	actor := "u1"
	entry := &models.AuditLog{UserID: &actor, Action: models.AuditActionLogin, IPAddress: "10.0.0.1"}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	actor := "u1"
	rows := sqlmock.NewRows(auditColumnNames).
		AddRow("a1", &actor, nil, models.AuditActionRecordDelete, []byte(`{}`), "10.0.0.1", "curl", now)
	mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE 1=1 AND user_id = \$1 AND action = \$2 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("u1", models.AuditActionRecordDelete).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE 1=1`).
		WithArgs("u1", models.AuditActionRecordDelete).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.AuditLogFilter{UserID: "u1", Action: models.AuditActionRecordDelete})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE created_at >=`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))
	mock.ExpectQuery(`SELECT action, COUNT\(\*\) AS count FROM audit_logs GROUP BY action`).
		WillReturnRows(sqlmock.NewRows([]string{"action", "count"}).
			AddRow(models.AuditActionLogin, 80).
			AddRow(models.AuditActionRecordCreate, 40))
	mock.ExpectQuery(`SELECT user_id, COUNT\(\*\) AS count FROM audit_logs WHERE user_id IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).AddRow("u1", 60))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalEntries)
	assert.Equal(t, 15, stats.Last24Hours)
	assert.Len(t, stats.ByAction, 2)
	assert.Len(t, stats.TopActors, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
