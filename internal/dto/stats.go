package dto

import (
	"time"

	"github.com/civreg/personnel-api/internal/models"
)

// DashboardStatsResponse is the payload for the staff dashboard.
type DashboardStatsResponse struct {
	Records     models.RecordStats `json:"records"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// AdminStatsResponse extends the dashboard payload with account and audit
// aggregates visible to administrators only.
type AdminStatsResponse struct {
	Records     models.RecordStats `json:"records"`
	Users       models.UserStats   `json:"users"`
	Audit       models.AuditStats  `json:"audit"`
	GeneratedAt time.Time          `json:"generated_at"`
}
