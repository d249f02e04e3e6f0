package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionRegister       = "REGISTER_USER"
	AuditActionRecordCreate   = "CREATE_RECORD"
	AuditActionRecordUpdate   = "UPDATE_RECORD"
	AuditActionRecordDelete   = "DELETE_RECORD"
	AuditActionRecordExport   = "EXPORT_RECORDS"
	AuditActionUserUpdate     = "UPDATE_USER"
	AuditActionUserDelete     = "DELETE_USER"
	AuditActionProfileUpdate  = "UPDATE_PROFILE"
	AuditActionPasswordChange = "CHANGE_PASSWORD"
)

// AuditLog represents an append-only audit trail entry. Entries are never
// updated or deleted by the application.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	TargetUserID *string   `db:"target_user_id" json:"target_user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	Details      []byte    `db:"details" json:"details,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter captures filtering criteria for the audit trail listing.
type AuditLogFilter struct {
	UserID string
	Action string
	Page   int
	Limit  int
}

// AuditActionCount pairs an action tag with its occurrence count.
type AuditActionCount struct {
	Action string `db:"action" json:"action"`
	Count  int    `db:"count" json:"count"`
}

// AuditActorCount pairs an actor with the number of entries they produced.
type AuditActorCount struct {
	UserID string `db:"user_id" json:"user_id"`
	Count  int    `db:"count" json:"count"`
}

// AuditStats aggregates the audit trail for the admin overview.
type AuditStats struct {
	TotalEntries int                `json:"total_entries"`
	Last24Hours  int                `json:"last_24_hours"`
	ByAction     []AuditActionCount `json:"by_action"`
	TopActors    []AuditActorCount  `json:"top_actors"`
}
