package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/civreg/personnel-api/internal/models"
)

const auditSubjectKey = "audit_subject"

// AuditSink persists audit entries.
type AuditSink interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// SetAuditSubject attaches the identifier of the entity a handler acted on so
// the audit middleware can include it in the entry details.
func SetAuditSubject(c *gin.Context, id string) {
	c.Set(auditSubjectKey, id)
}

// Audit records an audit entry after the handler completes. Entries are only
// written for confirmed outcomes; failed requests leave no trace, and audit
// write failures are logged and swallowed so they never fail the request.
func Audit(sink AuditSink, logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if user := CurrentUser(c); user != nil {
			id := user.ID
			userID = &id
		}

		payload := map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		}
		if subject, ok := c.Get(auditSubjectKey); ok {
			payload["subject_id"] = subject
		} else if id := c.Param("id"); id != "" {
			payload["subject_id"] = id
		}
		details, _ := json.Marshal(payload)

		entry := &models.AuditLog{
			UserID:    userID,
			Action:    action,
			Details:   details,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if err := sink.Create(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
		}
	}
}
