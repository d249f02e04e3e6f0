package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civreg/personnel-api/internal/models"
)

type recordingSink struct {
	entries []*models.AuditLog
	err     error
}

func (r *recordingSink) Create(_ context.Context, entry *models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func auditedRouter(sink *recordingSink, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/things", Audit(sink, nil, "CREATE_THING"), handler)
	r.DELETE("/things/:id", Audit(sink, nil, "DELETE_THING"), handler)
	return r
}

func TestAuditRecordsConfirmedOutcome(t *testing.T) {
	sink := &recordingSink{}
	r := auditedRouter(sink, func(c *gin.Context) {
		SetAuditSubject(c, "thing-1")
		c.JSON(http.StatusCreated, gin.H{"id": "thing-1"})
	})

	req := httptest.NewRequest(http.MethodPost, "/things", nil)
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, "CREATE_THING", entry.Action)
	assert.Equal(t, "test-agent", entry.UserAgent)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, "thing-1", details["subject_id"])
	assert.Equal(t, float64(http.StatusCreated), details["status"])
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	sink := &recordingSink{}
	r := auditedRouter(sink, func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "missing"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/things", nil))

	assert.Empty(t, sink.entries)
}

func TestAuditUsesPathParamWhenNoSubjectSet(t *testing.T) {
	sink := &recordingSink{}
	r := auditedRouter(sink, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/things/abc", nil))

	require.Len(t, sink.entries, 1)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(sink.entries[0].Details, &details))
	assert.Equal(t, "abc", details["subject_id"])
}

func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	r := auditedRouter(sink, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/things", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
