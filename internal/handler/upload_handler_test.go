package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civreg/personnel-api/pkg/storage"
)

// Minimal valid PNG header so MIME sniffing accepts the payload.
var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)

func uploadRouter(t *testing.T) (*gin.Engine, *storage.UploadStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewUploadStore(dir, 0, nil)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/uploads/*filepath", NewUploadHandler(store).Serve)
	return r, store, dir
}

func TestServeStoredFile(t *testing.T) {
	r, store, _ := uploadRouter(t)

	rel, err := store.Save(storage.SubdirFingerprints, storage.Upload{
		Filename: "print.png",
		Size:     int64(len(pngBytes)),
		Content:  bytes.NewReader(pngBytes),
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+rel, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngBytes, w.Body.Bytes())
}

func TestServeMissingFile(t *testing.T) {
	r, _, _ := uploadRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/nope.png", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeRejectsTraversal(t *testing.T) {
	r, _, dir := uploadRouter(t)

	// A real file one level above the uploads root must stay unreachable.
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top secret"), 0o600))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/fingerprint/x", nil)
	req.URL.Path = "/uploads/fingerprint/../../secret.txt"
	r.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "top secret")
}
