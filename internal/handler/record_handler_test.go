package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/service"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
	"github.com/civreg/personnel-api/pkg/storage"
)

type fakeRecordSrv struct {
	listFilter  models.RecordFilter
	listResult  []models.Record
	record      *models.Record
	err         error
	lastReq     service.RecordRequest
	lastPhoto   *storage.Upload
	lastPrint   *storage.Upload
	exportData  []byte
	exportCT    string
	exportName  string
	lastSearch  string
	lastFormat  string
	deletedID   string
}

func (f *fakeRecordSrv) List(_ context.Context, filter models.RecordFilter) ([]models.Record, *models.Pagination, error) {
	f.listFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.listResult, models.NewPagination(filter.Page, filter.Limit, len(f.listResult)), nil
}

func (f *fakeRecordSrv) Get(_ context.Context, id string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeRecordSrv) Create(_ context.Context, req service.RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error) {
	f.lastReq = req
	f.lastPhoto = photo
	f.lastPrint = fingerprint
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeRecordSrv) Update(_ context.Context, id string, req service.RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error) {
	f.lastReq = req
	f.lastPhoto = photo
	f.lastPrint = fingerprint
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeRecordSrv) Delete(_ context.Context, id string) (*models.Record, error) {
	f.deletedID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeRecordSrv) Export(_ context.Context, search, format string) ([]byte, string, string, error) {
	f.lastSearch = search
	f.lastFormat = format
	if f.err != nil {
		return nil, "", "", f.err
	}
	return f.exportData, f.exportCT, f.exportName, nil
}

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func recordRouter(srv *fakeRecordSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRecordHandler(srv)
	r := gin.New()
	r.GET("/records", h.List)
	r.GET("/records/export", h.Export)
	r.GET("/records/:id", h.Get)
	r.POST("/records", h.Create)
	r.PUT("/records/:id", h.Update)
	r.DELETE("/records/:id", h.Delete)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestRecordListParsesQuery(t *testing.T) {
	srv := &fakeRecordSrv{listResult: []models.Record{{ID: "r1"}}}
	r := recordRouter(srv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records?page=3&limit=25&search=amina", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecordFilter{Search: "amina", Page: 3, Limit: 25}, srv.listFilter)

	var envelope struct {
		Data       []models.Record        `json:"data"`
		Pagination map[string]interface{} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, float64(3), envelope.Pagination["currentPage"])
}

func TestRecordListDefaultsPaging(t *testing.T) {
	srv := &fakeRecordSrv{}
	r := recordRouter(srv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records?page=junk", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecordFilter{Page: 1, Limit: 10}, srv.listFilter)
}

func TestRecordCreateMultipartWithAttachments(t *testing.T) {
	srv := &fakeRecordSrv{record: &models.Record{ID: "r1", FullName: "Amina Yusuf"}}
	r := recordRouter(srv)

	body, contentType := multipartBody(t,
		map[string]string{
			"fullName":     "Amina Yusuf",
			"mothersName":  "Halima",
			"tribe":        "Zaghawa",
			"phone":        "0912000000",
			"everArrested": "true",
			"arrestReason": "protest",
		},
		map[string][]byte{
			"photo":       []byte("photo-bytes"),
			"fingerprint": []byte("fingerprint-bytes"),
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/records", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Amina Yusuf", srv.lastReq.FullName)
	assert.Equal(t, "true", srv.lastReq.EverArrested)
	require.NotNil(t, srv.lastPhoto)
	require.NotNil(t, srv.lastPrint)
	assert.Equal(t, "photo.png", srv.lastPhoto.Filename)

	content, err := io.ReadAll(srv.lastPhoto.Content)
	require.NoError(t, err)
	assert.Equal(t, "photo-bytes", string(content))
}

func TestRecordCreateWithoutFiles(t *testing.T) {
	srv := &fakeRecordSrv{record: &models.Record{ID: "r1"}}
	r := recordRouter(srv)

	body, contentType := multipartBody(t, map[string]string{
		"fullName":    "Amina Yusuf",
		"mothersName": "Halima",
		"tribe":       "Zaghawa",
		"phone":       "0912000000",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/records", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, srv.lastPhoto)
	assert.Nil(t, srv.lastPrint)
}

func TestRecordCreateValidationErrorSurfacesDetails(t *testing.T) {
	srv := &fakeRecordSrv{err: appErrors.Validation([]string{"FullName is required"})}
	r := recordRouter(srv)

	body, contentType := multipartBody(t, map[string]string{"phone": "0912000000"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/records", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestRecordGetNotFound(t *testing.T) {
	srv := &fakeRecordSrv{err: appErrors.Clone(appErrors.ErrNotFound, "record not found")}
	r := recordRouter(srv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordDeleteReturnsDeletedRow(t *testing.T) {
	srv := &fakeRecordSrv{record: &models.Record{ID: "r1", FullName: "Amina Yusuf"}}
	r := recordRouter(srv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/records/r1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", srv.deletedID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "r1", envelope.Data["id"])
}

func TestRecordExportSetsDownloadHeaders(t *testing.T) {
	srv := &fakeRecordSrv{exportData: []byte("a,b\n1,2\n"), exportCT: "text/csv", exportName: "records.csv"}
	r := recordRouter(srv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records/export?format=csv&search=amina", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", srv.lastFormat)
	assert.Equal(t, "amina", srv.lastSearch)
	assert.Equal(t, `attachment; filename="records.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}
