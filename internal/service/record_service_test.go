package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civreg/personnel-api/internal/models"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
	"github.com/civreg/personnel-api/pkg/storage"
)

type mockRecordRepo struct {
	records        map[string]*models.Record
	created        *models.Record
	updated        *models.Record
	setPhoto       bool
	setFingerprint bool
	listPages      [][]models.Record
	listTotal      int
	listCalls      int
}

func (m *mockRecordRepo) List(_ context.Context, filter models.RecordFilter) ([]models.Record, int, error) {
	m.listCalls++
	if len(m.listPages) == 0 {
		return nil, 0, nil
	}
	idx := filter.Page - 1
	if idx < 0 || idx >= len(m.listPages) {
		return nil, m.listTotal, nil
	}
	return m.listPages[idx], m.listTotal, nil
}

func (m *mockRecordRepo) FindByID(_ context.Context, id string) (*models.Record, error) {
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecordRepo) Create(_ context.Context, record *models.Record) error {
	m.created = record
	return nil
}

func (m *mockRecordRepo) Update(_ context.Context, record *models.Record, setPhoto, setFingerprint bool) (*models.Record, error) {
	if m.records != nil {
		if _, ok := m.records[record.ID]; !ok {
			return nil, sql.ErrNoRows
		}
	}
	m.updated = record
	m.setPhoto = setPhoto
	m.setFingerprint = setFingerprint
	return record, nil
}

func (m *mockRecordRepo) Delete(_ context.Context, id string) (*models.Record, error) {
	if r, ok := m.records[id]; ok {
		delete(m.records, id)
		return r, nil
	}
	return nil, sql.ErrNoRows
}

type mockUploadStore struct {
	saved   []string
	deleted []string
	saveErr error
}

func (m *mockUploadStore) Save(subdir string, upload storage.Upload) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	rel := subdir
	if rel != "" {
		rel += "/"
	}
	rel += fmt.Sprintf("stored-%d-%s", len(m.saved), upload.Filename)
	m.saved = append(m.saved, rel)
	return rel, nil
}

func (m *mockUploadStore) Delete(rel string) error {
	m.deleted = append(m.deleted, rel)
	return nil
}

type mockCache struct {
	patterns []string
}

func (m *mockCache) Invalidate(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func validRecordRequest() RecordRequest {
	return RecordRequest{
		FullName:    "Amina Yusuf",
		MothersName: "Halima",
		Tribe:       "Zaghawa",
		Phone:       "0912000000",
	}
}

func newTestRecordService(repo *mockRecordRepo, store *mockUploadStore, cache *mockCache) *RecordService {
	if cache == nil {
		// Pass an untyped nil so the service's cache==nil guard sees a nil
		// interface rather than a non-nil interface holding a nil *mockCache.
		return NewRecordService(repo, store, nil, nil, nil)
	}
	return NewRecordService(repo, store, cache, nil, nil)
}

func TestCreateRecordCoercesLooseFields(t *testing.T) {
	repo := &mockRecordRepo{}
	cache := &mockCache{}
	svc := newTestRecordService(repo, &mockUploadStore{}, cache)

	req := validRecordRequest()
	req.NumberOfChildren = "not-a-number"
	req.HasPassport = "true"
	req.EverArrested = "nope"
	req.DateOfBirth = ""
	req.Nickname = "  "

	record, err := svc.Create(context.Background(), req, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, record.NumberOfChildren)
	assert.True(t, record.HasPassport)
	assert.False(t, record.EverArrested)
	assert.Nil(t, record.DateOfBirth)
	assert.Nil(t, record.Nickname)
	assert.Nil(t, record.PhotoURL)
	assert.Equal(t, []string{"stats:*"}, cache.patterns)
}

func TestCreateRecordKeepsArrestFieldsWhenNotArrested(t *testing.T) {
	repo := &mockRecordRepo{}
	svc := newTestRecordService(repo, &mockUploadStore{}, nil)

	req := validRecordRequest()
	req.EverArrested = "false"
	req.ArrestLocation = "Nyala"
	req.ArrestReason = "unknown"
	req.ArrestDate = "2020-03-15"
	req.ArrestAuthority = "police"

	record, err := svc.Create(context.Background(), req, nil, nil)
	require.NoError(t, err)
	assert.False(t, record.EverArrested)
	assert.Equal(t, "Nyala", record.ArrestLocation)
	assert.Equal(t, "unknown", record.ArrestReason)
	require.NotNil(t, record.ArrestDate)
	assert.Equal(t, "2020-03-15", record.ArrestDate.Format("2006-01-02"))
}

func TestCreateRecordInvalidDate(t *testing.T) {
	svc := newTestRecordService(&mockRecordRepo{}, &mockUploadStore{}, nil)

	req := validRecordRequest()
	req.DateOfBirth = "15/03/2020"

	_, err := svc.Create(context.Background(), req, nil, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Details, 1)
	assert.Contains(t, appErr.Details[0], "dateOfBirth")
}

func TestCreateRecordMissingRequiredFields(t *testing.T) {
	svc := newTestRecordService(&mockRecordRepo{}, &mockUploadStore{}, nil)

	_, err := svc.Create(context.Background(), RecordRequest{Phone: "0912000000"}, nil, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)
}

func TestCreateRecordStoresAttachments(t *testing.T) {
	repo := &mockRecordRepo{}
	store := &mockUploadStore{}
	svc := newTestRecordService(repo, store, nil)

	photo := &storage.Upload{Filename: "photo.png", Size: 10, Content: strings.NewReader("fake")}
	fingerprint := &storage.Upload{Filename: "fp.png", Size: 10, Content: strings.NewReader("fake")}

	record, err := svc.Create(context.Background(), validRecordRequest(), photo, fingerprint)
	require.NoError(t, err)
	require.NotNil(t, record.PhotoURL)
	require.NotNil(t, record.FingerprintURL)
	assert.Len(t, store.saved, 2)
	assert.True(t, strings.HasPrefix(*record.FingerprintURL, storage.SubdirFingerprints+"/"))
}

func TestUpdateRecordWithoutFilesKeepsStoredURLs(t *testing.T) {
	repo := &mockRecordRepo{records: map[string]*models.Record{"r1": {ID: "r1"}}}
	svc := newTestRecordService(repo, &mockUploadStore{}, nil)

	_, err := svc.Update(context.Background(), "r1", validRecordRequest(), nil, nil)
	require.NoError(t, err)
	assert.False(t, repo.setPhoto)
	assert.False(t, repo.setFingerprint)
}

func TestUpdateRecordWithNewPhotoOnly(t *testing.T) {
	repo := &mockRecordRepo{records: map[string]*models.Record{"r1": {ID: "r1"}}}
	store := &mockUploadStore{}
	svc := newTestRecordService(repo, store, nil)

	photo := &storage.Upload{Filename: "new.png", Size: 10, Content: strings.NewReader("fake")}
	_, err := svc.Update(context.Background(), "r1", validRecordRequest(), photo, nil)
	require.NoError(t, err)
	assert.True(t, repo.setPhoto)
	assert.False(t, repo.setFingerprint)
}

func TestUpdateRecordNotFoundDiscardsUploads(t *testing.T) {
	repo := &mockRecordRepo{records: map[string]*models.Record{}}
	store := &mockUploadStore{}
	svc := newTestRecordService(repo, store, nil)

	photo := &storage.Upload{Filename: "new.png", Size: 10, Content: strings.NewReader("fake")}
	_, err := svc.Update(context.Background(), "missing", validRecordRequest(), photo, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, store.saved, store.deleted)
}

func TestDeleteRecordRemovesAttachments(t *testing.T) {
	photo := "1-abc.png"
	fingerprint := "fingerprint/2-def.png"
	repo := &mockRecordRepo{records: map[string]*models.Record{
		"r1": {ID: "r1", PhotoURL: &photo, FingerprintURL: &fingerprint},
	}}
	store := &mockUploadStore{}
	cache := &mockCache{}
	svc := newTestRecordService(repo, store, cache)

	deleted, err := svc.Delete(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", deleted.ID)
	assert.ElementsMatch(t, []string{photo, fingerprint}, store.deleted)
	assert.Equal(t, []string{"stats:*"}, cache.patterns)

	_, err = svc.Delete(context.Background(), "r1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportCSVPagesThroughAllRecords(t *testing.T) {
	now := time.Now()
	var page1, page2 []models.Record
	for i := 0; i < 100; i++ {
		page1 = append(page1, models.Record{ID: fmt.Sprintf("a%d", i), FullName: "Row", CreatedAt: now})
	}
	page2 = append(page2, models.Record{ID: "b0", FullName: "Last Row", CreatedAt: now})

	repo := &mockRecordRepo{listPages: [][]models.Record{page1, page2}, listTotal: 101}
	svc := newTestRecordService(repo, &mockUploadStore{}, nil)

	data, contentType, filename, err := svc.Export(context.Background(), "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "records.csv", filename)
	assert.Equal(t, 2, repo.listCalls)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header plus 101 rows
	assert.Len(t, lines, 102)
	assert.Contains(t, lines[0], "Full name")
}

func TestExportPDF(t *testing.T) {
	repo := &mockRecordRepo{listPages: [][]models.Record{{{ID: "r1", FullName: "Amina", CreatedAt: time.Now()}}}, listTotal: 1}
	svc := newTestRecordService(repo, &mockUploadStore{}, nil)

	data, contentType, filename, err := svc.Export(context.Background(), "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "records.pdf", filename)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newTestRecordService(&mockRecordRepo{}, &mockUploadStore{}, nil)

	_, _, _, err := svc.Export(context.Background(), "", "xlsx")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
