package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civreg/personnel-api/internal/models"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
	"github.com/civreg/personnel-api/pkg/export"
	"github.com/civreg/personnel-api/pkg/storage"
)

type recordRepository interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, int, error)
	FindByID(ctx context.Context, id string) (*models.Record, error)
	Create(ctx context.Context, record *models.Record) error
	Update(ctx context.Context, record *models.Record, setPhoto, setFingerprint bool) (*models.Record, error)
	Delete(ctx context.Context, id string) (*models.Record, error)
}

type uploadStorage interface {
	Save(subdir string, upload storage.Upload) (string, error)
	Delete(rel string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RecordRequest is the multipart form payload for creating or editing a
// person record. Numeric and boolean fields arrive as text and are coerced.
type RecordRequest struct {
	FullName          string `form:"fullName" validate:"required"`
	Nickname          string `form:"nickname"`
	MothersName       string `form:"mothersName" validate:"required"`
	DateOfBirth       string `form:"dateOfBirth"`
	Tribe             string `form:"tribe" validate:"required"`
	ParentPhone       string `form:"parentPhone"`
	Phone             string `form:"phone" validate:"required"`
	MaritalStatus     string `form:"maritalStatus"`
	NumberOfChildren  string `form:"numberOfChildren"`
	Residence         string `form:"residence"`
	EducationLevel    string `form:"educationLevel"`
	LanguagesSpoken   string `form:"languagesSpoken"`
	TechnicalSkills   string `form:"technicalSkills"`
	AdditionalDetails string `form:"additionalDetails"`
	HasPassport       string `form:"hasPassport"`
	EverArrested      string `form:"everArrested"`
	ArrestLocation    string `form:"arrestLocation"`
	ArrestReason      string `form:"arrestReason"`
	ArrestDate        string `form:"arrestDate"`
	ArrestAuthority   string `form:"arrestAuthority"`
}

// RecordService handles person-record workflows including attachments.
type RecordService struct {
	repo      recordRepository
	storage   uploadStorage
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService creates an instance of RecordService.
func NewRecordService(repo recordRepository, store uploadStorage, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RecordService{repo: repo, storage: store, cache: cache, validator: validate, logger: logger}
}

// List returns paginated records and pagination metadata.
func (s *RecordService) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record, nil
}

// Create validates the payload, stores any attachments and inserts the record.
// Arrest fields are kept exactly as submitted even when everArrested is false.
func (s *RecordService) Create(ctx context.Context, req RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error) {
	record := &models.Record{}
	if err := s.apply(req, record); err != nil {
		return nil, err
	}

	photoPath, fingerprintPath, err := s.saveUploads(photo, fingerprint)
	if err != nil {
		return nil, err
	}
	record.PhotoURL = photoPath
	record.FingerprintURL = fingerprintPath

	if err := s.repo.Create(ctx, record); err != nil {
		s.discardUploads(photoPath, fingerprintPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}

	s.invalidateStats(ctx)
	return record, nil
}

// Update validates the payload and persists it. Attachment columns are
// rewritten only for files supplied on this request; absent files leave the
// stored URLs unchanged.
func (s *RecordService) Update(ctx context.Context, id string, req RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error) {
	record := &models.Record{ID: id}
	if err := s.apply(req, record); err != nil {
		return nil, err
	}

	photoPath, fingerprintPath, err := s.saveUploads(photo, fingerprint)
	if err != nil {
		return nil, err
	}
	record.PhotoURL = photoPath
	record.FingerprintURL = fingerprintPath

	updated, err := s.repo.Update(ctx, record, photoPath != nil, fingerprintPath != nil)
	if err != nil {
		s.discardUploads(photoPath, fingerprintPath)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}

	s.invalidateStats(ctx)
	return updated, nil
}

// Delete removes a record permanently and returns the deleted row. A second
// delete of the same id yields NotFound.
func (s *RecordService) Delete(ctx context.Context, id string) (*models.Record, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}

	s.discardUploads(deleted.PhotoURL, deleted.FingerprintURL)
	s.invalidateStats(ctx)
	return deleted, nil
}

// Export renders all records matching the search term into CSV or PDF bytes.
func (s *RecordService) Export(ctx context.Context, search, format string) ([]byte, string, string, error) {
	filter := models.RecordFilter{Search: search, Page: 1, Limit: 100}
	var records []models.Record
	for {
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
		}
		records = append(records, batch...)
		if len(batch) == 0 || len(records) >= total {
			break
		}
		filter.Page++
	}

	table := export.Table{
		Headers: []string{"Full name", "Nickname", "Mother's name", "Tribe", "Phone", "Residence", "Passport", "Arrested", "Created"},
	}
	for _, rec := range records {
		nickname := ""
		if rec.Nickname != nil {
			nickname = *rec.Nickname
		}
		table.Rows = append(table.Rows, []string{
			rec.FullName,
			nickname,
			rec.MothersName,
			rec.Tribe,
			rec.Phone,
			rec.Residence,
			strconv.FormatBool(rec.HasPassport),
			strconv.FormatBool(rec.EverArrested),
			rec.CreatedAt.Format("2006-01-02"),
		})
	}

	switch strings.ToLower(format) {
	case "pdf":
		data, err := export.NewPDFExporter().Render(table, "Personnel records")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", "records.pdf", nil
	case "", "csv":
		data, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", "records.csv", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// apply validates the form payload and copies coerced values onto the record.
func (s *RecordService) apply(req RecordRequest, record *models.Record) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(validationMessages(err))
	}

	dateOfBirth, err := parseDate(req.DateOfBirth)
	if err != nil {
		return appErrors.Validation([]string{"dateOfBirth must be in YYYY-MM-DD format"})
	}
	arrestDate, err := parseDate(req.ArrestDate)
	if err != nil {
		return appErrors.Validation([]string{"arrestDate must be in YYYY-MM-DD format"})
	}

	record.FullName = req.FullName
	record.Nickname = optional(req.Nickname)
	record.MothersName = req.MothersName
	record.DateOfBirth = dateOfBirth
	record.Tribe = req.Tribe
	record.ParentPhone = req.ParentPhone
	record.Phone = req.Phone
	record.MaritalStatus = req.MaritalStatus
	record.NumberOfChildren = parseCount(req.NumberOfChildren)
	record.Residence = req.Residence
	record.EducationLevel = req.EducationLevel
	record.LanguagesSpoken = req.LanguagesSpoken
	record.TechnicalSkills = req.TechnicalSkills
	record.AdditionalDetails = optional(req.AdditionalDetails)
	record.HasPassport = parseFlag(req.HasPassport)
	record.EverArrested = parseFlag(req.EverArrested)
	record.ArrestLocation = req.ArrestLocation
	record.ArrestReason = req.ArrestReason
	record.ArrestDate = arrestDate
	record.ArrestAuthority = req.ArrestAuthority
	return nil
}

func (s *RecordService) saveUploads(photo, fingerprint *storage.Upload) (*string, *string, error) {
	var photoPath, fingerprintPath *string
	if photo != nil {
		rel, err := s.storage.Save(storage.SubdirPhotos, *photo)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo upload")
		}
		photoPath = &rel
	}
	if fingerprint != nil {
		rel, err := s.storage.Save(storage.SubdirFingerprints, *fingerprint)
		if err != nil {
			s.discardUploads(photoPath, nil)
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fingerprint upload")
		}
		fingerprintPath = &rel
	}
	return photoPath, fingerprintPath, nil
}

func (s *RecordService) discardUploads(paths ...*string) {
	for _, path := range paths {
		if path == nil {
			continue
		}
		if err := s.storage.Delete(*path); err != nil {
			s.logger.Warn("failed to discard upload", zap.String("path", *path), zap.Error(err))
		}
	}
}

func (s *RecordService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

// parseCount coerces free-text numeric input, defaulting invalid or missing
// values to zero.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

// parseDate normalises empty date strings to nil so they are stored as NULL.
func parseDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optional(raw string) *string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return &raw
}

// validationMessages flattens validator errors into human-readable strings.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return messages
}
