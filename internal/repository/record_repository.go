package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civreg/personnel-api/internal/models"
)

const recordColumns = `id, full_name, nickname, mothers_name, date_of_birth, tribe, parent_phone, phone,
        marital_status, number_of_children, residence, education_level, languages_spoken, technical_skills,
        additional_details, has_passport, ever_arrested, arrest_location, arrest_reason, arrest_date,
        arrest_authority, photo_url, fingerprint_url, created_at, updated_at`

// RecordRepository manages persistence for person records.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs a RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// List returns records matching the search term with total count.
//
// The ILIKE filter is issued even for an empty search term; the resulting
// match-all pattern keeps a single statement shape for every listing.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, int, error) {
	pattern := "%" + filter.Search + "%"
	const where = `FROM records WHERE (full_name ILIKE $1 OR tribe ILIKE $1 OR phone ILIKE $1 OR COALESCE(nickname, '') ILIKE $1)`

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", recordColumns, where, limit, offset)

	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, pattern); err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where, pattern); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a record by ID. Missing rows surface as sql.ErrNoRows.
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM records WHERE id = $1 LIMIT 1", recordColumns)
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new record with all columns in one statement.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO records (id, full_name, nickname, mothers_name, date_of_birth, tribe, parent_phone, phone,
        marital_status, number_of_children, residence, education_level, languages_spoken, technical_skills,
        additional_details, has_passport, ever_arrested, arrest_location, arrest_reason, arrest_date,
        arrest_authority, photo_url, fingerprint_url, created_at, updated_at)
        VALUES (:id, :full_name, :nickname, :mothers_name, :date_of_birth, :tribe, :parent_phone, :phone,
        :marital_status, :number_of_children, :residence, :education_level, :languages_spoken, :technical_skills,
        :additional_details, :has_passport, :ever_arrested, :arrest_location, :arrest_reason, :arrest_date,
        :arrest_authority, :photo_url, :fingerprint_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Update modifies a record. The attachment columns are written only when the
// corresponding flag is set, so an edit without new files leaves both URLs
// untouched. The assignment list is accumulated in order and placeholder
// positions derive from its length.
func (r *RecordRepository) Update(ctx context.Context, record *models.Record, setPhoto, setFingerprint bool) (*models.Record, error) {
	var assigns []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		assigns = append(assigns, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	set("full_name", record.FullName)
	set("nickname", record.Nickname)
	set("mothers_name", record.MothersName)
	set("date_of_birth", record.DateOfBirth)
	set("tribe", record.Tribe)
	set("parent_phone", record.ParentPhone)
	set("phone", record.Phone)
	set("marital_status", record.MaritalStatus)
	set("number_of_children", record.NumberOfChildren)
	set("residence", record.Residence)
	set("education_level", record.EducationLevel)
	set("languages_spoken", record.LanguagesSpoken)
	set("technical_skills", record.TechnicalSkills)
	set("additional_details", record.AdditionalDetails)
	set("has_passport", record.HasPassport)
	set("ever_arrested", record.EverArrested)
	set("arrest_location", record.ArrestLocation)
	set("arrest_reason", record.ArrestReason)
	set("arrest_date", record.ArrestDate)
	set("arrest_authority", record.ArrestAuthority)
	if setPhoto {
		set("photo_url", record.PhotoURL)
	}
	if setFingerprint {
		set("fingerprint_url", record.FingerprintURL)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, record.ID)
	query := fmt.Sprintf("UPDATE records SET %s WHERE id = $%d RETURNING %s",
		strings.Join(assigns, ", "), len(args), recordColumns)

	var updated models.Record
	if err := r.db.GetContext(ctx, &updated, query, args...); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a record permanently and returns the deleted row. Missing
// rows surface as sql.ErrNoRows.
func (r *RecordRepository) Delete(ctx context.Context, id string) (*models.Record, error) {
	query := fmt.Sprintf("DELETE FROM records WHERE id = $1 RETURNING %s", recordColumns)
	var deleted models.Record
	if err := r.db.GetContext(ctx, &deleted, query, id); err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Stats aggregates record counts for the dashboard.
func (r *RecordRepository) Stats(ctx context.Context) (*models.RecordStats, error) {
	const query = `SELECT COUNT(*) AS total_records,
        COUNT(*) FILTER (WHERE ever_arrested) AS ever_arrested,
        COUNT(*) FILTER (WHERE has_passport) AS with_passport,
        COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days') AS added_last_week
        FROM records`
	var stats models.RecordStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	return &stats, nil
}
