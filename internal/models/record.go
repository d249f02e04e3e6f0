package models

import "time"

// Record represents a person record with biographical and arrest-history data.
//
// The arrest_* columns are meaningful only when ever_arrested is true; this is
// an application-level convention and the storage layer keeps whatever was
// submitted.
type Record struct {
	ID                string     `db:"id" json:"id"`
	FullName          string     `db:"full_name" json:"full_name"`
	Nickname          *string    `db:"nickname" json:"nickname,omitempty"`
	MothersName       string     `db:"mothers_name" json:"mothers_name"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Tribe             string     `db:"tribe" json:"tribe"`
	ParentPhone       string     `db:"parent_phone" json:"parent_phone"`
	Phone             string     `db:"phone" json:"phone"`
	MaritalStatus     string     `db:"marital_status" json:"marital_status"`
	NumberOfChildren  int        `db:"number_of_children" json:"number_of_children"`
	Residence         string     `db:"residence" json:"residence"`
	EducationLevel    string     `db:"education_level" json:"education_level"`
	LanguagesSpoken   string     `db:"languages_spoken" json:"languages_spoken"`
	TechnicalSkills   string     `db:"technical_skills" json:"technical_skills"`
	AdditionalDetails *string    `db:"additional_details" json:"additional_details,omitempty"`
	HasPassport       bool       `db:"has_passport" json:"has_passport"`
	EverArrested      bool       `db:"ever_arrested" json:"ever_arrested"`
	ArrestLocation    string     `db:"arrest_location" json:"arrest_location"`
	ArrestReason      string     `db:"arrest_reason" json:"arrest_reason"`
	ArrestDate        *time.Time `db:"arrest_date" json:"arrest_date,omitempty"`
	ArrestAuthority   string     `db:"arrest_authority" json:"arrest_authority"`
	PhotoURL          *string    `db:"photo_url" json:"photo_url,omitempty"`
	FingerprintURL    *string    `db:"fingerprint_url" json:"fingerprint_url,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// RecordFilter captures search and pagination criteria for record listings.
type RecordFilter struct {
	Search string
	Page   int
	Limit  int
}

// RecordStats summarises the record base for the dashboard.
type RecordStats struct {
	TotalRecords  int `db:"total_records" json:"total_records"`
	EverArrested  int `db:"ever_arrested" json:"ever_arrested"`
	WithPassport  int `db:"with_passport" json:"with_passport"`
	AddedLastWeek int `db:"added_last_week" json:"added_last_week"`
}
