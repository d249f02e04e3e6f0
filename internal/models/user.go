package models

import "time"

// User represents a staff account stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	AvatarURL    *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

// UserStats summarises the account base for the admin dashboard.
type UserStats struct {
	TotalUsers int `db:"total_users" json:"total_users"`
	AdminUsers int `db:"admin_users" json:"admin_users"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"currentPage"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalRecords"`
	TotalPages int `json:"totalPages"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{Page: page, Limit: limit, TotalCount: total, TotalPages: pages}
}
