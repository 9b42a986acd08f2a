package models

import "time"

// Term identifies one semester of one academic year.
type Term struct {
	ID           string    `db:"id" json:"id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     int       `db:"semester" json:"semester"`
	Name         string    `db:"name" json:"name"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}
