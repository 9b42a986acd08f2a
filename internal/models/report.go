package models

import (
	"database/sql"
	"time"
)

// ReportFormat enumerates supported export encodings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus tracks the lifecycle of an export job.
type ReportStatus string

const (
	ReportStatusQueued    ReportStatus = "QUEUED"
	ReportStatusRunning   ReportStatus = "RUNNING"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// ReportJob is a persisted timetable export request processed by the
// background worker queue.
type ReportJob struct {
	ID           string         `db:"id" json:"id"`
	TermID       string         `db:"term_id" json:"term_id"`
	Format       ReportFormat   `db:"format" json:"format"`
	Status       ReportStatus   `db:"status" json:"status"`
	Progress     int            `db:"progress" json:"progress"`
	ResultURL    sql.NullString `db:"result_url" json:"result_url,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message,omitempty"`
}
