package dto

import "time"

// ExportReportRequest renders a term's schedule report to a file.
type ExportReportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ScheduleReportRow is one display-ready timetable entry.
type ScheduleReportRow struct {
	DayOfWeek      int    `json:"dayOfWeek"`
	PeriodIndex    int    `json:"periodIndex"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	SectionID      string `json:"sectionId"`
	CourseID       string `json:"courseId"`
	TeacherID      string `json:"teacherId"`
	StudentGroupID string `json:"studentGroupId"`
	ClassroomCode  string `json:"classroomCode"`
}

// ExportJobResponse acknowledges an accepted export job. The signed download
// URL appears on the job status once rendering completes.
type ExportJobResponse struct {
	JobID       string    `json:"jobId"`
	TermID      string    `json:"termId"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
