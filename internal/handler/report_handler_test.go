package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/service"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type fakeStatsSrv struct {
	stats *models.ScheduleStatistics
	rows  []dto.ScheduleReportRow
	err   error
}

func (f *fakeStatsSrv) Statistics(_ context.Context, _ string) (*models.ScheduleStatistics, error) {
	return f.stats, f.err
}

func (f *fakeStatsSrv) Report(_ context.Context, _ string) ([]dto.ScheduleReportRow, error) {
	return f.rows, f.err
}

type fakeReportSrv struct {
	job        *dto.ExportJobResponse
	status     *models.ReportJob
	download   *service.ReportDownload
	err        error
	lastFormat models.ReportFormat
}

func (f *fakeReportSrv) CreateJob(_ context.Context, _ string, format models.ReportFormat) (*dto.ExportJobResponse, error) {
	f.lastFormat = format
	return f.job, f.err
}

func (f *fakeReportSrv) GetStatus(_ context.Context, _ string) (*models.ReportJob, error) {
	return f.status, f.err
}

func (f *fakeReportSrv) ResolveDownload(_ context.Context, _ string) (*service.ReportDownload, error) {
	return f.download, f.err
}

func TestReportHandlerStatistics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&fakeStatsSrv{stats: &models.ScheduleStatistics{TermID: "term-1", ScheduledSections: 4}}, &fakeReportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule/statistics/term-1", nil)
	c.Params = gin.Params{{Key: "termId", Value: "term-1"}}

	h.Statistics(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.ScheduleStatistics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 4, envelope.Data.ScheduledSections)
}

func TestReportHandlerExportQueuesJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reports := &fakeReportSrv{job: &dto.ExportJobResponse{JobID: "job-1", TermID: "term-1", Format: "csv"}}
	h := NewReportHandler(&fakeStatsSrv{}, reports)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, _ := json.Marshal(dto.ExportReportRequest{Format: "csv"})
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule/report/term-1/export", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "termId", Value: "term-1"}}

	h.Export(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, models.ReportFormatCSV, reports.lastFormat)
}

func TestReportHandlerJobStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&fakeStatsSrv{}, &fakeReportSrv{err: appErrors.Clone(appErrors.ErrNotFound, "report job not found")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule/report/jobs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.JobStatus(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	path := filepath.Join(dir, "timetable.csv")
	require.NoError(t, os.WriteFile(path, []byte("Day,Period\nMonday,1\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewReportHandler(&fakeStatsSrv{}, &fakeReportSrv{download: &service.ReportDownload{
		File:     file,
		Filename: "timetable.csv",
		Format:   models.ReportFormatCSV,
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule/exports/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	h.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timetable.csv")
	assert.Contains(t, rec.Body.String(), "Monday,1")
}

func TestReportHandlerDownloadRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&fakeStatsSrv{}, &fakeReportSrv{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule/exports/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	h.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
