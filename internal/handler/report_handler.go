package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/service"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

type statisticsProvider interface {
	Statistics(ctx context.Context, termID string) (*models.ScheduleStatistics, error)
	Report(ctx context.Context, termID string) ([]dto.ScheduleReportRow, error)
}

type reportJobManager interface {
	CreateJob(ctx context.Context, termID string, format models.ReportFormat) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*models.ReportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes statistics, report and export endpoints.
type ReportHandler struct {
	stats   statisticsProvider
	reports reportJobManager
}

// NewReportHandler constructs the handler.
func NewReportHandler(stats statisticsProvider, reports reportJobManager) *ReportHandler {
	return &ReportHandler{stats: stats, reports: reports}
}

// Statistics godoc
// @Summary Utilization and conflict metrics for a term's timetable
// @Tags Reports
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/statistics/{termId} [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.stats.Statistics(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Report godoc
// @Summary Display-ready timetable rows for a term
// @Tags Reports
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/report/{termId} [get]
func (h *ReportHandler) Report(c *gin.Context) {
	rows, err := h.stats.Report(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Queue an asynchronous timetable export
// @Tags Reports
// @Accept json
// @Produce json
// @Param termId path string true "Term ID"
// @Param payload body dto.ExportReportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /schedule/report/{termId}/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	job, err := h.reports.CreateJob(c.Request.Context(), c.Param("termId"), models.ReportFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Get the status of an export job
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/report/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	job, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export via its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /schedule/exports/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.reports.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType(download.Format), download.File, nil)
}

func contentType(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatCSV:
		return "text/csv"
	case models.ReportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
