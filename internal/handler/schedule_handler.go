package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

type timetableScheduler interface {
	AutoSchedule(ctx context.Context, req dto.AutoScheduleRequest) (*dto.ScheduleResult, error)
	SaveProposal(ctx context.Context, req dto.SaveProposalRequest) (*dto.ScheduleResult, error)
	Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*dto.ScheduleResult, error)
	Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.ScheduleResult, error)
	CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) ([]models.Conflict, error)
	BatchImport(ctx context.Context, req dto.BatchImportRequest) (*dto.ScheduleResult, error)
	Copy(ctx context.Context, req dto.CopyScheduleRequest) (*dto.ScheduleResult, error)
	Clear(ctx context.Context, termID string) (int64, error)
	PersistedSchedule(ctx context.Context, termID string) ([]models.Assignment, error)
	AvailableTimeSlots(ctx context.Context, q dto.AvailabilityQuery) ([]models.TimeSlot, error)
	RecommendClassrooms(ctx context.Context, q dto.RecommendClassroomsQuery) ([]dto.ClassroomRecommendation, error)
	ResourceConflicts(ctx context.Context, q dto.ConflictProbeQuery) ([]models.Conflict, error)
}

// ScheduleHandler exposes the timetable scheduling endpoints.
type ScheduleHandler struct {
	service timetableScheduler
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc timetableScheduler) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// AutoSchedule godoc
// @Summary Run automatic scheduling for a term
// @Description Produces a proposal; nothing is persisted until the proposal is saved.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.AutoScheduleRequest true "Auto schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/auto [post]
func (h *ScheduleHandler) AutoSchedule(c *gin.Context) {
	var req dto.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto schedule payload"))
		return
	}
	result, err := h.service.AutoSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SaveProposal godoc
// @Summary Persist a previously generated proposal
// @Tags Schedule
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/proposals/{id}/save [post]
func (h *ScheduleHandler) SaveProposal(c *gin.Context) {
	result, err := h.service.SaveProposal(c.Request.Context(), dto.SaveProposalRequest{ProposalID: c.Param("id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate an assignment set against hard constraints
// @Description Detected conflicts are returned as data with a 200 status.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Validate payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Optimize godoc
// @Summary Refine an existing assignment set
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.OptimizeScheduleRequest true "Optimize payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/optimize [post]
func (h *ScheduleHandler) Optimize(c *gin.Context) {
	var req dto.OptimizeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimize payload"))
		return
	}
	result, err := h.service.Optimize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckConflicts godoc
// @Summary Probe one candidate placement for conflicts
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Conflict check payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/conflicts/check [post]
func (h *ScheduleHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	conflicts, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "hasConflicts": len(conflicts) > 0}, nil)
}

// Import godoc
// @Summary Atomically replace a term's timetable with an imported set
// @Description Any hard-constraint violation rejects the whole batch; the 409 body carries the detected conflicts.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.BatchImportRequest true "Import payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/import [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	var req dto.BatchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	result, err := h.service.BatchImport(c.Request.Context(), req)
	if err != nil {
		conflictOrError(c, result, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Copy godoc
// @Summary Copy a term's timetable into another term
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.CopyScheduleRequest true "Copy payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/copy [post]
func (h *ScheduleHandler) Copy(c *gin.Context) {
	var req dto.CopyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid copy payload"))
		return
	}
	result, err := h.service.Copy(c.Request.Context(), req)
	if err != nil {
		conflictOrError(c, result, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get the persisted timetable of a term
// @Tags Schedule
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/{termId} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	assignments, err := h.service.PersistedSchedule(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Clear godoc
// @Summary Drop the persisted timetable of a term
// @Description Clearing an already empty term succeeds with zero removed rows.
// @Tags Schedule
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/{termId} [delete]
func (h *ScheduleHandler) Clear(c *gin.Context) {
	removed, err := h.service.Clear(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// AvailableSlots godoc
// @Summary List time slots where the probed resources are free
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param courseId query string false "Course ID"
// @Param classroomId query string false "Classroom ID"
// @Param teacherId query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/available-slots [get]
func (h *ScheduleHandler) AvailableSlots(c *gin.Context) {
	q := dto.AvailabilityQuery{
		TermID:      c.Query("termId"),
		CourseID:    c.Query("courseId"),
		ClassroomID: c.Query("classroomId"),
		TeacherID:   c.Query("teacherId"),
	}
	slots, err := h.service.AvailableTimeSlots(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// RecommendedClassrooms godoc
// @Summary Rank compatible free classrooms for a section at a slot
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param sectionId query string true "Section ID"
// @Param timeSlotId query string true "Time slot ID"
// @Param limit query int false "Maximum results (default 5)"
// @Success 200 {object} response.Envelope
// @Router /schedule/recommended-classrooms [get]
func (h *ScheduleHandler) RecommendedClassrooms(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	q := dto.RecommendClassroomsQuery{
		TermID:     c.Query("termId"),
		SectionID:  c.Query("sectionId"),
		TimeSlotID: c.Query("timeSlotId"),
		Limit:      limit,
	}
	recs, err := h.service.RecommendClassrooms(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recs, nil)
}

// TeacherConflicts godoc
// @Summary Report double bookings of a teacher at a slot
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param teacherId query string true "Teacher ID"
// @Param timeSlotId query string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/conflicts/teacher [get]
func (h *ScheduleHandler) TeacherConflicts(c *gin.Context) {
	q := dto.ConflictProbeQuery{
		TermID:     c.Query("termId"),
		TeacherID:  c.Query("teacherId"),
		TimeSlotID: c.Query("timeSlotId"),
	}
	if q.TeacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacherId required"))
		return
	}
	h.resourceConflicts(c, q)
}

// ClassroomConflicts godoc
// @Summary Report double bookings of a classroom at a slot
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param classroomId query string true "Classroom ID"
// @Param timeSlotId query string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/conflicts/classroom [get]
func (h *ScheduleHandler) ClassroomConflicts(c *gin.Context) {
	q := dto.ConflictProbeQuery{
		TermID:      c.Query("termId"),
		ClassroomID: c.Query("classroomId"),
		TimeSlotID:  c.Query("timeSlotId"),
	}
	if q.ClassroomID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classroomId required"))
		return
	}
	h.resourceConflicts(c, q)
}

func (h *ScheduleHandler) resourceConflicts(c *gin.Context, q dto.ConflictProbeQuery) {
	conflicts, err := h.service.ResourceConflicts(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "hasConflicts": len(conflicts) > 0}, nil)
}

// conflictOrError renders rejected batch operations with the conflict detail
// in the body so clients can display what blocked the write.
func conflictOrError(c *gin.Context, result *dto.ScheduleResult, err error) {
	appErr := appErrors.FromError(err)
	if result != nil && appErr.Code == appErrors.ErrScheduleConflict.Code {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.JSON(appErr.Status, response.Envelope{Data: result, Error: appErr})
		return
	}
	response.Error(c, err)
}
