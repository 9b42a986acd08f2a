package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type fakeScheduleSrv struct {
	result    *dto.ScheduleResult
	conflicts []models.Conflict
	slots     []models.TimeSlot
	recs      []dto.ClassroomRecommendation
	persisted []models.Assignment
	removed   int64
	err       error

	lastAuto  dto.AutoScheduleRequest
	lastSave  dto.SaveProposalRequest
	lastCopy  dto.CopyScheduleRequest
	lastProbe dto.ConflictProbeQuery
}

func (f *fakeScheduleSrv) AutoSchedule(_ context.Context, req dto.AutoScheduleRequest) (*dto.ScheduleResult, error) {
	f.lastAuto = req
	return f.result, f.err
}

func (f *fakeScheduleSrv) SaveProposal(_ context.Context, req dto.SaveProposalRequest) (*dto.ScheduleResult, error) {
	f.lastSave = req
	return f.result, f.err
}

func (f *fakeScheduleSrv) Validate(_ context.Context, _ dto.ValidateScheduleRequest) (*dto.ScheduleResult, error) {
	return f.result, f.err
}

func (f *fakeScheduleSrv) Optimize(_ context.Context, _ dto.OptimizeScheduleRequest) (*dto.ScheduleResult, error) {
	return f.result, f.err
}

func (f *fakeScheduleSrv) CheckConflicts(_ context.Context, _ dto.CheckConflictsRequest) ([]models.Conflict, error) {
	return f.conflicts, f.err
}

func (f *fakeScheduleSrv) BatchImport(_ context.Context, _ dto.BatchImportRequest) (*dto.ScheduleResult, error) {
	return f.result, f.err
}

func (f *fakeScheduleSrv) Copy(_ context.Context, req dto.CopyScheduleRequest) (*dto.ScheduleResult, error) {
	f.lastCopy = req
	return f.result, f.err
}

func (f *fakeScheduleSrv) Clear(_ context.Context, _ string) (int64, error) {
	return f.removed, f.err
}

func (f *fakeScheduleSrv) PersistedSchedule(_ context.Context, _ string) ([]models.Assignment, error) {
	return f.persisted, f.err
}

func (f *fakeScheduleSrv) AvailableTimeSlots(_ context.Context, _ dto.AvailabilityQuery) ([]models.TimeSlot, error) {
	return f.slots, f.err
}

func (f *fakeScheduleSrv) RecommendClassrooms(_ context.Context, _ dto.RecommendClassroomsQuery) ([]dto.ClassroomRecommendation, error) {
	return f.recs, f.err
}

func (f *fakeScheduleSrv) ResourceConflicts(_ context.Context, q dto.ConflictProbeQuery) ([]models.Conflict, error) {
	f.lastProbe = q
	return f.conflicts, f.err
}

func newScheduleContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, rec
}

func TestScheduleHandlerAutoSchedule(t *testing.T) {
	srv := &fakeScheduleSrv{result: &dto.ScheduleResult{ProposalID: "p-1", TermID: "term-1", Success: true}}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/auto", dto.AutoScheduleRequest{TermID: "term-1"})
	h.AutoSchedule(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "term-1", srv.lastAuto.TermID)
	var envelope struct {
		Data dto.ScheduleResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "p-1", envelope.Data.ProposalID)
}

func TestScheduleHandlerAutoScheduleBadPayload(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{})

	c, rec := newScheduleContext(http.MethodPost, "/schedule/auto", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule/auto", bytes.NewReader([]byte("{not json")))
	h.AutoSchedule(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerSaveProposalUsesPathParam(t *testing.T) {
	srv := &fakeScheduleSrv{result: &dto.ScheduleResult{TermID: "term-1", Success: true}}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/proposals/p-9/save", nil)
	c.Params = gin.Params{{Key: "id", Value: "p-9"}}
	h.SaveProposal(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p-9", srv.lastSave.ProposalID)
}

func TestScheduleHandlerSaveProposalExpired(t *testing.T) {
	srv := &fakeScheduleSrv{err: appErrors.Clone(appErrors.ErrProposalExpired, "")}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/proposals/p-9/save", nil)
	c.Params = gin.Params{{Key: "id", Value: "p-9"}}
	h.SaveProposal(c)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestScheduleHandlerImportConflictCarriesDetail(t *testing.T) {
	srv := &fakeScheduleSrv{
		result: &dto.ScheduleResult{
			TermID:    "term-1",
			Conflicts: []models.Conflict{{Kind: models.ConflictTeacherDoubleBooked, SectionID: "sec-1"}},
		},
		err: appErrors.Clone(appErrors.ErrScheduleConflict, "import rejected because of conflicts"),
	}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/import", dto.BatchImportRequest{
		TermID:      "term-1",
		Assignments: []dto.AssignmentPayload{{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"}},
	})
	h.Import(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Data  dto.ScheduleResult `json:"data"`
		Error *appErrors.Error   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, envelope.Error.Code)
	assert.Len(t, envelope.Data.Conflicts, 1)
}

func TestScheduleHandlerCopy(t *testing.T) {
	srv := &fakeScheduleSrv{result: &dto.ScheduleResult{TermID: "term-2", Success: true}}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/copy", dto.CopyScheduleRequest{FromTermID: "term-1", ToTermID: "term-2", Force: true})
	h.Copy(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.lastCopy.Force)
}

func TestScheduleHandlerClear(t *testing.T) {
	srv := &fakeScheduleSrv{removed: 12}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodDelete, "/schedule/term-1", nil)
	c.Params = gin.Params{{Key: "termId", Value: "term-1"}}
	h.Clear(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(12), envelope.Data["removed"])
}

func TestScheduleHandlerCheckConflictsFlagsResult(t *testing.T) {
	srv := &fakeScheduleSrv{conflicts: []models.Conflict{{Kind: models.ConflictClassroomDoubleBooked}}}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodPost, "/schedule/conflicts/check", dto.CheckConflictsRequest{
		TermID:    "term-1",
		Candidate: dto.AssignmentPayload{SectionID: "sec-1", TimeSlotID: "slot-1", ClassroomID: "room-1"},
	})
	h.CheckConflicts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Data["hasConflicts"])
}

func TestScheduleHandlerTeacherConflictsRequiresTeacher(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{})

	c, rec := newScheduleContext(http.MethodGet, "/schedule/conflicts/teacher?termId=term-1&timeSlotId=slot-1", nil)
	h.TeacherConflicts(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerClassroomConflicts(t *testing.T) {
	srv := &fakeScheduleSrv{}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodGet, "/schedule/conflicts/classroom?termId=term-1&classroomId=room-1&timeSlotId=slot-1", nil)
	h.ClassroomConflicts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room-1", srv.lastProbe.ClassroomID)
	assert.Equal(t, "slot-1", srv.lastProbe.TimeSlotID)
}

func TestScheduleHandlerRecommendedClassroomsParsesLimit(t *testing.T) {
	srv := &fakeScheduleSrv{recs: []dto.ClassroomRecommendation{}}
	h := NewScheduleHandler(srv)

	c, rec := newScheduleContext(http.MethodGet, "/schedule/recommended-classrooms?termId=term-1&sectionId=sec-1&timeSlotId=slot-1&limit=3", nil)
	h.RecommendedClassrooms(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
