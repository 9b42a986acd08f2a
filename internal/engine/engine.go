package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
)

// Engine is the facade over detection, generation and optimization. Each
// call builds its own detector and schedule copy, so concurrent invocations
// for different terms share no mutable state.
type Engine struct {
	logger *zap.Logger
}

// New constructs the engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// AutoSchedule builds a draft greedily, refines it with local search and
// returns the outcome. Infeasible sections are reported, never fatal.
func (e *Engine) AutoSchedule(ctx context.Context, req Request) Result {
	cfg := req.Config.Normalize()
	det := NewDetector(req.Sections, req.TimeSlots, req.Classrooms)

	schedule, unscheduled := NewGenerator(det, cfg).Generate()
	outcome := NewOptimizer(det, cfg).Optimize(ctx, schedule, unscheduled)

	conflicts := det.CheckAll(outcome.Schedule.Assignments())
	result := Result{
		TermID:      req.TermID,
		Success:     len(conflicts) == 0 && len(outcome.Unscheduled) == 0,
		Schedule:    outcome.Schedule,
		Conflicts:   conflicts,
		Unscheduled: outcome.Unscheduled,
		Message:     summarize(len(req.Sections), len(outcome.Schedule), len(outcome.Unscheduled), len(conflicts)),
		Iterations:  outcome.Iterations,
		InitialCost: outcome.InitialCost,
		FinalCost:   outcome.FinalCost,
	}

	e.logger.Info("auto schedule run finished",
		zap.String("term_id", req.TermID),
		zap.Int("sections", len(req.Sections)),
		zap.Int("scheduled", len(outcome.Schedule)),
		zap.Int("unscheduled", len(outcome.Unscheduled)),
		zap.Int("iterations", outcome.Iterations),
		zap.Float64("initial_cost", outcome.InitialCost),
		zap.Float64("final_cost", outcome.FinalCost),
	)
	return result
}

// Validate runs conflict detection over an externally supplied assignment
// set without modifying anything.
func (e *Engine) Validate(req Request, assignments []models.Assignment) Result {
	det := NewDetector(req.Sections, req.TimeSlots, req.Classrooms)
	conflicts := det.CheckAll(assignments)

	schedule := make(Schedule, len(assignments))
	for _, a := range assignments {
		schedule[a.SectionID] = a
	}
	return Result{
		TermID:    req.TermID,
		Success:   len(conflicts) == 0,
		Schedule:  schedule,
		Conflicts: conflicts,
		Message:   validationMessage(len(conflicts)),
	}
}

// Optimize refines an existing assignment set under the configured budget.
// Sections present in the universe but absent from the set are treated as
// unscheduled and may be placed during the run.
func (e *Engine) Optimize(ctx context.Context, req Request, assignments []models.Assignment) Result {
	cfg := req.Config.Normalize()
	det := NewDetector(req.Sections, req.TimeSlots, req.Classrooms)

	schedule := make(Schedule, len(assignments))
	for _, a := range assignments {
		schedule[a.SectionID] = a
	}
	var unscheduled []string
	for _, sec := range req.Sections {
		if _, ok := schedule[sec.ID]; !ok {
			unscheduled = append(unscheduled, sec.ID)
		}
	}
	sort.Strings(unscheduled)

	outcome := NewOptimizer(det, cfg).Optimize(ctx, schedule, unscheduled)
	conflicts := det.CheckAll(outcome.Schedule.Assignments())
	return Result{
		TermID:      req.TermID,
		Success:     len(conflicts) == 0 && len(outcome.Unscheduled) == 0,
		Schedule:    outcome.Schedule,
		Conflicts:   conflicts,
		Unscheduled: outcome.Unscheduled,
		Message:     summarize(len(req.Sections), len(outcome.Schedule), len(outcome.Unscheduled), len(conflicts)),
		Iterations:  outcome.Iterations,
		InitialCost: outcome.InitialCost,
		FinalCost:   outcome.FinalCost,
	}
}

func summarize(total, scheduled, unscheduled, conflicts int) string {
	if conflicts > 0 {
		return fmt.Sprintf("schedule contains %d conflicts", conflicts)
	}
	if unscheduled > 0 {
		return fmt.Sprintf("placed %d of %d sections; %d could not be scheduled", scheduled, total, unscheduled)
	}
	return fmt.Sprintf("all %d sections scheduled without conflicts", total)
}

func validationMessage(conflicts int) string {
	if conflicts > 0 {
		return fmt.Sprintf("found %d conflicts", conflicts)
	}
	return "no conflicts found"
}
