package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/campusops/timetable-api/internal/dto"
)

const moveEvalWorkers = 4

// Optimizer refines a feasible schedule by bounded local search. The move
// set is single relocations and pairwise swaps; each iteration evaluates a
// bounded neighborhood, applies the single best strictly-improving move and
// stops on convergence, budget exhaustion or context deadline. Moves are
// feasibility-filtered up front, so the optimizer never trades away
// conflict-freedom the generator established.
type Optimizer struct {
	det  *Detector
	cfg  dto.AlgorithmConfig
	cost costModel
}

// NewOptimizer wires an optimizer over the detector's universe.
func NewOptimizer(det *Detector, cfg dto.AlgorithmConfig) *Optimizer {
	return &Optimizer{det: det, cfg: cfg, cost: newCostModel(det, cfg)}
}

// Outcome reports the optimized schedule and run accounting.
type Outcome struct {
	Schedule    Schedule
	Unscheduled []string
	Iterations  int
	InitialCost float64
	FinalCost   float64
}

type move struct {
	key      string
	sectionA string
	sectionB string
	slotA    string
	roomA    string
	slotB    string
	roomB    string
	delta    float64
}

// Optimize runs the local search. The input schedule is not mutated; the
// best schedule found so far is returned even on deadline, never one with a
// half-applied move.
func (o *Optimizer) Optimize(ctx context.Context, input Schedule, unscheduled []string) Outcome {
	schedule := input.Clone()
	pending := append([]string(nil), unscheduled...)
	sort.Strings(pending)

	occ := newOccupancy(o.det)
	dayLoad := make(map[int]int)
	for _, a := range schedule {
		occ.add(a)
		if slot, ok := o.det.Slot(a.TimeSlotID); ok {
			dayLoad[slot.DayOfWeek]++
		}
	}

	initial := o.totalCost(schedule, len(pending))
	rng := rand.New(rand.NewSource(o.cfg.Seed))

	iterations := 0
	for iterations < o.cfg.MaxIterations {
		if ctx.Err() != nil {
			break
		}
		iterations++

		placed := o.placePending(occ, dayLoad, schedule, &pending)

		candidates := o.collectMoves(occ, schedule, rng)
		o.evaluate(candidates, schedule, dayLoad)

		best, ok := pickBest(candidates)
		if !ok {
			if !placed {
				break
			}
			continue
		}
		o.apply(best, occ, dayLoad, schedule)
	}

	return Outcome{
		Schedule:    schedule,
		Unscheduled: pending,
		Iterations:  iterations,
		InitialCost: initial,
		FinalCost:   o.totalCost(schedule, len(pending)),
	}
}

// totalCost extends the schedule cost with a dominant penalty per
// unscheduled section so improving coverage always improves cost.
func (o *Optimizer) totalCost(s Schedule, unscheduledCount int) float64 {
	w := o.cfg.ConflictWeights
	penalty := w.Teacher + w.StudentGroup + w.Classroom
	return o.cost.Cost(s) + penalty*float64(unscheduledCount)
}

// placePending retries unscheduled sections against the current occupancy.
func (o *Optimizer) placePending(occ *occupancy, dayLoad map[int]int, schedule Schedule, pending *[]string) bool {
	if len(*pending) == 0 {
		return false
	}
	gen := &Generator{det: o.det, cfg: o.cfg, cost: o.cost}
	placedAny := false
	remaining := (*pending)[:0]
	for _, id := range *pending {
		sec, ok := o.det.Section(id)
		if !ok {
			continue
		}
		assignment, found := gen.placeBest(occ, dayLoad, sec)
		if !found {
			remaining = append(remaining, id)
			continue
		}
		schedule[id] = assignment
		occ.add(assignment)
		if slot, ok := o.det.Slot(assignment.TimeSlotID); ok {
			dayLoad[slot.DayOfWeek]++
		}
		placedAny = true
	}
	*pending = remaining
	return placedAny
}

// collectMoves builds the feasibility-checked candidate moves for one
// iteration: relocations and swaps inside a round-robin window whose start
// is drawn from the seeded source.
func (o *Optimizer) collectMoves(occ *occupancy, schedule Schedule, rng *rand.Rand) []*move {
	ids := make([]string, 0, len(schedule))
	for id := range schedule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return nil
	}

	window := o.cfg.NeighborhoodSize
	if window > len(ids) {
		window = len(ids)
	}
	start := rng.Intn(len(ids))
	sample := make([]string, 0, window)
	for i := 0; i < window; i++ {
		sample = append(sample, ids[(start+i)%len(ids)])
	}
	sort.Strings(sample)

	var moves []*move
	for _, id := range sample {
		moves = append(moves, o.relocations(occ, schedule, id)...)
	}
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			if m, ok := o.swap(occ, schedule, sample[i], sample[j]); ok {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

func (o *Optimizer) relocations(occ *occupancy, schedule Schedule, sectionID string) []*move {
	current := schedule[sectionID]
	sec, ok := o.det.Section(sectionID)
	if !ok {
		return nil
	}
	occ.remove(current)
	defer occ.add(current)

	var moves []*move
	for _, slotID := range o.det.SlotIDs() {
		for _, roomID := range o.det.RoomIDs() {
			if slotID == current.TimeSlotID && roomID == current.ClassroomID {
				continue
			}
			if !occ.canPlace(sec, slotID, roomID) {
				continue
			}
			moves = append(moves, &move{
				key:      fmt.Sprintf("r|%s|%s|%s", sectionID, roomID, slotID),
				sectionA: sectionID,
				slotA:    slotID,
				roomA:    roomID,
			})
		}
	}
	return moves
}

// swap proposes exchanging the (slot, classroom) pairs of two sections.
// Feasibility is checked with both removed and the first re-added at its
// target before probing the second, so the pair is accepted atomically.
func (o *Optimizer) swap(occ *occupancy, schedule Schedule, idA, idB string) (*move, bool) {
	a, b := schedule[idA], schedule[idB]
	secA, okA := o.det.Section(idA)
	secB, okB := o.det.Section(idB)
	if !okA || !okB {
		return nil, false
	}

	occ.remove(a)
	occ.remove(b)
	feasible := false
	if occ.canPlace(secA, b.TimeSlotID, b.ClassroomID) {
		moved := a
		moved.TimeSlotID, moved.ClassroomID = b.TimeSlotID, b.ClassroomID
		occ.add(moved)
		feasible = occ.canPlace(secB, a.TimeSlotID, a.ClassroomID)
		occ.remove(moved)
	}
	occ.add(a)
	occ.add(b)
	if !feasible {
		return nil, false
	}
	return &move{
		key:      fmt.Sprintf("s|%s|%s", idA, idB),
		sectionA: idA,
		sectionB: idB,
		slotA:    b.TimeSlotID,
		roomA:    b.ClassroomID,
		slotB:    a.TimeSlotID,
		roomB:    a.ClassroomID,
	}, true
}

// evaluate scores candidate deltas on a bounded worker pool. Evaluation is
// read-only against the schedule snapshot; results land by index, so worker
// interleaving cannot change the chosen move.
func (o *Optimizer) evaluate(moves []*move, schedule Schedule, dayLoad map[int]int) {
	if len(moves) == 0 {
		return
	}
	workers := moveEvalWorkers
	if workers > len(moves) {
		workers = len(moves)
	}
	var wg sync.WaitGroup
	chunk := (len(moves) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(moves) {
			hi = len(moves)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(batch []*move) {
			defer wg.Done()
			for _, m := range batch {
				m.delta = o.delta(m, schedule, dayLoad)
			}
		}(moves[lo:hi])
	}
	wg.Wait()
}

// delta computes the cost change of a move. Feasible moves keep the
// conflict term at zero, so only preference and balance terms move.
func (o *Optimizer) delta(m *move, schedule Schedule, dayLoad map[int]int) float64 {
	a := schedule[m.sectionA]
	moved := a
	moved.TimeSlotID, moved.ClassroomID = m.slotA, m.roomA
	delta := o.cost.preference(a) - o.cost.preference(moved)

	if m.sectionB != "" {
		b := schedule[m.sectionB]
		movedB := b
		movedB.TimeSlotID, movedB.ClassroomID = m.slotB, m.roomB
		// Swaps exchange days one-for-one, leaving per-day loads intact.
		return delta + o.cost.preference(b) - o.cost.preference(movedB)
	}

	oldSlot, okOld := o.det.Slot(a.TimeSlotID)
	newSlot, okNew := o.det.Slot(m.slotA)
	if okOld && okNew && oldSlot.DayOfWeek != newSlot.DayOfWeek {
		before := o.cost.balancePenalty(dayLoad, len(schedule))
		after := cloneLoads(dayLoad)
		after[oldSlot.DayOfWeek]--
		after[newSlot.DayOfWeek]++
		delta += o.cost.balancePenalty(after, len(schedule)) - before
	}
	return delta
}

func cloneLoads(loads map[int]int) map[int]int {
	out := make(map[int]int, len(loads))
	for k, v := range loads {
		out[k] = v
	}
	return out
}

// pickBest selects the strictly-improving move with the lowest delta,
// breaking ties on the move key for determinism.
func pickBest(moves []*move) (*move, bool) {
	var best *move
	for _, m := range moves {
		if m.delta >= -scoreEpsilon {
			continue
		}
		if best == nil || m.delta < best.delta-scoreEpsilon ||
			(m.delta < best.delta+scoreEpsilon && m.key < best.key) {
			best = m
		}
	}
	return best, best != nil
}

func (o *Optimizer) apply(m *move, occ *occupancy, dayLoad map[int]int, schedule Schedule) {
	if m.sectionB == "" {
		o.applyOne(m.sectionA, m.slotA, m.roomA, occ, dayLoad, schedule)
		return
	}
	// Swaps clear both occupants before re-adding so shared (room, slot)
	// keys are never deleted out from under the other section.
	a, b := schedule[m.sectionA], schedule[m.sectionB]
	occ.remove(a)
	occ.remove(b)
	a.TimeSlotID, a.ClassroomID = m.slotA, m.roomA
	b.TimeSlotID, b.ClassroomID = m.slotB, m.roomB
	schedule[m.sectionA] = a
	schedule[m.sectionB] = b
	occ.add(a)
	occ.add(b)
}

func (o *Optimizer) applyOne(sectionID, slotID, roomID string, occ *occupancy, dayLoad map[int]int, schedule Schedule) {
	current := schedule[sectionID]
	occ.remove(current)
	if slot, ok := o.det.Slot(current.TimeSlotID); ok {
		dayLoad[slot.DayOfWeek]--
	}
	current.TimeSlotID = slotID
	current.ClassroomID = roomID
	schedule[sectionID] = current
	occ.add(current)
	if slot, ok := o.det.Slot(slotID); ok {
		dayLoad[slot.DayOfWeek]++
	}
}
