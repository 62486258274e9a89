package devs

import "container/heap"

// schedEntry is a single (time, simulator) scheduler entry. Simulators
// hold a pointer to their own entry as the "scheduler handle" named in
// spec §3; Coordinator.Load owns the Simulator slice by stable pointer
// identity so no index renumbering is needed on removal (the design note
// in SPEC_FULL.md's "stable identifiers" choice applies to the
// Coordinator's simulator vector, not to this heap, which already only
// ever references simulators by pointer).
type schedEntry struct {
	sim   *Simulator
	time  Time
	index int
}

// schedHeap implements container/heap.Interface, ordered by time
// ascending, adapted from the teacher's workHeap[S] in graph/scheduler.go
// (OrderKey min-heap) but keyed by simulation Time instead of a
// hash-derived tie-break, matching spec §4.5's "min-heap of (t, simulator)
// with decrease-key/erase".
type schedHeap []*schedEntry

func (h schedHeap) Len() int            { return len(h) }
func (h schedHeap) Less(i, j int) bool  { return h[i].time < h[j].time }
func (h schedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *schedHeap) Push(x any) {
	e := x.(*schedEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *schedHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is the mutable min-priority queue of (time, simulator) plus
// the current Bag, exactly the combined structure spec §4.5/§3 describes.
type Scheduler struct {
	heap        schedHeap
	currentTime Time
	bag         *Bag
}

// NewScheduler returns an empty scheduler. currentTime starts at NegInf,
// the sentinel the spec reserves for "not yet begun".
func NewScheduler() *Scheduler {
	return &Scheduler{currentTime: NegInf, bag: newBag()}
}

// CurrentTime returns the scheduler's notion of "now".
func (s *Scheduler) CurrentTime() Time { return s.currentTime }

// CurrentBag returns the bag assembled by the most recent Init/MakeNextBag.
func (s *Scheduler) CurrentBag() *Bag { return s.bag }

// GetNextTime returns the top entry's time, or PosInf if the heap is empty.
func (s *Scheduler) GetNextTime() Time {
	if len(s.heap) == 0 {
		return PosInf
	}
	return s.heap[0].time
}

// Init sets currentTime = t and drains every entry with time <= t into a
// fresh current bag, marking each drained simulator as having a due
// internal event.
func (s *Scheduler) Init(t Time) {
	s.currentTime = t
	s.bag = newBag()
	s.drainDueInto(s.bag, t)
}

func (s *Scheduler) drainDueInto(bag *Bag, t Time) {
	for len(s.heap) > 0 && s.heap[0].time <= t {
		e := heap.Pop(&s.heap).(*schedEntry)
		sim := e.sim
		sim.entry = nil
		bag.add(sim)
		sim.haveInternal = true
	}
}

// AddInternal inserts or decrease-keys sim's entry to t. t must be >=
// currentTime; a finite t earlier than currentTime is a programming error
// reported as a SchedulerInvariantError. A non-finite t (PosInf) means
// "never": any existing entry for sim is erased and nothing is inserted.
func (s *Scheduler) AddInternal(sim *Simulator, t Time) error {
	if !t.IsFinite() {
		s.eraseEntry(sim)
		return nil
	}
	if t.Before(s.currentTime) {
		return &SchedulerInvariantError{
			Simulator: sim.Name,
			Message:   "addInternal called with t before currentTime",
		}
	}
	if sim.entry != nil {
		sim.entry.time = t
		heap.Fix(&s.heap, sim.entry.index)
		return nil
	}
	e := &schedEntry{sim: sim, time: t}
	sim.entry = e
	heap.Push(&s.heap, e)
	return nil
}

// AddExternal queues the external event on sim's pending bag. If sim was
// not yet in the current bag it is added now. If sim held a scheduler
// entry (necessarily for a time strictly later than currentTime, since
// anything due at currentTime was already drained into the bag) that
// entry is erased: the incoming external will drive sim's next transition
// in this bag instead, and its tN is re-derived by whichever transition
// fires.
func (s *Scheduler) AddExternal(sim *Simulator, port string, v Value) {
	sim.addExternalEvent(port, v)
	s.bag.add(sim)
	if sim.entry != nil {
		s.eraseEntry(sim)
		sim.haveInternal = false
	}
}

// DelSimulator removes sim from the current bag and erases any scheduler
// entry. Called by the executive bridge when an atomic model is removed.
func (s *Scheduler) DelSimulator(sim *Simulator) {
	s.bag.remove(sim)
	s.eraseEntry(sim)
}

// MakeNextBag sets currentTime to the earliest remaining entry's time and
// drains all entries at that time into the current bag, preserving any
// simulator a caller already queued there via AddExternal. No-op if the
// heap is empty. Used by callers driving the event scheduler on its own,
// without a coordinator folding in timed-view sample times (e.g.
// scheduler-only tests).
func (s *Scheduler) MakeNextBag() {
	if len(s.heap) == 0 {
		return
	}
	s.AdvanceTo(s.heap[0].time)
}

// StartBag discards the current bag and begins a fresh one, without
// touching currentTime or the heap. Called by the coordinator at the top
// of each bag cycle, before AdvanceTo, so a fully-processed prior bag
// never bleeds into the next one; AddExternal calls after that point (the
// same cycle's routed activations) accumulate into the fresh bag.
func (s *Scheduler) StartBag() {
	s.bag = newBag()
}

// AdvanceTo sets currentTime = t and drains every due entry (time <= t)
// into the current bag, usable mid-run. t may be earlier than the heap's
// top entry (e.g. a coordinator advancing only to a due timed view's
// sample time with no event yet due), in which case no further entries
// drain. Simulators already queued into the bag by a prior AddExternal
// (at the same currentTime) are kept, not discarded.
func (s *Scheduler) AdvanceTo(t Time) {
	s.currentTime = t
	s.drainDueInto(s.bag, t)
}

// Len reports the number of simulators currently holding a scheduler entry.
func (s *Scheduler) Len() int { return len(s.heap) }

func (s *Scheduler) eraseEntry(sim *Simulator) {
	e := sim.entry
	if e == nil {
		return
	}
	heap.Remove(&s.heap, e.index)
	sim.entry = nil
}
