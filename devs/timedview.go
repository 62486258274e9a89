package devs

import "container/heap"

// timedViewHeap schedules TimedView samples independently of the main
// event Scheduler, grounded on the source's TimedObservationScheduler
// (vle/devs/Scheduler.hpp): a second min-heap, keyed by next-sample time,
// that the coordinator folds into the current bag only when a view's
// next-sample time is due, so periodic sampling never distorts the event
// scheduler's own invariants (spec §4.5/§8 are about the event heap only).
type timedViewHeap []*liveView

func (h timedViewHeap) Len() int           { return len(h) }
func (h timedViewHeap) Less(i, j int) bool { return h[i].nextSample < h[j].nextSample }
func (h timedViewHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timedViewHeap) Push(x any)        { *h = append(*h, x.(*liveView)) }
func (h *timedViewHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return v
}

// timedViewScheduler owns the heap and exposes the operations the
// coordinator's view-dispatch step needs.
type timedViewScheduler struct {
	h timedViewHeap
}

func newTimedViewScheduler() *timedViewScheduler {
	return &timedViewScheduler{}
}

// add seeds a timed view's first sample time at simStart + phase.
func (t *timedViewScheduler) add(v *liveView, simStart Time) {
	v.nextSample = simStart.Add(v.spec.Phase)
	heap.Push(&t.h, v)
}

// dueBefore pops and returns every view whose nextSample is <= t, leaving
// the heap consistent; each popped view's nextSample has NOT yet been
// advanced (the caller samples, then calls reschedule).
func (t *timedViewScheduler) dueBefore(tm Time) []*liveView {
	var due []*liveView
	for len(t.h) > 0 && t.h[0].nextSample <= tm {
		due = append(due, heap.Pop(&t.h).(*liveView))
	}
	return due
}

// reschedule advances v's nextSample by its timestep until it exceeds t,
// then re-inserts it, matching "advance tV by Δ until tV > t" (spec §4.7
// step 5).
func (t *timedViewScheduler) reschedule(v *liveView, tm Time) {
	for v.nextSample <= tm {
		v.nextSample = v.nextSample.Add(v.spec.Timestep)
	}
	heap.Push(&t.h, v)
}

// nextTime reports the earliest pending timed-view sample time, or PosInf.
func (t *timedViewScheduler) nextTime() Time {
	if len(t.h) == 0 {
		return PosInf
	}
	return t.h[0].nextSample
}

// drainAll empties the heap, returning every still-pending view. Used by
// Coordinator.Finish, which samples only those whose next sample time is
// due at the finish time.
func (t *timedViewScheduler) drainAll() []*liveView {
	all := make([]*liveView, len(t.h))
	copy(all, t.h)
	t.h = nil
	return all
}
