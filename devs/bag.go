package devs

// Bag is the set of simulators to process for the current bag-time, split
// into ordinary dynamics and executives, plus a uniqueness set so a
// simulator never appears twice in the union. Grounded on the source
// Scheduler.hpp Bag struct (dynamics/executives/unique_simulators), kept
// as three parallel fields rather than one interface-typed slice so the
// coordinator can submit the dynamics half to the worker pool and run the
// executives half strictly serially without a second partitioning pass.
type Bag struct {
	Dynamics   []*Simulator
	Executives []*Simulator
	seen       map[*Simulator]struct{}
}

func newBag() *Bag {
	return &Bag{seen: map[*Simulator]struct{}{}}
}

// contains reports whether sim is already present in this bag.
func (b *Bag) contains(sim *Simulator) bool {
	_, ok := b.seen[sim]
	return ok
}

// add inserts sim into the appropriate partition unless already present.
// Returns true if this call actually added the simulator.
func (b *Bag) add(sim *Simulator) bool {
	if b.contains(sim) {
		return false
	}
	b.seen[sim] = struct{}{}
	if sim.isExecutive() {
		b.Executives = append(b.Executives, sim)
	} else {
		b.Dynamics = append(b.Dynamics, sim)
	}
	return true
}

// remove drops sim from whichever partition holds it.
func (b *Bag) remove(sim *Simulator) {
	if !b.contains(sim) {
		return
	}
	delete(b.seen, sim)
	b.Dynamics = removeSim(b.Dynamics, sim)
	b.Executives = removeSim(b.Executives, sim)
}

// all returns dynamics followed by executives; the coordinator's output
// phase iterates this union. The transition phase uses Dynamics and
// Executives separately (ordinary block, then executives strictly
// serially).
func (b *Bag) all() []*Simulator {
	out := make([]*Simulator, 0, len(b.Dynamics)+len(b.Executives))
	out = append(out, b.Dynamics...)
	out = append(out, b.Executives...)
	return out
}

func (b *Bag) empty() bool {
	return len(b.seen) == 0
}

func removeSim(ss []*Simulator, target *Simulator) []*Simulator {
	for i, s := range ss {
		if s == target {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}
