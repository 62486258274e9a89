package devs

import "github.com/google/uuid"

// Simulator wraps exactly one dynamic instance and maintains its
// next-event time. One Simulator is created per atomic model at flatten
// time (Coordinator.Load).
type Simulator struct {
	Name  string
	ID    uuid.UUID
	Model *AtomicModel
	Dyn   Dynamics

	tN       Time
	lastTime Time

	pending      []ExternalEvent
	haveInternal bool
	haveExternal bool

	entry *schedEntry // non-nil iff this simulator holds a scheduler handle
}

func newSimulator(model *AtomicModel, dyn Dynamics) *Simulator {
	return &Simulator{
		Name:     model.Name,
		ID:       model.ID,
		Model:    model,
		Dyn:      dyn,
		tN:       NegInf,
		lastTime: NegInf,
	}
}

func (s *Simulator) isExecutive() bool {
	_, ok := s.Dyn.(Executive)
	return ok
}

// init invokes dynamic.Init, sets tN and lastTime, clears the external bag.
func (s *Simulator) init(t Time) error {
	d := s.Dyn.Init(t)
	if err := s.validateDuration(t, d); err != nil {
		return err
	}
	s.lastTime = t
	s.tN = t.Add(d)
	s.pending = nil
	s.haveInternal = false
	s.haveExternal = false
	return nil
}

func (s *Simulator) finish() {
	s.Dyn.Finish()
}

// output appends this simulator's output events, annotated with source
// identity, into out. Must only be called when haveInternal is set
// (output precedes a due internal transition, confluent or plain).
func (s *Simulator) output(t Time) ([]routedOutput, error) {
	events := s.Dyn.Output(t)
	routed := make([]routedOutput, 0, len(events))
	for _, ev := range events {
		if !s.Model.hasOutPort(ev.Port) {
			return nil, &ModellingError{
				Simulator: s.Name,
				Time:      t,
				Message:   "output on undeclared port " + ev.Port,
			}
		}
		routed = append(routed, routedOutput{source: s, port: ev.Port, value: ev.Value})
	}
	return routed, nil
}

// addExternalEvent appends to the pending bag. Callable only while
// assembling a bag (from the Scheduler/Coordinator, on the driver thread).
func (s *Simulator) addExternalEvent(port string, v Value) {
	s.pending = append(s.pending, ExternalEvent{Port: port, Value: v})
	s.haveExternal = true
}

// internalTransition requires haveInternal && !haveExternal.
func (s *Simulator) internalTransition(t Time) error {
	s.Dyn.InternalTransition(t)
	return s.advance(t)
}

// externalTransition requires a non-empty pending bag.
func (s *Simulator) externalTransition(t Time) error {
	s.Dyn.ExternalTransition(t, s.pending)
	s.clearBag()
	return s.advance(t)
}

// confluentTransition requires both an internal due-time and a non-empty
// pending bag. If the dynamic implements ConfluentDynamics, that is
// invoked; otherwise the kernel default fires: external-then-internal.
func (s *Simulator) confluentTransition(t Time) error {
	if cd, ok := s.Dyn.(ConfluentDynamics); ok {
		cd.ConfluentTransition(t, s.pending)
	} else {
		s.Dyn.ExternalTransition(t, s.pending)
		s.Dyn.InternalTransition(t)
	}
	s.clearBag()
	return s.advance(t)
}

func (s *Simulator) clearBag() {
	s.pending = nil
	s.haveExternal = false
}

func (s *Simulator) advance(t Time) error {
	d := s.Dyn.TimeAdvance()
	if err := s.validateDuration(t, d); err != nil {
		return err
	}
	s.lastTime = t
	s.tN = t.Add(d)
	s.haveInternal = false
	return nil
}

func (s *Simulator) validateDuration(t Time, d Duration) error {
	if d.IsNegativeInfinity() || (d.IsFinite() && d < 0) {
		return &ModellingError{
			Simulator: s.Name,
			Time:      t,
			Message:   "dynamic returned a negative or -Inf time-advance",
		}
	}
	return nil
}

// routedOutput is an output event annotated with its producing simulator,
// used by the coordinator's route phase to look up the routing table.
type routedOutput struct {
	source *Simulator
	port   string
	value  Value
}
