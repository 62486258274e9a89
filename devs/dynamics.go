package devs

// OutputEvent is a value a dynamic emits on one of its declared output
// ports during the output phase.
type OutputEvent struct {
	Port  string
	Value Value
}

// ExternalEvent is a value delivered to one of a dynamic's declared input
// ports, accumulated in the simulator's pending bag between transitions.
type ExternalEvent struct {
	Port  string
	Value Value
}

// Dynamics is the capability interface the kernel expects from every
// user atomic model: init, time-advance, output, the two primary
// transitions, observation and finish. It replaces the source's virtual
// base class with a plain Go interface, per the "dynamic dispatch over
// dynamics" design note.
type Dynamics interface {
	// Init returns the duration to the first internal event. May perform
	// initial setup.
	Init(t Time) Duration

	// TimeAdvance returns the current state's duration; may be PosInf.
	TimeAdvance() Duration

	// Output is called immediately before a due internal transition. It
	// must not mutate state.
	Output(t Time) []OutputEvent

	// InternalTransition applies a state change at a due internal time.
	InternalTransition(t Time)

	// ExternalTransition applies a state change driven by accumulated
	// external events.
	ExternalTransition(t Time, externals []ExternalEvent)

	// Observation is a side-effect-free state query used by views. The
	// second return value is false if port is not currently observable;
	// a view sampling such a port fails with a fatal ModellingError.
	Observation(t Time, port string) (Value, bool)

	// Finish is called once at simulation end.
	Finish()
}

// ConfluentDynamics is an optional capability: a Dynamics implementation
// that wants control over simultaneous internal/external activation
// overrides ConfluentTransition. A Dynamics that does not implement this
// interface gets the kernel's default: ExternalTransition(externals, t)
// followed by InternalTransition(t), both at the same t (spec §4.4).
type ConfluentDynamics interface {
	Dynamics
	ConfluentTransition(t Time, externals []ExternalEvent)
}

// Executive is an optional capability: a Dynamics that may mutate the
// model graph between bags. ExecutiveActions is called by the coordinator
// immediately after this dynamic's transition in the current bag; any
// mutations returned are queued and applied in the executive phase (step
// 4), never in-line.
type Executive interface {
	Dynamics
	ExecutiveActions() []GraphMutation
}
