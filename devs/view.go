package devs

// ViewKind is the sampling discipline of an observation View.
type ViewKind int

const (
	// TimedView samples at t_start, t_start+Δ, t_start+2Δ, ... regardless
	// of model activity.
	TimedView ViewKind = iota
	// EventView samples an attachment in every bag in which its port is
	// activated: an external event arrives on it, or (for an output port)
	// the simulator emits on it. Several events on the same port in one
	// bag yield one sample.
	EventView
	// FinishView samples once per attachment, at t_end, during finish().
	FinishView
)

func (k ViewKind) String() string {
	switch k {
	case TimedView:
		return "Timed"
	case EventView:
		return "Event"
	case FinishView:
		return "Finish"
	default:
		return "Unknown"
	}
}

// FinalArtifact is the opaque value a Sink hands back on Close, e.g. a
// file path, an in-memory row count, or a handle to a started broadcast.
type FinalArtifact any

// Sink is the output-sink interface a View writes samples to. The kernel
// only ever calls it from the driver thread (views are dispatched in step
// 5 of the bag cycle, never from worker-pool goroutines).
type Sink interface {
	Open(config map[string]any) error
	WriteRow(t Time, source, port string, value Value) error
	Flush() error
	Close() (FinalArtifact, error)
}

// ViewAttachment declares, on an AtomicModel, that one of its ports is
// observed by a named view. Resolved into a live attachment against the
// concrete Simulator at Coordinator.Load time.
type ViewAttachment struct {
	ViewName string
	Port     string
	Label    string // defaults to "<simulatorName>.<port>" if empty
}

// ViewSpec configures a named observation stream: its kind, its sink, and
// (for TimedView) its sampling period and optional phase offset.
type ViewSpec struct {
	Name     string
	Kind     ViewKind
	Sink     Sink
	Timestep Duration // only meaningful when Kind == TimedView; must be > 0
	Phase    Duration // optional start offset, default 0
	Select   func([]string) string // carried on the spec only; the Coordinator never calls it
}

type liveAttachment struct {
	sim   *Simulator
	port  string
	label string
}

// liveView is a ViewSpec resolved against concrete simulators.
type liveView struct {
	spec        ViewSpec
	attachments []liveAttachment
	nextSample  Time // only meaningful for TimedView
	detached    bool
}
