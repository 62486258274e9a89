package devs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	stdtime "time"

	"github.com/dshills/pdevs/devs/diag"
	"github.com/google/uuid"
)

// atomicEndpoint names a concrete (Simulator, port) pair produced while
// flattening the model hierarchy: the ultimate atomic source or
// destination a coupled model's own port resolves to.
type atomicEndpoint struct {
	sim  *Simulator
	port string
}

// routeKey/routeDest are the atomic-level routing table's key and value:
// every Connection in the model tree, however deeply nested, compiles down
// to entries keyed by the true producing Simulator and port (Output only
// ever happens at the atomic level), per spec §4.6.
type routeKey struct {
	sim  *Simulator
	port string
}

type routeDest struct {
	sim  *Simulator
	port string
}

// Coordinator owns the flattened simulator vector, the atomic-level routing
// table, the event Scheduler, the independent timed-view scheduler and the
// executive bridge, and drives one bag cycle per Run call. Grounded on the
// source's Coordinator/View (vle/devs), restructured around Go's
// capability-interface Dynamics rather than virtual dispatch.
type Coordinator struct {
	root        ModelNode
	sims        []*Simulator
	byName      map[string]*Simulator
	nodesByName map[string]ModelNode

	scheduler  *Scheduler
	routing    map[routeKey][]routeDest
	timedViews *timedViewScheduler
	views      map[string]*liveView

	pool        *WorkerPool
	metrics     *KernelMetrics
	diagnostics diag.Emitter
	runID       string

	// deferredErrors accumulates non-fatal *SinkError and
	// *ExecutiveDeferredError failures across the run (spec §7: "sink
	// errors and deferred executive errors are collected and returned
	// alongside the finish map. No error is silently swallowed.").
	// Finish joins and returns these; it never aborts the run.
	deferredErrors []error
}

// NewCoordinator builds a Coordinator. A nil pool runs serially; a nil
// diagnostics emitter is replaced with diag.NullEmitter.
func NewCoordinator(pool *WorkerPool, metrics *KernelMetrics, diagnostics diag.Emitter) *Coordinator {
	if pool == nil {
		pool = NewWorkerPool(0, DefaultBlockSize)
	}
	if diagnostics == nil {
		diagnostics = diag.NullEmitter{}
	}
	return &Coordinator{
		scheduler:   NewScheduler(),
		pool:        pool,
		metrics:     metrics,
		diagnostics: diagnostics,
		runID:       uuid.New().String(),
	}
}

// Load flattens root's model hierarchy into an atomic-level simulator
// vector and routing table, and resolves every AtomicModel's view
// attachments against specs. Must be called once, before Init.
func (c *Coordinator) Load(root ModelNode, specs []ViewSpec) error {
	sims := []*Simulator{}
	routing := map[routeKey][]routeDest{}
	nodesByName := map[string]ModelNode{}
	if _, _, err := flattenNode(root, nil, map[uuid.UUID]*Simulator{}, &sims, routing, nodesByName); err != nil {
		return err
	}

	c.root = root
	c.sims = sims
	c.byName = indexByName(sims)
	c.routing = routing
	c.nodesByName = nodesByName

	return c.resolveViews(specs)
}

func (c *Coordinator) resolveViews(specs []ViewSpec) error {
	c.views = make(map[string]*liveView, len(specs))
	for _, spec := range specs {
		c.views[spec.Name] = &liveView{spec: spec}
	}
	for _, am := range CollectAtomics(c.root) {
		sim := c.byName[am.Name]
		for _, att := range am.Views {
			lv, ok := c.views[att.ViewName]
			if !ok {
				return &GraphError{Simulator: am.Name, Message: fmt.Sprintf("view %q is not registered", att.ViewName)}
			}
			if !am.hasInPort(att.Port) && !am.hasOutPort(att.Port) {
				return &GraphError{Simulator: am.Name, Message: fmt.Sprintf("view attachment references undeclared port %q", att.Port)}
			}
			label := att.Label
			if label == "" {
				label = am.Name + "." + att.Port
			}
			lv.attachments = append(lv.attachments, liveAttachment{sim: sim, port: att.Port, label: label})
		}
	}
	return nil
}

// Init initialises every simulator at t0, seeds the event scheduler and the
// timed-view scheduler, and opens every view's sink.
func (c *Coordinator) Init(t0 Time) error {
	for _, sim := range c.sims {
		if err := sim.init(t0); err != nil {
			return err
		}
		if sim.tN.IsFinite() {
			if err := c.scheduler.AddInternal(sim, sim.tN); err != nil {
				return err
			}
		}
	}

	c.timedViews = newTimedViewScheduler()
	for _, lv := range c.views {
		if err := lv.spec.Sink.Open(nil); err != nil {
			return &SinkError{View: lv.spec.Name, Cause: err}
		}
		if lv.spec.Kind == TimedView {
			c.timedViews.add(lv, t0)
		}
	}
	return nil
}

// Run executes exactly one bag cycle: output, route, transition, executive,
// view dispatch, advance. When nothing is pending it runs no cycle and
// returns false with a nil error (the Root driver's stop condition);
// otherwise it runs the cycle and returns true, whether or not anything is
// still pending afterwards, so the false return comes from the next call.
func (c *Coordinator) Run(ctx context.Context) (bool, error) {
	t := c.PeekNextTime()
	if !t.IsFinite() {
		return false, nil
	}

	c.scheduler.StartBag()
	c.scheduler.AdvanceTo(t)
	bag := c.scheduler.CurrentBag()

	if c.metrics != nil {
		c.metrics.SetSchedulerDepth(c.scheduler.Len())
		c.metrics.SetBagSize(len(bag.Dynamics) + len(bag.Executives))
	}

	var mu sync.Mutex
	var outputs []routedOutput
	if err := c.pool.ForEach(ctx, bag.all(), func(sim *Simulator) error {
		if !sim.haveInternal {
			return nil
		}
		routed, err := sim.output(t)
		if err != nil {
			return err
		}
		mu.Lock()
		outputs = append(outputs, routed...)
		mu.Unlock()
		return nil
	}); err != nil {
		return false, err
	}

	activated := map[*Simulator]map[string]bool{}
	for _, ro := range outputs {
		markActivated(activated, ro.source, ro.port)
		for _, dest := range c.routing[routeKey{sim: ro.source, port: ro.port}] {
			c.scheduler.AddExternal(dest.sim, dest.port, ro.value)
			markActivated(activated, dest.sim, dest.port)
		}
	}

	if err := c.pool.ForEach(ctx, bag.Dynamics, func(sim *Simulator) error {
		return c.transition(sim, t)
	}); err != nil {
		return false, err
	}
	for _, sim := range bag.Dynamics {
		if err := c.schedule(sim); err != nil {
			return false, err
		}
	}

	var mutations []GraphMutation
	for _, sim := range bag.Executives {
		if err := c.transition(sim, t); err != nil {
			return false, err
		}
		if err := c.schedule(sim); err != nil {
			return false, err
		}
		if ex, ok := sim.Dyn.(Executive); ok {
			mutations = append(mutations, ex.ExecutiveActions()...)
		}
	}

	for _, m := range mutations {
		if err := c.applyMutation(m); err != nil {
			deferred := &ExecutiveDeferredError{Mutation: m, Cause: err}
			c.deferredErrors = append(c.deferredErrors, deferred)
			c.diagnostics.Emit(diag.Event{
				RunID: c.runID,
				Time:  float64(t),
				Msg:   "executive mutation deferred-failed",
				Meta:  map[string]any{"kind": m.Kind.String(), "error": err.Error()},
			})
			continue
		}
		if c.metrics != nil {
			c.metrics.IncExecutiveOp(m.Kind)
		}
	}

	for name, lv := range c.views {
		if lv.detached || lv.spec.Kind != EventView {
			continue
		}
		for _, att := range lv.attachments {
			if activated[att.sim][att.port] {
				if err := c.sampleView(name, lv, att, t); err != nil {
					return false, err
				}
			}
		}
	}

	for _, lv := range c.timedViews.dueBefore(t) {
		if !lv.detached {
			for _, att := range lv.attachments {
				if err := c.sampleView(lv.spec.Name, lv, att, t); err != nil {
					return false, err
				}
			}
		}
		c.timedViews.reschedule(lv, t)
	}

	return true, nil
}

func (c *Coordinator) transition(sim *Simulator, t Time) error {
	var kind string
	var err error
	start := stdtime.Now()
	switch {
	case sim.haveInternal && sim.haveExternal:
		kind = "confluent"
		err = sim.confluentTransition(t)
	case sim.haveInternal:
		kind = "internal"
		err = sim.internalTransition(t)
	case sim.haveExternal:
		kind = "external"
		err = sim.externalTransition(t)
	default:
		return nil
	}
	if c.metrics != nil {
		c.metrics.ObserveTransition(kind, stdtime.Since(start))
	}
	return err
}

// schedule re-inserts sim into the event scheduler at its new tN. It
// mutates the scheduler, so Run calls it on the driver thread only, after
// the worker-pool transition phase has completed.
func (c *Coordinator) schedule(sim *Simulator) error {
	if sim.tN.IsFinite() {
		return c.scheduler.AddInternal(sim, sim.tN)
	}
	return nil
}

// Finish samples every Finish view, drains the timed-view scheduler
// (sampling a drained timed view only if its next sample time has been
// reached and not yet taken, so no timed sample is repeated or taken off
// its period grid), calls Finish on every simulator, and closes every sink. A
// ModellingError raised by an observation still lets every already-
// initialised dynamic's Finish run before propagating (spec §7); sink
// and deferred executive errors accumulated over the run are joined and
// returned alongside the finish map rather than swallowed.
func (c *Coordinator) Finish() (map[string]FinalArtifact, error) {
	now := c.scheduler.CurrentTime()

	var modellingErr error
	recordModelling := func(err error) {
		if err != nil && modellingErr == nil {
			modellingErr = err
		}
	}

	for _, lv := range c.timedViews.drainAll() {
		if lv.detached || lv.nextSample > now {
			continue
		}
		for _, att := range lv.attachments {
			recordModelling(c.sampleView(lv.spec.Name, lv, att, now))
		}
	}
	for name, lv := range c.views {
		if lv.detached || lv.spec.Kind != FinishView {
			continue
		}
		for _, att := range lv.attachments {
			recordModelling(c.sampleView(name, lv, att, now))
		}
	}

	for _, sim := range c.sims {
		sim.finish()
	}

	artifacts := make(map[string]FinalArtifact, len(c.views))
	for name, lv := range c.views {
		artifact, err := lv.spec.Sink.Close()
		if err != nil {
			c.deferredErrors = append(c.deferredErrors, &SinkError{View: name, Cause: err})
			continue
		}
		artifacts[name] = artifact
	}

	if modellingErr != nil {
		return artifacts, modellingErr
	}
	if len(c.deferredErrors) > 0 {
		return artifacts, errors.Join(c.deferredErrors...)
	}
	return artifacts, nil
}

// sampleView observes att's port and writes the sample to lv's sink. An
// observation returning ok=false for an attached (necessarily declared)
// port is one of the three ModellingError triggers (spec §7) and is
// returned as a fatal error rather than skipped; a sink write failure is
// non-fatal and is appended to c.deferredErrors instead.
func (c *Coordinator) sampleView(name string, lv *liveView, att liveAttachment, t Time) error {
	v, ok := att.sim.Dyn.Observation(t, att.port)
	if !ok {
		return &ModellingError{
			Simulator: att.sim.Name,
			Time:      t,
			Message:   "observation returned nothing for declared port " + att.port,
		}
	}
	if err := lv.spec.Sink.WriteRow(t, att.sim.Name, att.port, v); err != nil {
		if c.metrics != nil {
			c.metrics.IncSinkError(name)
		}
		c.deferredErrors = append(c.deferredErrors, &SinkError{View: name, Cause: err})
		c.diagnostics.Emit(diag.Event{
			RunID: c.runID, Time: float64(t), Msg: "sink write failed",
			Meta: map[string]any{"view": name, "error": err.Error()},
		})
		lv.detached = true
	}
	return nil
}

// applyMutation mutates the model tree in place and reflattens. Errors here
// are deferred-failures (spec §7): the caller logs and continues rather
// than aborting the run.
func (c *Coordinator) applyMutation(m GraphMutation) error {
	parentNode, ok := c.nodesByName[m.Parent]
	if !ok {
		return &GraphError{Message: fmt.Sprintf("executive mutation references unknown parent %q", m.Parent)}
	}
	parent, ok := parentNode.(*CoupledModel)
	if !ok {
		return &GraphError{Message: fmt.Sprintf("executive mutation parent %q is not a coupled model", m.Parent)}
	}

	switch m.Kind {
	case AddAtomic, AddCoupledChild:
		if m.Model == nil {
			return &GraphError{Message: "executive mutation missing model"}
		}
		if err := parent.AddChild(m.Model); err != nil {
			return err
		}
	case RemoveAtomic, RemoveCoupledChild:
		removed, err := parent.RemoveChild(m.ChildName)
		if err != nil {
			return err
		}
		for _, am := range CollectAtomics(removed) {
			sim := c.byName[am.Name]
			if sim == nil {
				continue
			}
			c.scheduler.DelSimulator(sim)
			sim.finish()
			delete(c.byName, am.Name)
			c.detachViews(sim)
		}
	case AddConnection:
		if err := parent.Connect(m.Conn.From, m.Conn.To); err != nil {
			return err
		}
	case RemoveConnection:
		if err := parent.RemoveConnection(m.Conn); err != nil {
			return err
		}
	}

	return c.reflatten()
}

func (c *Coordinator) detachViews(sim *Simulator) {
	for name, lv := range c.views {
		kept := lv.attachments[:0]
		var changed bool
		for _, att := range lv.attachments {
			if att.sim == sim {
				changed = true
				c.diagnostics.Emit(diag.Event{
					RunID: c.runID, Msg: "view attachment detached",
					Meta: map[string]any{"view": name, "simulator": sim.Name},
				})
				continue
			}
			kept = append(kept, att)
		}
		if changed {
			lv.attachments = kept
		}
	}
}

// reflatten re-derives the simulator vector and routing table from the
// (now mutated) model tree, reusing existing Simulator instances by atomic
// ID so live state survives, and initialising only newly-added atomics.
func (c *Coordinator) reflatten() error {
	existing := make(map[uuid.UUID]*Simulator, len(c.sims))
	known := make(map[*Simulator]bool, len(c.sims))
	for _, sim := range c.sims {
		existing[sim.ID] = sim
		known[sim] = true
	}

	sims := []*Simulator{}
	routing := map[routeKey][]routeDest{}
	nodesByName := map[string]ModelNode{}
	if _, _, err := flattenNode(c.root, nil, existing, &sims, routing, nodesByName); err != nil {
		return err
	}

	for _, sim := range sims {
		if known[sim] {
			continue
		}
		if err := sim.init(c.scheduler.CurrentTime()); err != nil {
			return err
		}
		if sim.tN.IsFinite() {
			if err := c.scheduler.AddInternal(sim, sim.tN); err != nil {
				return err
			}
		}
	}

	c.sims = sims
	c.byName = indexByName(sims)
	c.routing = routing
	c.nodesByName = nodesByName
	return nil
}

// Simulators returns the current flattened simulator vector.
func (c *Coordinator) Simulators() []*Simulator { return c.sims }

// Scheduler returns the coordinator's event scheduler for callers that need
// to drive or inspect the bag-formation invariants directly.
func (c *Coordinator) Scheduler() *Scheduler { return c.scheduler }

// CurrentTime returns the coordinator's current bag time.
func (c *Coordinator) CurrentTime() Time { return c.scheduler.CurrentTime() }

// AdvanceClockTo forces the coordinator's current time forward to t without
// processing a bag. Used by the Root driver when a terminal-time bound is
// reached with no bag left to run, so Finish samples Finish views (and
// drains pending Timed views) at the bound itself rather than at whatever
// time the last real bag happened to land on. No-op if t is before the
// current time.
func (c *Coordinator) AdvanceClockTo(t Time) {
	if t.Before(c.scheduler.CurrentTime()) {
		return
	}
	c.scheduler.StartBag()
	c.scheduler.AdvanceTo(t)
}

// PeekNextTime returns the time the next Run call would advance to,
// without advancing: the earlier of the next scheduled event and the next
// due timed-view sample. PosInf means no further work is pending.
func (c *Coordinator) PeekNextTime() Time {
	t := c.scheduler.GetNextTime()
	if vt := c.timedViews.nextTime(); vt < t {
		t = vt
	}
	return t
}

func markActivated(m map[*Simulator]map[string]bool, sim *Simulator, port string) {
	if m[sim] == nil {
		m[sim] = map[string]bool{}
	}
	m[sim][port] = true
}

func indexByName(sims []*Simulator) map[string]*Simulator {
	m := make(map[string]*Simulator, len(sims))
	for _, sim := range sims {
		m[sim.Name] = sim
	}
	return m
}

// flattenNode recursively compiles node into the atomic-level simulator
// vector and routing table, returning the out/in port maps an ancestor
// coupled model needs to resolve its own InputConn/OutputConn connections.
// existing reuses Simulator instances across a reflatten by atomic ID.
func flattenNode(
	node ModelNode,
	parent *CoupledModel,
	existing map[uuid.UUID]*Simulator,
	sims *[]*Simulator,
	routing map[routeKey][]routeDest,
	nodesByName map[string]ModelNode,
) (outPorts, inPorts map[string][]atomicEndpoint, err error) {
	switch n := node.(type) {
	case *AtomicModel:
		nodesByName[n.Name] = n

		sim, ok := existing[n.ID]
		if !ok {
			dyn, ferr := n.Factory(n.Bindings)
			if ferr != nil {
				return nil, nil, &GraphError{Simulator: n.Name, Message: "factory: " + ferr.Error()}
			}
			sim = newSimulator(n, dyn)
		}
		*sims = append(*sims, sim)

		outPorts = make(map[string][]atomicEndpoint, len(n.OutPorts))
		for _, p := range n.OutPorts {
			outPorts[p] = []atomicEndpoint{{sim: sim, port: p}}
		}
		inPorts = make(map[string][]atomicEndpoint, len(n.InPorts))
		for _, p := range n.InPorts {
			inPorts[p] = []atomicEndpoint{{sim: sim, port: p}}
		}
		return outPorts, inPorts, nil

	case *CoupledModel:
		nodesByName[n.Name] = n

		childOut := make(map[string]map[string][]atomicEndpoint, len(n.Children))
		childIn := make(map[string]map[string][]atomicEndpoint, len(n.Children))
		for _, child := range n.Children {
			o, i, cerr := flattenNode(child, n, existing, sims, routing, nodesByName)
			if cerr != nil {
				return nil, nil, cerr
			}
			childOut[child.modelName()] = o
			childIn[child.modelName()] = i
		}

		outPorts = map[string][]atomicEndpoint{}
		inPorts = map[string][]atomicEndpoint{}
		for _, conn := range n.Conns {
			switch {
			case conn.From.Node != "" && conn.To.Node != "":
				for _, src := range childOut[conn.From.Node][conn.From.Port] {
					key := routeKey{sim: src.sim, port: src.port}
					routing[key] = append(routing[key], toRouteDests(childIn[conn.To.Node][conn.To.Port])...)
				}
			case conn.From.Node == "" && conn.To.Node != "":
				inPorts[conn.From.Port] = append(inPorts[conn.From.Port], childIn[conn.To.Node][conn.To.Port]...)
			case conn.From.Node != "" && conn.To.Node == "":
				outPorts[conn.To.Port] = append(outPorts[conn.To.Port], childOut[conn.From.Node][conn.From.Port]...)
			default:
				// self.in -> self.out passthrough.
				outPorts[conn.To.Port] = append(outPorts[conn.To.Port], inPorts[conn.From.Port]...)
			}
		}
		return outPorts, inPorts, nil

	default:
		return nil, nil, &GraphError{Message: "unknown model node type"}
	}
}

func toRouteDests(endpoints []atomicEndpoint) []routeDest {
	out := make([]routeDest, len(endpoints))
	for i, e := range endpoints {
		out[i] = routeDest{sim: e.sim, port: e.port}
	}
	return out
}
