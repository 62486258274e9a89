package devs

import (
	"testing"

	"github.com/dshills/pdevs/devs/view"
)

func newStubAtomic(name string, in, out []string) *AtomicModel {
	return NewAtomic(name, func(map[string]Value) (Dynamics, error) {
		return stubDynamics{}, nil
	}, in, out)
}

func newLoadedCoordinator(t *testing.T, top *CoupledModel, specs []ViewSpec) *Coordinator {
	t.Helper()
	c := NewCoordinator(nil, nil, nil)
	if err := c.Load(top, specs); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Init(0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

func TestApplyMutation_RemoveAtomicDropsSimulatorAndDetachesViews(t *testing.T) {
	g := newStubAtomic("G", nil, []string{"out"})
	c := newStubAtomic("C", []string{"in"}, nil)
	g.WithView(ViewAttachment{ViewName: "v", Port: "out"})

	top := NewCoupled("top", nil, nil)
	if err := top.AddChild(g); err != nil {
		t.Fatalf("AddChild(G): %v", err)
	}
	if err := top.AddChild(c); err != nil {
		t.Fatalf("AddChild(C): %v", err)
	}
	if err := top.Connect(Endpoint{Node: "G", Port: "out"}, Endpoint{Node: "C", Port: "in"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sink := view.NewMemSink()
	coord := newLoadedCoordinator(t, top, []ViewSpec{{Name: "v", Kind: EventView, Sink: sink}})

	if err := coord.applyMutation(GraphMutation{Kind: RemoveAtomic, Parent: "top", ChildName: "G"}); err != nil {
		t.Fatalf("applyMutation(RemoveAtomic): %v", err)
	}

	if _, ok := coord.byName["G"]; ok {
		t.Error("G still present in byName after RemoveAtomic")
	}
	if len(coord.sims) != 1 || coord.sims[0].Name != "C" {
		t.Errorf("sims after removal = %v, want just [C]", coord.sims)
	}
	lv := coord.views["v"]
	if len(lv.attachments) != 0 {
		t.Errorf("view %q still has %d attachments after its only source was removed, want 0", "v", len(lv.attachments))
	}
	for key := range coord.routing {
		if key.sim.Name == "G" {
			t.Errorf("routing table still references removed simulator G")
		}
	}
}

func TestApplyMutation_RemoveConnectionStopsRouting(t *testing.T) {
	g := newStubAtomic("G", nil, []string{"out"})
	c := newStubAtomic("C", []string{"in"}, nil)

	top := NewCoupled("top", nil, nil)
	_ = top.AddChild(g)
	_ = top.AddChild(c)
	conn := Connection{From: Endpoint{Node: "G", Port: "out"}, To: Endpoint{Node: "C", Port: "in"}}
	if err := top.Connect(conn.From, conn.To); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	coord := newLoadedCoordinator(t, top, nil)
	if len(coord.routing) != 1 {
		t.Fatalf("routing before removal has %d entries, want 1", len(coord.routing))
	}

	if err := coord.applyMutation(GraphMutation{Kind: RemoveConnection, Parent: "top", Conn: conn}); err != nil {
		t.Fatalf("applyMutation(RemoveConnection): %v", err)
	}
	if len(coord.routing) != 0 {
		t.Errorf("routing after removal has %d entries, want 0", len(coord.routing))
	}
	// Both simulators must still exist; only the wiring between them is gone.
	if len(coord.sims) != 2 {
		t.Errorf("sims after RemoveConnection = %d, want 2 (no atomics removed)", len(coord.sims))
	}
}

func TestApplyMutation_AddCoupledChildInitialisesOnlyTheNewAtomics(t *testing.T) {
	top := NewCoupled("top", nil, nil)
	coord := newLoadedCoordinator(t, top, nil)

	inner := NewCoupled("inner", nil, nil)
	a := newStubAtomic("A", nil, []string{"out"})
	b := newStubAtomic("B", []string{"in"}, nil)
	_ = inner.AddChild(a)
	_ = inner.AddChild(b)
	_ = inner.Connect(Endpoint{Node: "A", Port: "out"}, Endpoint{Node: "B", Port: "in"})

	if err := coord.applyMutation(GraphMutation{Kind: AddCoupledChild, Parent: "top", Model: inner}); err != nil {
		t.Fatalf("applyMutation(AddCoupledChild): %v", err)
	}

	if len(coord.sims) != 2 {
		t.Fatalf("sims after AddCoupledChild = %d, want 2", len(coord.sims))
	}
	if coord.byName["A"] == nil || coord.byName["B"] == nil {
		t.Fatal("expected both A and B to be reachable by name after the nested coupled model was added")
	}
	if len(coord.routing) != 1 {
		t.Errorf("routing after AddCoupledChild has %d entries, want 1 (A->B)", len(coord.routing))
	}
}

func TestApplyMutation_UnknownParentErrors(t *testing.T) {
	top := NewCoupled("top", nil, nil)
	coord := newLoadedCoordinator(t, top, nil)

	err := coord.applyMutation(GraphMutation{Kind: AddAtomic, Parent: "nope", Model: newStubAtomic("X", nil, []string{"out"})})
	if err == nil {
		t.Fatal("expected an error for an unknown mutation parent")
	}
}

func TestApplyMutation_ParentNotCoupledErrors(t *testing.T) {
	g := newStubAtomic("G", nil, []string{"out"})
	top := NewCoupled("top", nil, nil)
	_ = top.AddChild(g)
	coord := newLoadedCoordinator(t, top, nil)

	err := coord.applyMutation(GraphMutation{Kind: AddAtomic, Parent: "G", Model: newStubAtomic("X", nil, []string{"out"})})
	if err == nil {
		t.Fatal("expected an error: G is an atomic model, not a coupled model, and cannot take children")
	}
}
