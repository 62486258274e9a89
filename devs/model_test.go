package devs

import "testing"

func TestCoupledModel_RemoveChildStripsConnections(t *testing.T) {
	top := NewCoupled("top", nil, nil)
	g := NewAtomic("G", nil, nil, []string{"out"})
	c := NewAtomic("C", nil, []string{"in"}, nil)
	if err := top.AddChild(g); err != nil {
		t.Fatalf("AddChild(G): %v", err)
	}
	if err := top.AddChild(c); err != nil {
		t.Fatalf("AddChild(C): %v", err)
	}
	if err := top.Connect(Endpoint{Node: "G", Port: "out"}, Endpoint{Node: "C", Port: "in"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	removed, err := top.RemoveChild("G")
	if err != nil {
		t.Fatalf("RemoveChild: %v", err)
	}
	if removed.modelName() != "G" {
		t.Errorf("RemoveChild returned %q, want %q", removed.modelName(), "G")
	}
	if len(top.Children) != 1 {
		t.Fatalf("top has %d children after removal, want 1", len(top.Children))
	}
	if len(top.Conns) != 0 {
		t.Errorf("top has %d connections after removing G, want 0 (the G->C connection must be stripped)", len(top.Conns))
	}
}

func TestCoupledModel_RemoveChildUnknownNameErrors(t *testing.T) {
	top := NewCoupled("top", nil, nil)
	if _, err := top.RemoveChild("nope"); err == nil {
		t.Fatal("expected an error removing an unknown child")
	}
}

func TestCoupledModel_RemoveConnection(t *testing.T) {
	top := NewCoupled("top", nil, nil)
	g := NewAtomic("G", nil, nil, []string{"out"})
	c := NewAtomic("C", nil, []string{"in"}, nil)
	_ = top.AddChild(g)
	_ = top.AddChild(c)
	conn := Connection{From: Endpoint{Node: "G", Port: "out"}, To: Endpoint{Node: "C", Port: "in"}}
	if err := top.Connect(conn.From, conn.To); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := top.RemoveConnection(conn); err != nil {
		t.Fatalf("RemoveConnection: %v", err)
	}
	if len(top.Conns) != 0 {
		t.Errorf("top has %d connections after removal, want 0", len(top.Conns))
	}

	if err := top.RemoveConnection(conn); err == nil {
		t.Error("expected an error removing an already-removed connection")
	}
}

func TestCollectAtomics(t *testing.T) {
	inner := NewCoupled("inner", nil, nil)
	a := NewAtomic("A", nil, nil, []string{"out"})
	b := NewAtomic("B", nil, []string{"in"}, nil)
	_ = inner.AddChild(a)
	_ = inner.AddChild(b)

	top := NewCoupled("top", nil, nil)
	c := NewAtomic("C", nil, nil, []string{"out"})
	_ = top.AddChild(inner)
	_ = top.AddChild(c)

	atomics := CollectAtomics(top)
	if len(atomics) != 3 {
		t.Fatalf("CollectAtomics returned %d models, want 3", len(atomics))
	}
	names := map[string]bool{}
	for _, am := range atomics {
		names[am.Name] = true
	}
	for _, want := range []string{"A", "B", "C"} {
		if !names[want] {
			t.Errorf("CollectAtomics missing %q", want)
		}
	}

	if got := CollectAtomics(a); len(got) != 1 || got[0] != a {
		t.Errorf("CollectAtomics on a leaf atomic should return just that atomic")
	}
}
