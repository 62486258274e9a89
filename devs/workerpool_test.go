package devs

import (
	"context"
	"sort"
	"sync"
	"testing"
)

func TestWorkerPool_SerialFallbackVisitsEveryElement(t *testing.T) {
	pool := NewWorkerPool(0, 4)
	sims := make([]*Simulator, 10)
	for i := range sims {
		sims[i] = newTestSimulator(string(rune('a' + i)))
	}

	var mu sync.Mutex
	var seen []string
	err := pool.ForEach(context.Background(), sims, func(sim *Simulator) error {
		mu.Lock()
		seen = append(seen, sim.Name)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(seen) != len(sims) {
		t.Fatalf("visited %d simulators, want %d", len(seen), len(sims))
	}
	for i, sim := range sims {
		if seen[i] != sim.Name {
			t.Fatalf("serial fallback must preserve input order: seen[%d] = %s, want %s", i, seen[i], sim.Name)
		}
	}
}

func TestWorkerPool_ParallelVisitsEveryElementExactlyOnce(t *testing.T) {
	pool := NewWorkerPool(4, 2)
	sims := make([]*Simulator, 37)
	for i := range sims {
		sims[i] = newTestSimulator(string(rune('a' + i%26)))
	}

	var mu sync.Mutex
	counts := map[*Simulator]int{}
	err := pool.ForEach(context.Background(), sims, func(sim *Simulator) error {
		mu.Lock()
		counts[sim]++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(counts) != len(sims) {
		t.Fatalf("visited %d distinct simulators, want %d", len(counts), len(sims))
	}
	for sim, n := range counts {
		if n != 1 {
			t.Errorf("simulator %s visited %d times, want exactly 1", sim.Name, n)
		}
	}
}

func TestWorkerPool_FirstErrorIsReturned(t *testing.T) {
	pool := NewWorkerPool(4, 2)
	sims := make([]*Simulator, 20)
	for i := range sims {
		sims[i] = newTestSimulator(string(rune('a' + i)))
	}
	sims[10] = newTestSimulator("boom")

	sentinel := &ModellingError{Simulator: "boom", Message: "deliberate failure"}
	err := pool.ForEach(context.Background(), sims, func(sim *Simulator) error {
		if sim.Name == "boom" {
			return sentinel
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestPartition_CoversAllElements(t *testing.T) {
	sims := make([]*Simulator, 10)
	names := make([]string, 10)
	for i := range sims {
		sims[i] = newTestSimulator(string(rune('a' + i)))
		names[i] = sims[i].Name
	}

	blocks := partition(sims, 3)
	var flat []string
	for _, b := range blocks {
		for _, s := range b {
			flat = append(flat, s.Name)
		}
	}
	sort.Strings(names)
	sortedFlat := append([]string{}, flat...)
	sort.Strings(sortedFlat)
	if len(flat) != len(sims) {
		t.Fatalf("partition dropped elements: got %d, want %d", len(flat), len(sims))
	}
	for i := range names {
		if names[i] != sortedFlat[i] {
			t.Fatalf("partition changed the element set")
		}
	}
}
