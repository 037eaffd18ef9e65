package temporal

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestGenerateScaleInvariant(t *testing.T) {
	params := GeneratorParams{Nodes: 60, MeanDegree: 3, Horizon: 5}

	for seed := uint64(1); seed <= 20; seed++ {
		net, err := Generate(params, rand.NewPCG(seed, 7))
		if err != nil {
			t.Fatalf("seed %d: Generate failed: %v", seed, err)
		}

		maxTime, err := net.MaxTime()
		if err != nil {
			t.Fatalf("seed %d: MaxTime failed: %v", seed, err)
		}
		if maxTime != MaxTimestamp {
			t.Errorf("seed %d: max time = %d, want %d", seed, maxTime, MaxTimestamp)
		}

		if err := net.Validate(); err != nil {
			t.Errorf("seed %d: generated network invalid: %v", seed, err)
		}
	}
}

func TestGenerateContactsLieOnStaticEdges(t *testing.T) {
	net, err := Generate(GeneratorParams{Nodes: 100, MeanDegree: 4, Horizon: 3}, rand.NewPCG(42, 42))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	edges := make(map[[2]int]bool, len(net.Edges))
	for i, e := range net.Edges {
		if e[0] >= e[1] {
			t.Fatalf("edge %d not normalized: %v", i, e)
		}
		if i > 0 {
			prev := net.Edges[i-1]
			if prev[0] > e[0] || (prev[0] == e[0] && prev[1] >= e[1]) {
				t.Fatalf("edges not sorted at %d: %v then %v", i, prev, e)
			}
		}
		edges[e] = true
	}

	for i, c := range net.Contacts {
		if !edges[[2]int{c.U, c.V}] {
			t.Errorf("contact %d on (%d, %d) is not a static edge", i, c.U, c.V)
		}
	}

	// Every timeline must belong to a distinct static edge
	if got := len(net.EdgeTimelines()); got > len(net.Edges) {
		t.Errorf("%d timelines for %d static edges", got, len(net.Edges))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	params := GeneratorParams{Nodes: 40, MeanDegree: 2.5, Horizon: 4}

	a, err := Generate(params, rand.NewPCG(9, 9))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(params, rand.NewPCG(9, 9))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different networks")
	}
}

func TestGenerateNoContacts(t *testing.T) {
	// A single node has no possible edge
	_, err := Generate(GeneratorParams{Nodes: 1, MeanDegree: 1, Horizon: 10}, rand.NewPCG(1, 1))
	if !errors.Is(err, ErrNoContacts) {
		t.Fatalf("expected ErrNoContacts, got %v", err)
	}
}

func TestGeneratorParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  GeneratorParams
		wantErr bool
	}{
		{"Valid", GeneratorParams{Nodes: 10, MeanDegree: 2, Horizon: 1}, false},
		{"CompleteGraph", GeneratorParams{Nodes: 10, MeanDegree: 10, Horizon: 1}, false},
		{"ZeroNodes", GeneratorParams{Nodes: 0, MeanDegree: 2, Horizon: 1}, true},
		{"ZeroDegree", GeneratorParams{Nodes: 10, MeanDegree: 0, Horizon: 1}, true},
		{"NegativeHorizon", GeneratorParams{Nodes: 10, MeanDegree: 2, Horizon: -1}, true},
		{"DegreeAboveNodes", GeneratorParams{Nodes: 10, MeanDegree: 11, Horizon: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuantizePreservesOrder(t *testing.T) {
	raw := []rawContact{
		{t: 0.001, u: 0, v: 1},
		{t: 0.5, u: 1, v: 2},
		{t: 0.5, u: 0, v: 2},
		{t: 1.7, u: 0, v: 1},
		{t: 1.7, u: 1, v: 2},
	}

	got := quantize(raw)

	for i := 1; i < len(got); i++ {
		if got[i].T < got[i-1].T {
			t.Errorf("order broken at %d: %d < %d", i, got[i].T, got[i-1].T)
		}
	}
	if got[1].T != got[2].T {
		t.Errorf("tied real times quantized differently: %d vs %d", got[1].T, got[2].T)
	}
	if got[3].T != MaxTimestamp || got[4].T != MaxTimestamp {
		t.Errorf("latest contacts = %d, %d, want %d", got[3].T, got[4].T, MaxTimestamp)
	}
	if got[0].U != 0 || got[0].V != 1 {
		t.Errorf("endpoints changed: %+v", got[0])
	}
}

func TestEdgeTimelines(t *testing.T) {
	net := NewNetwork(3)
	for _, c := range []Contact{{1, 0, 5}, {1, 2, 6}, {0, 1, 9}, {1, 2, 9}} {
		if err := net.AddContact(c.U, c.V, c.T); err != nil {
			t.Fatalf("AddContact failed: %v", err)
		}
	}

	got := net.EdgeTimelines()
	want := []EdgeTimeline{
		{U: 0, V: 1, Times: []int64{5, 9}},
		{U: 1, V: 2, Times: []int64{6, 9}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EdgeTimelines() = %+v, want %+v", got, want)
	}
}

func TestAddContactRejectsInvalid(t *testing.T) {
	net := NewNetwork(2)
	if err := net.AddContact(0, 1, 10); err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	tests := []struct {
		name string
		u, v int
		t    int64
	}{
		{"OutOfRange", 0, 2, 11},
		{"SelfContact", 1, 1, 11},
		{"BackInTime", 0, 1, 9},
		{"TooLate", 0, 1, MaxTimestamp + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := net.AddContact(tt.u, tt.v, tt.t); err == nil {
				t.Error("expected error")
			}
		})
	}
}
