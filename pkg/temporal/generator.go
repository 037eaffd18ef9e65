package temporal

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat/distuv"
)

// GeneratorParams describes a random temporal network.
type GeneratorParams struct {
	Nodes      int     `json:"n"` // number of nodes
	MeanDegree float64 `json:"z"` // expected degree of the static graph
	Horizon    float64 `json:"c"` // observation window [0, c) in units of the mean inter-contact time
}

// EdgeProbability returns the G(n,p) edge probability z/n.
func (p GeneratorParams) EdgeProbability() float64 {
	return p.MeanDegree / float64(p.Nodes)
}

// Validate checks generator parameters
func (p GeneratorParams) Validate() error {
	if p.Nodes <= 0 {
		return fmt.Errorf("node count must be positive: %d", p.Nodes)
	}
	if !(p.MeanDegree > 0) || math.IsInf(p.MeanDegree, 0) {
		return fmt.Errorf("mean degree must be positive and finite: %v", p.MeanDegree)
	}
	if !(p.Horizon > 0) || math.IsInf(p.Horizon, 0) {
		return fmt.Errorf("horizon must be positive and finite: %v", p.Horizon)
	}
	if p.EdgeProbability() > 1 {
		return fmt.Errorf("mean degree %v exceeds node count %d", p.MeanDegree, p.Nodes)
	}
	return nil
}

type rawContact struct {
	t    float64
	u, v int
}

// Generate draws one temporal network: a G(n, z/n) static graph and, on
// every edge, a unit-rate Poisson process of contacts truncated to [0, c).
// Contact times are rescaled so the latest contact lands on MaxTimestamp.
func Generate(params GeneratorParams, src rand.Source) (*Network, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator parameters: %w", err)
	}

	edges, err := staticGraph(params, src)
	if err != nil {
		return nil, err
	}

	gap := distuv.Exponential{Rate: 1, Src: src}
	contacts := make([]rawContact, 0)

	for _, e := range edges {
		for t := gap.Rand(); t < params.Horizon; t += gap.Rand() {
			contacts = append(contacts, rawContact{t: t, u: e[0], v: e[1]})
		}
	}

	if len(contacts) == 0 {
		return nil, fmt.Errorf("n=%d z=%v c=%v: %d edges produced no contact: %w",
			params.Nodes, params.MeanDegree, params.Horizon, len(edges), ErrNoContacts)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].t < contacts[j].t
	})

	net := NewNetwork(params.Nodes)
	net.Edges = edges
	net.Contacts = quantize(contacts)

	return net, nil
}

// staticGraph returns the edges of a G(n,p) graph as sorted (u < v) pairs.
func staticGraph(params GeneratorParams, src rand.Source) ([][2]int, error) {
	g := simple.NewUndirectedGraph()
	if err := gen.Gnp(g, params.Nodes, params.EdgeProbability(), src); err != nil {
		return nil, fmt.Errorf("static graph generation failed: %w", err)
	}

	// Map gonum node IDs onto dense indices in ID order
	ids := make([]int64, 0, params.Nodes)
	nodes := g.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	dense := make(map[int64]int, len(ids))
	for i, id := range ids {
		dense[id] = i
	}

	edges := make([][2]int, 0)
	it := g.Edges()
	for it.Next() {
		e := it.Edge()
		u, v := dense[e.From().ID()], dense[e.To().ID()]
		if u > v {
			u, v = v, u
		}
		edges = append(edges, [2]int{u, v})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})

	return edges, nil
}

// quantize maps sorted real contact times onto [0, MaxTimestamp].
func quantize(contacts []rawContact) []Contact {
	maxTime := contacts[len(contacts)-1].t
	scale := float64(MaxTimestamp) / maxTime

	out := make([]Contact, len(contacts))
	for i, c := range contacts {
		t := MaxTimestamp
		if c.t < maxTime {
			t = min(int64(math.Floor(c.t*scale)), MaxTimestamp)
		}
		out[i] = Contact{U: c.u, V: c.v, T: t}
	}
	return out
}
