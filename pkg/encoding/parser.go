package encoding

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gilchrisn/temporal-sir-compare/pkg/temporal"
)

// Adjacency is one entry of a node's event block
type Adjacency struct {
	Neighbor int     `json:"neighbor"`
	Times    []int64 `json:"times"`
}

// EventDrivenNetwork is the decoded per-node form of a network.
type EventDrivenNetwork struct {
	NumNodes int           `json:"num_nodes"`
	MaxTime  int64         `json:"max_time"`
	Blocks   [][]Adjacency `json:"blocks"` // blocks[i] = adjacency entries of node i, in file order
}

// Degree returns the number of adjacency entries of node i.
func (n *EventDrivenNetwork) Degree(i int) int {
	return len(n.Blocks[i])
}

// ContactCounts returns the number of contacts per undirected edge as seen
// from the lower-indexed endpoint.
func (n *EventDrivenNetwork) ContactCounts() map[[2]int]int {
	counts := make(map[[2]int]int)
	for u, block := range n.Blocks {
		for _, a := range block {
			if u < a.Neighbor {
				counts[[2]int{u, a.Neighbor}] = len(a.Times)
			}
		}
	}
	return counts
}

// Verify checks the cross-node invariants of the encoding: both endpoints
// of an edge list identical times, and every block follows the edge order
// (descending last contact time, then ascending contact count).
func (n *EventDrivenNetwork) Verify() error {
	type key [2]int // (node, neighbor)
	entries := make(map[key][]int64)
	latest := int64(-1)

	for u, block := range n.Blocks {
		for k, a := range block {
			if a.Neighbor == u {
				return fmt.Errorf("node %d lists itself as neighbor", u)
			}
			last := a.Times[len(a.Times)-1]
			latest = max(latest, last)

			if k > 0 {
				prev := block[k-1]
				prevLast := prev.Times[len(prev.Times)-1]
				if prevLast < last || (prevLast == last && len(prev.Times) > len(a.Times)) {
					return fmt.Errorf("node %d: entry %d (neighbor %d) out of order", u, k, a.Neighbor)
				}
			}

			e := key{u, a.Neighbor}
			if _, dup := entries[e]; dup {
				return fmt.Errorf("node %d lists neighbor %d more than once", u, a.Neighbor)
			}
			entries[e] = a.Times
		}
	}

	// every entry needs exactly one mirror entry with the same times
	for e, times := range entries {
		other, ok := entries[key{e[1], e[0]}]
		if !ok {
			return fmt.Errorf("edge (%d, %d) listed by only one endpoint", min(e[0], e[1]), max(e[0], e[1]))
		}
		if !equalTimes(times, other) {
			return fmt.Errorf("edge (%d, %d): endpoints disagree on contact times", min(e[0], e[1]), max(e[0], e[1]))
		}
	}
	if latest != n.MaxTime {
		return fmt.Errorf("header max time %d, latest contact %d", n.MaxTime, latest)
	}

	return nil
}

func equalTimes(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lineReader yields whitespace-separated fields line by line
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{scanner: scanner}
}

// ints reads the next line and parses exactly n integers from it.
func (lr *lineReader) ints(n int) ([]int64, error) {
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read failed after line %d: %w", lr.line, err)
		}
		return nil, fmt.Errorf("line %d: %w", lr.line+1, io.ErrUnexpectedEOF)
	}
	lr.line++

	fields := strings.Fields(lr.scanner.Text())
	if len(fields) != n {
		return nil, fmt.Errorf("line %d: expected %d fields, got %d", lr.line, n, len(fields))
	}

	values := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %q", lr.line, f)
		}
		values[i] = v
	}
	return values, nil
}

// end fails if anything but blank lines remains.
func (lr *lineReader) end() error {
	for lr.scanner.Scan() {
		lr.line++
		if strings.TrimSpace(lr.scanner.Text()) != "" {
			return fmt.Errorf("line %d: unexpected trailing data", lr.line)
		}
	}
	return lr.scanner.Err()
}

// ParseStraightforward decodes the chronological contact stream format.
func ParseStraightforward(r io.Reader) (*temporal.Network, error) {
	lr := newLineReader(r)

	header, err := lr.ints(3)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	numNodes, numContacts, maxTime := int(header[0]), int(header[1]), header[2]
	if numNodes <= 0 || numContacts < 0 {
		return nil, fmt.Errorf("invalid header: %d nodes, %d contacts", numNodes, numContacts)
	}

	net := temporal.NewNetwork(numNodes)
	for i := 0; i < numContacts; i++ {
		c, err := lr.ints(3)
		if err != nil {
			return nil, err
		}
		if err := net.AddContact(int(c[0]), int(c[1]), c[2]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lr.line, err)
		}
	}
	if err := lr.end(); err != nil {
		return nil, err
	}

	last, err := net.MaxTime()
	if err != nil {
		return nil, err
	}
	if last != maxTime {
		return nil, fmt.Errorf("header max time %d, last contact %d", maxTime, last)
	}

	return net, nil
}

// ParseEventDriven decodes the per-node event block format and verifies it.
func ParseEventDriven(r io.Reader) (*EventDrivenNetwork, error) {
	lr := newLineReader(r)

	header, err := lr.ints(2)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	net := &EventDrivenNetwork{NumNodes: int(header[0]), MaxTime: header[1]}
	if net.NumNodes <= 0 {
		return nil, fmt.Errorf("invalid header: %d nodes", net.NumNodes)
	}
	net.Blocks = make([][]Adjacency, net.NumNodes)

	for u := 0; u < net.NumNodes; u++ {
		deg, err := lr.ints(1)
		if err != nil {
			return nil, fmt.Errorf("node %d degree: %w", u, err)
		}
		if deg[0] < 0 || deg[0] >= int64(net.NumNodes) {
			return nil, fmt.Errorf("line %d: node %d has invalid degree %d", lr.line, u, deg[0])
		}

		block := make([]Adjacency, 0, deg[0])
		for k := int64(0); k < deg[0]; k++ {
			entry, err := lr.ints(2)
			if err != nil {
				return nil, fmt.Errorf("node %d entry %d: %w", u, k, err)
			}
			neighbor, count := int(entry[0]), entry[1]
			if neighbor < 0 || neighbor >= net.NumNodes {
				return nil, fmt.Errorf("line %d: neighbor %d out of range", lr.line, neighbor)
			}
			if count <= 0 {
				return nil, fmt.Errorf("line %d: edge (%d, %d) has no contacts", lr.line, u, neighbor)
			}

			times := make([]int64, 0, min(count, 1024))
			for j := int64(0); j < count; j++ {
				t, err := lr.ints(1)
				if err != nil {
					return nil, fmt.Errorf("node %d entry %d time %d: %w", u, k, j, err)
				}
				if t[0] < 0 || t[0] > net.MaxTime {
					return nil, fmt.Errorf("line %d: time %d outside [0, %d]", lr.line, t[0], net.MaxTime)
				}
				if j > 0 && times[j-1] > t[0] {
					return nil, fmt.Errorf("line %d: contact times not ascending", lr.line)
				}
				times = append(times, t[0])
			}
			block = append(block, Adjacency{Neighbor: neighbor, Times: times})
		}
		net.Blocks[u] = block
	}
	if err := lr.end(); err != nil {
		return nil, err
	}

	if err := net.Verify(); err != nil {
		return nil, err
	}

	return net, nil
}

// Summary describes a parsed network encoding
type Summary struct {
	Format   Format `json:"format"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Contacts int    `json:"contacts"`
	MaxTime  int64  `json:"max_time"`
}

// Check parses an encoding of the given format and summarizes it.
func Check(format Format, r io.Reader) (*Summary, error) {
	switch format {
	case Straightforward:
		net, err := ParseStraightforward(r)
		if err != nil {
			return nil, err
		}
		maxTime, _ := net.MaxTime()
		return &Summary{
			Format:   format,
			Nodes:    net.NumNodes,
			Edges:    len(net.EdgeTimelines()),
			Contacts: len(net.Contacts),
			MaxTime:  maxTime,
		}, nil

	case EventDriven:
		net, err := ParseEventDriven(r)
		if err != nil {
			return nil, err
		}
		summary := &Summary{Format: format, Nodes: net.NumNodes, MaxTime: net.MaxTime}
		for _, count := range net.ContactCounts() {
			summary.Edges++
			summary.Contacts += count
		}
		return summary, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, format)
}
