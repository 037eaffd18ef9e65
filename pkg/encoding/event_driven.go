package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/gilchrisn/temporal-sir-compare/pkg/temporal"
)

// OrderEdges sorts edge timelines into the order the event-driven engine
// expects: most recent last contact first, then fewer contacts first.
// Remaining ties keep their incoming order.
func OrderEdges(timelines []temporal.EdgeTimeline) {
	sort.SliceStable(timelines, func(i, j int) bool {
		li, lj := timelines[i].Last(), timelines[j].Last()
		if li != lj {
			return li > lj
		}
		return len(timelines[i].Times) < len(timelines[j].Times)
	})
}

// EncodeEventDriven returns the per-node event blocks of net.
func EncodeEventDriven(net *temporal.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteEventDriven(&buf, net); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteEventDriven writes "nodes max_time", then for every node in index
// order its degree line followed by one entry per incident edge:
// "neighbor count" and count ascending contact times.
func WriteEventDriven(w io.Writer, net *temporal.Network) error {
	maxTime, err := net.MaxTime()
	if err != nil {
		return fmt.Errorf("event-driven encoding: %w", err)
	}

	timelines := net.EdgeTimelines()
	OrderEdges(timelines)

	blocks := make([]bytes.Buffer, net.NumNodes)
	degree := make([]int, net.NumNodes)

	for _, e := range timelines {
		if e.U < 0 || e.V >= net.NumNodes {
			return fmt.Errorf("edge (%d, %d) outside %d nodes", e.U, e.V, net.NumNodes)
		}
		appendEntry(&blocks[e.U], e.V, e.Times)
		degree[e.U]++
		appendEntry(&blocks[e.V], e.U, e.Times)
		degree[e.V]++
	}

	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%d %d\n", net.NumNodes, maxTime); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < net.NumNodes; i++ {
		if _, err := fmt.Fprintf(bw, "%d\n", degree[i]); err != nil {
			return fmt.Errorf("failed to write degree of node %d: %w", i, err)
		}
		if _, err := blocks[i].WriteTo(bw); err != nil {
			return fmt.Errorf("failed to write block of node %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func appendEntry(block *bytes.Buffer, neighbor int, times []int64) {
	fmt.Fprintf(block, "%d %d\n", neighbor, len(times))
	for _, t := range times {
		fmt.Fprintf(block, "%d\n", t)
	}
}
