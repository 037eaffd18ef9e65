package temporal

import (
	"errors"
	"fmt"
)

// MaxTimestamp is the largest quantized contact time (2^31 - 1).
const MaxTimestamp int64 = 1<<31 - 1

// ErrNoContacts is returned when a network has no contact inside the observation horizon.
var ErrNoContacts = errors.New("temporal: network has no contacts")

// Contact is an undirected edge (U, V) becoming active at time T. U < V always.
type Contact struct {
	U int   `json:"u"`
	V int   `json:"v"`
	T int64 `json:"t"`
}

// EdgeTimeline holds the ascending contact times of one undirected edge
type EdgeTimeline struct {
	U     int     `json:"u"`
	V     int     `json:"v"`
	Times []int64 `json:"times"`
}

// Last returns the time of the most recent contact on the edge.
func (e EdgeTimeline) Last() int64 {
	return e.Times[len(e.Times)-1]
}

// Network is a temporal contact network on NumNodes dense node indices.
type Network struct {
	NumNodes int       `json:"num_nodes"`
	Edges    [][2]int  `json:"edges"`    // static topology, u < v, sorted
	Contacts []Contact `json:"contacts"` // chronological contact list
}

// NewNetwork creates an empty network with n nodes
func NewNetwork(numNodes int) *Network {
	return &Network{
		NumNodes: numNodes,
		Edges:    make([][2]int, 0),
		Contacts: make([]Contact, 0),
	}
}

// AddContact appends a contact, normalizing the endpoint order.
// Contacts must be added in chronological order.
func (n *Network) AddContact(u, v int, t int64) error {
	if u < 0 || u >= n.NumNodes || v < 0 || v >= n.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, n.NumNodes)
	}
	if u == v {
		return fmt.Errorf("self-contact on node %d", u)
	}
	if t < 0 || t > MaxTimestamp {
		return fmt.Errorf("contact time %d outside [0, %d]", t, MaxTimestamp)
	}
	if k := len(n.Contacts); k > 0 && n.Contacts[k-1].T > t {
		return fmt.Errorf("contact time %d precedes previous contact at %d", t, n.Contacts[k-1].T)
	}
	if u > v {
		u, v = v, u
	}
	n.Contacts = append(n.Contacts, Contact{U: u, V: v, T: t})
	return nil
}

// MaxTime returns the time of the last contact.
func (n *Network) MaxTime() (int64, error) {
	if len(n.Contacts) == 0 {
		return 0, ErrNoContacts
	}
	return n.Contacts[len(n.Contacts)-1].T, nil
}

// EdgeTimelines partitions the contact list by undirected edge.
// Timelines are returned in order of each edge's first contact and
// keep contact times in chronological order.
func (n *Network) EdgeTimelines() []EdgeTimeline {
	index := make(map[[2]int]int)
	timelines := make([]EdgeTimeline, 0)

	for _, c := range n.Contacts {
		key := [2]int{c.U, c.V}
		i, ok := index[key]
		if !ok {
			i = len(timelines)
			index[key] = i
			timelines = append(timelines, EdgeTimeline{U: c.U, V: c.V})
		}
		timelines[i].Times = append(timelines[i].Times, c.T)
	}

	return timelines
}

// Validate checks network consistency
func (n *Network) Validate() error {
	if n.NumNodes <= 0 {
		return fmt.Errorf("network must have positive number of nodes")
	}
	if len(n.Contacts) == 0 {
		return ErrNoContacts
	}

	for i, c := range n.Contacts {
		if c.U < 0 || c.V >= n.NumNodes || c.U >= c.V {
			return fmt.Errorf("invalid contact %d: (%d, %d)", i, c.U, c.V)
		}
		if c.T < 0 || c.T > MaxTimestamp {
			return fmt.Errorf("contact %d time %d out of range", i, c.T)
		}
		if i > 0 && n.Contacts[i-1].T > c.T {
			return fmt.Errorf("contacts not in chronological order at index %d", i)
		}
	}

	return nil
}
