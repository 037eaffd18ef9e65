// Package encoding serializes temporal networks into the two text formats
// read by the SIR engines, and parses them back for verification.
package encoding

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gilchrisn/temporal-sir-compare/pkg/temporal"
)

// ErrFormat is returned for an unknown format name
var ErrFormat = errors.New("encoding: unknown format")

// Format names a network wire format
type Format string

const (
	Straightforward Format = "straightforward"
	EventDriven     Format = "event-driven"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Straightforward, EventDriven:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w %q (want %q or %q)", ErrFormat, s, Straightforward, EventDriven)
}

// Encode serializes net in the given format.
func Encode(format Format, net *temporal.Network) ([]byte, error) {
	switch format {
	case Straightforward:
		return EncodeStraightforward(net)
	case EventDriven:
		return EncodeEventDriven(net)
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, format)
}

// EncodeStraightforward returns the chronological contact stream of net.
func EncodeStraightforward(net *temporal.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteStraightforward(&buf, net); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteStraightforward writes "nodes contacts max_time" followed by one
// "u v t" line per contact in chronological order.
func WriteStraightforward(w io.Writer, net *temporal.Network) error {
	maxTime, err := net.MaxTime()
	if err != nil {
		return fmt.Errorf("straightforward encoding: %w", err)
	}

	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%d %d %d\n", net.NumNodes, len(net.Contacts), maxTime); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range net.Contacts {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.U, c.V, c.T); err != nil {
			return fmt.Errorf("failed to write contact: %w", err)
		}
	}

	return bw.Flush()
}
