// Package engine drives the external SIR simulation engines.
//
// An engine is started as "<path> <beta> <nu> <seed>", reads one encoded
// temporal network on standard input and reports, on its interleaved
// stdout/stderr, the elapsed compute time on the first line followed by one
// outbreak size per line.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Params are the epidemic parameters passed to an engine
type Params struct {
	Beta float64 `json:"beta"` // infection rate
	Nu   float64 `json:"nu"`   // recovery rate
}

// Args formats the engine command-line arguments.
func (p Params) Args(seed uint64) []string {
	return []string{
		strconv.FormatFloat(p.Beta, 'g', -1, 64),
		strconv.FormatFloat(p.Nu, 'g', -1, 64),
		strconv.FormatUint(seed, 10),
	}
}

// Result is the output of one engine invocation
type Result struct {
	Elapsed       float64 `json:"elapsed"`
	OutbreakSizes []int   `json:"outbreak_sizes"`
}

// Engine runs an SIR simulation on an encoded network.
type Engine interface {
	Name() string
	Simulate(ctx context.Context, network []byte, params Params, seed uint64) (*Result, error)
}

// SpawnError reports an engine that could not be started.
type SpawnError struct {
	Engine string
	Path   string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("engine %s: failed to start %q: %v", e.Engine, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProtocolError reports engine output that does not follow the protocol.
// Output holds the raw engine output verbatim.
type ProtocolError struct {
	Engine string
	Reason string
	Output string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: %s: %v", e.Engine, e.Reason, e.Err)
	}
	return fmt.Sprintf("engine %s: %s", e.Engine, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsFatal reports whether err is an engine failure that must abort a comparison.
func IsFatal(err error) bool {
	var spawnErr *SpawnError
	var protocolErr *ProtocolError
	return errors.As(err, &spawnErr) || errors.As(err, &protocolErr)
}

// ProcessEngine runs an engine executable as a child process.
type ProcessEngine struct {
	Label string
	Path  string
	Env   []string // nil inherits the current environment
}

// NewProcessEngine creates an engine backed by the executable at path
func NewProcessEngine(label, path string) *ProcessEngine {
	return &ProcessEngine{Label: label, Path: path}
}

func (p *ProcessEngine) Name() string { return p.Label }

// Simulate runs the engine to completion and parses its output. The child
// is always waited for before Simulate returns.
func (p *ProcessEngine) Simulate(ctx context.Context, network []byte, params Params, seed uint64) (*Result, error) {
	cmd := exec.CommandContext(ctx, p.Path, params.Args(seed)...)
	cmd.Stdin = bytes.NewReader(network)
	cmd.Env = p.Env

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.As(err, &exitErr):
			return nil, &ProtocolError{Engine: p.Label, Reason: "engine exited abnormally", Output: string(out), Err: err}
		default:
			// exec.ErrNotFound, fs.ErrNotExist, fs.ErrPermission and friends
			return nil, &SpawnError{Engine: p.Label, Path: p.Path, Err: err}
		}
	}

	return ParseOutput(p.Label, out)
}

// ParseOutput interprets raw engine output: a floating-point elapsed time on
// the first line, then one integer outbreak size per non-empty line.
func ParseOutput(engine string, raw []byte) (*Result, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, &ProtocolError{Engine: engine, Reason: "empty output", Output: string(raw), Err: scanner.Err()}
	}

	first := strings.TrimSpace(scanner.Text())
	elapsed, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return nil, &ProtocolError{Engine: engine, Reason: "first line is not a number", Output: string(raw)}
	}

	result := &Result{Elapsed: elapsed, OutbreakSizes: make([]int, 0)}

	for line := 2; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		size, err := strconv.Atoi(text)
		if err != nil {
			return nil, &ProtocolError{
				Engine: engine,
				Reason: fmt.Sprintf("line %d is not an outbreak size", line),
				Output: string(raw),
			}
		}
		result.OutbreakSizes = append(result.OutbreakSizes, size)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ProtocolError{Engine: engine, Reason: "unreadable output", Output: string(raw), Err: err}
	}

	return result, nil
}
