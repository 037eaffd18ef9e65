package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EngineRecord is one engine invocation within an iteration
type EngineRecord struct {
	Engine   string  `json:"engine"`
	Seed     uint64  `json:"seed"`
	Elapsed  float64 `json:"elapsed"`
	Samples  int     `json:"samples"`
	WallMS   int64   `json:"wall_ms"`
	InputLen int     `json:"input_bytes"`
}

// IterationEvent is one paired iteration of a comparison run
type IterationEvent struct {
	RunID     string         `json:"run_id"`
	Iteration int            `json:"iteration"`
	Nodes     int            `json:"nodes"`
	Edges     int            `json:"edges"`
	Contacts  int            `json:"contacts"`
	Engines   []EngineRecord `json:"engines"`
	Timestamp int64          `json:"timestamp"`
}

// IterationTracker appends iteration events to a JSONL file. It is not safe
// for concurrent use. A nil tracker ignores all calls.
type IterationTracker struct {
	file    *os.File
	encoder *json.Encoder
	runID   string
}

// NewIterationTracker creates the trace file, truncating any previous content
func NewIterationTracker(filename, runID string) (*IterationTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	return &IterationTracker{
		file:    file,
		encoder: json.NewEncoder(file),
		runID:   runID,
	}, nil
}

// LogIteration writes one event.
func (it *IterationTracker) LogIteration(event IterationEvent) error {
	if it == nil {
		return nil
	}

	event.RunID = it.runID
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	if err := it.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}
	return nil
}

func (it *IterationTracker) Close() error {
	if it == nil || it.file == nil {
		return nil
	}
	return it.file.Close()
}
