// Package comparison runs the event-driven and the straightforward SIR
// engines on the same random temporal networks and compares their speed
// and their outbreak-size distributions.
package comparison

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/temporal-sir-compare/pkg/encoding"
	"github.com/gilchrisn/temporal-sir-compare/pkg/engine"
	"github.com/gilchrisn/temporal-sir-compare/pkg/stats"
	"github.com/gilchrisn/temporal-sir-compare/pkg/temporal"
	"github.com/gilchrisn/temporal-sir-compare/pkg/utils"
)

// Parameters of one comparison
type Parameters struct {
	Generator temporal.GeneratorParams `json:"generator"`
	Epidemic  engine.Params            `json:"epidemic"`
}

// EngineTotals accumulates one engine's output over all iterations
type EngineTotals struct {
	Name          string  `json:"name"`
	Elapsed       float64 `json:"elapsed"`        // sum of reported compute times
	OutbreakSizes []int   `json:"outbreak_sizes"` // concatenated over iterations
	LastSizes     []int   `json:"-"`              // sizes of the final iteration
}

func (t *EngineTotals) add(res *engine.Result) {
	t.Elapsed += res.Elapsed
	t.OutbreakSizes = append(t.OutbreakSizes, res.OutbreakSizes...)
	t.LastSizes = res.OutbreakSizes
}

// testSample returns the outbreak sizes that enter the significance test.
func (t *EngineTotals) testSample(mode SampleMode) []float64 {
	if mode == SamplesLast {
		return stats.Floats(t.LastSizes)
	}
	return stats.Floats(t.OutbreakSizes)
}

// Result is the outcome of a comparison run
type Result struct {
	RunID            string                  `json:"run_id"`
	Seed             uint64                  `json:"seed"`
	Runs             int                     `json:"runs"`
	SampleMode       SampleMode              `json:"sample_mode"`
	Parameters       Parameters              `json:"parameters"`
	EventDriven      EngineTotals            `json:"event_driven"`
	Straightforward  EngineTotals            `json:"straightforward"`
	SpeedUp          float64                 `json:"speed_up"`
	PValue           float64                 `json:"p_value"`
	MeanOutbreakSize float64                 `json:"mean_outbreak_size"`
	Test             stats.MannWhitneyResult `json:"test"`
	RuntimeMS        int64                   `json:"runtime_ms"`
}

// Harness drives paired engine runs.
type Harness struct {
	config          *Config
	eventDriven     engine.Engine
	straightforward engine.Engine

	seed      uint64
	genSource rand.Source // network generation
	seedRand  *rand.Rand  // engine seeds

	runID   string
	logger  zerolog.Logger
	tracker *utils.IterationTracker
	metrics *Metrics
}

// Option customizes a Harness
type Option func(*Harness)

// WithSources sets the random sources for network generation and for
// engine seeds.
func WithSources(generation, seeds rand.Source) Option {
	return func(h *Harness) {
		h.genSource = generation
		h.seedRand = rand.New(seeds)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

func WithTracker(tracker *utils.IterationTracker) Option {
	return func(h *Harness) { h.tracker = tracker }
}

func WithMetrics(metrics *Metrics) Option {
	return func(h *Harness) { h.metrics = metrics }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(h *Harness) { h.runID = id }
}

// NewHarness creates a harness comparing the two engines. Unless overridden,
// both random streams derive from the configured seed.
func NewHarness(config *Config, eventDriven, straightforward engine.Engine, opts ...Option) (*Harness, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if eventDriven == nil || straightforward == nil {
		return nil, fmt.Errorf("both engines are required")
	}

	seed := config.Seed()
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	h := &Harness{
		config:          config,
		eventDriven:     eventDriven,
		straightforward: straightforward,
		seed:            seed,
		genSource:       rand.NewPCG(seed, 0x9e3779b97f4a7c15),
		seedRand:        rand.New(rand.NewPCG(seed, 0xda3e39cb94b95bdb)),
		runID:           uuid.New().String(),
		logger:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// RunID identifies the comparison run in logs and traces.
func (h *Harness) RunID() string { return h.runID }

// Run performs the configured number of iterations strictly in sequence and
// reduces them to a speed-up, a Mann–Whitney p-value and a mean outbreak
// size. The first failure aborts the run.
func (h *Harness) Run(ctx context.Context, params Parameters) (*Result, error) {
	startTime := time.Now()
	logger := h.logger.With().Str("run_id", h.runID).Logger()

	if err := params.Generator.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator parameters: %w", err)
	}

	runs := h.config.Runs()
	mode := h.config.SampleMode()

	result := &Result{
		RunID:           h.runID,
		Seed:            h.seed,
		Runs:            runs,
		SampleMode:      mode,
		Parameters:      params,
		EventDriven:     EngineTotals{Name: h.eventDriven.Name(), OutbreakSizes: make([]int, 0)},
		Straightforward: EngineTotals{Name: h.straightforward.Name(), OutbreakSizes: make([]int, 0)},
	}

	logger.Info().
		Int("runs", runs).
		Int("n", params.Generator.Nodes).
		Float64("z", params.Generator.MeanDegree).
		Float64("c", params.Generator.Horizon).
		Float64("beta", params.Epidemic.Beta).
		Float64("nu", params.Epidemic.Nu).
		Uint64("seed", h.seed).
		Msg("Starting comparison")

	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := h.iteration(ctx, i, params, result, logger); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
	}

	test, err := stats.MannWhitneyU(
		result.Straightforward.testSample(mode),
		result.EventDriven.testSample(mode),
	)
	if err != nil {
		return nil, fmt.Errorf("significance test failed: %w", err)
	}

	result.Test = test
	result.PValue = test.PValue
	result.SpeedUp = result.Straightforward.Elapsed / result.EventDriven.Elapsed
	result.MeanOutbreakSize = stats.PooledMean(result.Straightforward.OutbreakSizes, result.EventDriven.OutbreakSizes)
	result.RuntimeMS = time.Since(startTime).Milliseconds()

	logger.Info().
		Float64("speed_up", result.SpeedUp).
		Float64("p_value", result.PValue).
		Str("test_method", string(test.Method)).
		Float64("mean_outbreak_size", result.MeanOutbreakSize).
		Int64("runtime_ms", result.RuntimeMS).
		Msg("Comparison completed")

	return result, nil
}

// iteration generates one network and runs both engines on it.
func (h *Harness) iteration(ctx context.Context, i int, params Parameters, result *Result, logger zerolog.Logger) error {
	net, err := temporal.Generate(params.Generator, h.genSource)
	if err != nil {
		return err
	}

	eventDrivenInput, err := encoding.EncodeEventDriven(net)
	if err != nil {
		return err
	}
	straightforwardInput, err := encoding.EncodeStraightforward(net)
	if err != nil {
		return err
	}

	edRes, edRecord, err := h.simulate(ctx, h.eventDriven, eventDrivenInput, params.Epidemic, logger)
	if err != nil {
		return err
	}
	result.EventDriven.add(edRes)

	sfRes, sfRecord, err := h.simulate(ctx, h.straightforward, straightforwardInput, params.Epidemic, logger)
	if err != nil {
		return err
	}
	result.Straightforward.add(sfRes)

	h.metrics.observeNetwork(len(net.Contacts))
	h.metrics.iterationDone()

	event := utils.IterationEvent{
		Iteration: i,
		Nodes:     net.NumNodes,
		Edges:     len(net.Edges),
		Contacts:  len(net.Contacts),
		Engines:   []utils.EngineRecord{edRecord, sfRecord},
	}
	if err := h.tracker.LogIteration(event); err != nil {
		logger.Warn().Err(err).Int("iteration", i).Msg("Trace write failed")
	}

	logger.Info().
		Int("iteration", i+1).
		Int("edges", len(net.Edges)).
		Int("contacts", len(net.Contacts)).
		Float64("event_driven_time", edRes.Elapsed).
		Float64("straightforward_time", sfRes.Elapsed).
		Msg("Iteration completed")

	return nil
}

func (h *Harness) simulate(ctx context.Context, e engine.Engine, input []byte, params engine.Params, logger zerolog.Logger) (*engine.Result, utils.EngineRecord, error) {
	seed := h.seedRand.Uint64()
	start := time.Now()

	res, err := e.Simulate(ctx, input, params, seed)
	if err != nil {
		return nil, utils.EngineRecord{}, err
	}
	wall := time.Since(start)

	h.metrics.observeEngine(e.Name(), wall.Seconds(), res.Elapsed, res.OutbreakSizes)

	logger.Debug().
		Str("engine", e.Name()).
		Uint64("seed", seed).
		Int("input_bytes", len(input)).
		Float64("elapsed", res.Elapsed).
		Int("samples", len(res.OutbreakSizes)).
		Dur("wall", wall).
		Msg("Engine finished")

	record := utils.EngineRecord{
		Engine:   e.Name(),
		Seed:     seed,
		Elapsed:  res.Elapsed,
		Samples:  len(res.OutbreakSizes),
		WallMS:   wall.Milliseconds(),
		InputLen: len(input),
	}
	return res, record, nil
}
