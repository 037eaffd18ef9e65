package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/temporal-sir-compare/pkg/comparison"
	"github.com/gilchrisn/temporal-sir-compare/pkg/engine"
	"github.com/gilchrisn/temporal-sir-compare/pkg/temporal"
	"github.com/gilchrisn/temporal-sir-compare/pkg/utils"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit status.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := comparison.NewConfig()

	rootCmd := newRootCmd(cfg)
	rootCmd.AddCommand(
		newVerifyCmd(),
		newEncodeCmd(),
	)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	// An engine that broke the protocol gets its output shown verbatim
	var protocolErr *engine.ProtocolError
	if errors.As(err, &protocolErr) {
		fmt.Fprint(stdout, protocolErr.Output)
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func newRootCmd(cfg *comparison.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tsircompare [flags] n z c beta nu",
		Short: "Compare event-driven and straightforward SIR engines on temporal networks",
		Long: `tsircompare generates random temporal networks (n nodes, mean degree z,
contacts from unit-rate Poisson processes on [0, c)), runs both SIR engines
on every network and reports the relative speed-up of the event-driven
engine, the p-value of a Mann-Whitney U test on the outbreak sizes and the
mean outbreak size.`,
		Args:          cobra.ExactArgs(5),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				if err := cfg.LoadFromFile(path); err != nil {
					return fmt.Errorf("failed to load config %s: %w", path, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParameters(args)
			if err != nil {
				return err
			}
			return runComparison(cmd.Context(), cmd, cfg, params)
		},
	}

	// Global flags
	cmd.PersistentFlags().String("config", "", "Configuration file (yaml, json or toml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	flags := cmd.Flags()
	flags.Int("runs", 10, "Number of paired iterations")
	flags.String("event-driven", "./tsir", "Event-driven engine executable")
	flags.String("straightforward", "./tsir_ref", "Straightforward engine executable")
	flags.Uint64("seed", 0, "Master random seed (0 derives one from the clock)")
	flags.String("sample-mode", string(comparison.SamplesPooled), "Outbreak sizes tested: pooled or last")
	flags.String("trace-file", "", "Write a JSONL trace of every iteration")
	flags.String("metrics-file", "", "Write Prometheus metrics in textfile format")
	flags.Bool("json", false, "Print the full result as JSON")

	v := cfg.Viper()
	v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("comparison.runs", flags.Lookup("runs"))
	v.BindPFlag("engines.event_driven.path", flags.Lookup("event-driven"))
	v.BindPFlag("engines.straightforward.path", flags.Lookup("straightforward"))
	v.BindPFlag("random.seed", flags.Lookup("seed"))
	v.BindPFlag("comparison.sample_mode", flags.Lookup("sample-mode"))
	v.BindPFlag("output.trace_file", flags.Lookup("trace-file"))
	v.BindPFlag("output.metrics_file", flags.Lookup("metrics-file"))
	v.BindPFlag("output.json", flags.Lookup("json"))

	return cmd
}

// parseParameters reads the positional arguments n z c beta nu.
func parseParameters(args []string) (comparison.Parameters, error) {
	var params comparison.Parameters

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return params, fmt.Errorf("invalid n %q: %w", args[0], err)
	}

	floats := make([]float64, 4)
	names := []string{"z", "c", "beta", "nu"}
	for i, name := range names {
		floats[i], err = strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return params, fmt.Errorf("invalid %s %q: %w", name, args[i+1], err)
		}
	}

	params.Generator = temporal.GeneratorParams{Nodes: n, MeanDegree: floats[0], Horizon: floats[1]}
	params.Epidemic = engine.Params{Beta: floats[2], Nu: floats[3]}

	if err := params.Generator.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func runComparison(ctx context.Context, cmd *cobra.Command, cfg *comparison.Config, params comparison.Parameters) error {
	logger := cfg.CreateLogger(cmd.ErrOrStderr())

	runID := uuid.New().String()
	metrics := comparison.NewMetrics()

	opts := []comparison.Option{
		comparison.WithLogger(logger),
		comparison.WithMetrics(metrics),
		comparison.WithRunID(runID),
	}

	if path := cfg.TraceFile(); path != "" {
		tracker, err := utils.NewIterationTracker(path, runID)
		if err != nil {
			return err
		}
		defer tracker.Close()
		opts = append(opts, comparison.WithTracker(tracker))
	}

	h, err := comparison.NewHarness(cfg,
		engine.NewProcessEngine("event-driven", cfg.EventDrivenPath()),
		engine.NewProcessEngine("straightforward", cfg.StraightforwardPath()),
		opts...,
	)
	if err != nil {
		return err
	}

	result, err := h.Run(ctx, params)
	if err != nil {
		return err
	}

	if path := cfg.MetricsFile(); path != "" {
		if err := metrics.WriteToTextfile(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to write metrics")
		}
	}

	if cfg.JSONOutput() {
		return result.WriteJSON(cmd.OutOrStdout())
	}
	return result.WriteReport(cmd.OutOrStdout())
}
