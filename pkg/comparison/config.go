package comparison

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// SampleMode selects which outbreak sizes enter the significance test
type SampleMode string

const (
	// SamplesPooled tests all outbreak sizes accumulated over every iteration.
	SamplesPooled SampleMode = "pooled"
	// SamplesLast tests only the outbreak sizes of the final iteration.
	SamplesLast SampleMode = "last"
)

// Config manages comparison configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Comparison parameters
	v.SetDefault("comparison.runs", 10)
	v.SetDefault("comparison.sample_mode", string(SamplesPooled))

	// Engine executables
	v.SetDefault("engines.event_driven.path", "./tsir")
	v.SetDefault("engines.straightforward.path", "./tsir_ref")

	// Randomness; 0 derives a seed from the clock
	v.SetDefault("random.seed", uint64(0))

	// Logging parameters
	v.SetDefault("logging.level", "info")

	// Outputs
	v.SetDefault("output.trace_file", "")
	v.SetDefault("output.metrics_file", "")
	v.SetDefault("output.json", false)

	v.SetEnvPrefix("TSIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Viper exposes the underlying store for flag binding.
func (c *Config) Viper() *viper.Viper { return c.v }

func (c *Config) Runs() int { return c.v.GetInt("comparison.runs") }
func (c *Config) SampleMode() SampleMode {
	return SampleMode(strings.ToLower(c.v.GetString("comparison.sample_mode")))
}

func (c *Config) EventDrivenPath() string     { return c.v.GetString("engines.event_driven.path") }
func (c *Config) StraightforwardPath() string { return c.v.GetString("engines.straightforward.path") }

func (c *Config) Seed() uint64 { return c.v.GetUint64("random.seed") }

func (c *Config) LogLevel() string    { return c.v.GetString("logging.level") }
func (c *Config) TraceFile() string   { return c.v.GetString("output.trace_file") }
func (c *Config) MetricsFile() string { return c.v.GetString("output.metrics_file") }
func (c *Config) JSONOutput() bool    { return c.v.GetBool("output.json") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Runs() <= 0 {
		return fmt.Errorf("comparison.runs must be positive: %d", c.Runs())
	}
	switch c.SampleMode() {
	case SamplesPooled, SamplesLast:
	default:
		return fmt.Errorf("comparison.sample_mode must be %q or %q: %q", SamplesPooled, SamplesLast, c.SampleMode())
	}
	if c.EventDrivenPath() == "" || c.StraightforwardPath() == "" {
		return fmt.Errorf("both engine paths must be set")
	}
	return nil
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
	}).Level(level).With().Timestamp().Str("service", "tsir-compare").Logger()
}
