package application

import (
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ahrav/go-chorus/infrastructure/consensus"
	"github.com/ahrav/go-chorus/infrastructure/events"
	"github.com/ahrav/go-chorus/infrastructure/fanout"
	"github.com/ahrav/go-chorus/infrastructure/scoring"
)

// validate is the shared validator instance for configuration structs.
var validate = validator.New()

// FileConfig is the top-level configuration document for a consensus
// deployment, covering every subsystem a binary assembles: the similarity
// scorer, the engine itself, the recognizer fan-out, result publishing,
// and logging.
// Each section carries its own reference defaults, so a configuration
// file only needs to state the fields it overrides. An empty file is a
// fully valid default deployment.
type FileConfig struct {
	// Scoring sets the component weights of the hybrid similarity
	// algorithm used to compare candidate transcriptions.
	Scoring scoring.Config `yaml:"scoring" json:"scoring"`
	// Engine sets the consensus engine's decision weights, agreement
	// threshold, quality thresholds, and fallback policy.
	Engine consensus.Config `yaml:"engine" json:"engine"`
	// Fanout sets the per-service timeout and concurrency bounds for
	// the recognizer fan-out runner.
	Fanout fanout.Config `yaml:"fanout" json:"fanout"`
	// Events configures Kafka publishing of finished consensus results.
	// Publishing is disabled by default.
	Events events.Config `yaml:"events" json:"events"`
	// Logging configures the zerolog output of binaries that embed the
	// engine. The engine itself logs only through its observer.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig controls the level and format of log output.
type LoggingConfig struct {
	// Level is the minimum level to emit.
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	// Format selects JSON (the default) or human-readable console output.
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json console"`
}

// NewLogger builds a zerolog logger writing to out at the configured
// level and format. Empty or unparseable levels fall back to info.
func (c LoggingConfig) NewLogger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}

	if c.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// DefaultFileConfig returns a FileConfig with every section at its
// reference defaults: hybrid scoring weights 0.6/0.4, the standard
// decision and quality weights, a five-way bounded fan-out, publishing
// disabled, and info-level JSON logs.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Scoring: scoring.DefaultConfig(),
		Engine:  consensus.DefaultConfig(),
		Fanout:  fanout.DefaultConfig(),
		Events:  events.DefaultConfig(),
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Validate applies struct tag validation followed by each section's
// semantic checks. A FileConfig must pass before it is used to build
// anything.
func (c *FileConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Fanout.Validate(); err != nil {
		return fmt.Errorf("fanout: %w", err)
	}
	return nil
}
