package application

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-chorus/infrastructure/consensus"
	"github.com/ahrav/go-chorus/infrastructure/middleware"
	"github.com/ahrav/go-chorus/infrastructure/scoring"
	"github.com/ahrav/go-chorus/internal/ports"
)

// NewEngineFromConfig assembles a ready-to-use consensus engine from a
// configuration: the hybrid scorer built from the scoring section, a
// logging observer on the supplied logger, and, when a metrics collector
// is provided, a metrics observer labeled with the scorer's algorithm.
// Section validation happens inside the component constructors, so a
// hand-built FileConfig does not need a prior Validate call.
func NewEngineFromConfig(config *FileConfig, logger zerolog.Logger, metrics ports.MetricsCollector) (*consensus.Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	scorer, err := scoring.NewHybridScorer(config.Scoring)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	observers := []ports.EvaluationObserver{middleware.NewLoggingObserver(logger)}
	if metrics != nil {
		observers = append(observers, middleware.NewMetricsObserver(metrics, scorer.Name()))
	}

	engine, err := consensus.NewEngine(scorer, config.Engine,
		consensus.WithObserver(middleware.NewMultiObserver(observers...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return engine, nil
}
