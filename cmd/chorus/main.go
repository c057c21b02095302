// Command chorus runs the transcription consensus engine once. It reads
// candidates from a JSON file, or produces them with built-in demo
// recognizers when no input is given, evaluates them, publishes the
// result (log-only unless Kafka is configured), and prints the
// ConsensusResult JSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-chorus/infrastructure/events"
	"github.com/ahrav/go-chorus/infrastructure/fanout"
	"github.com/ahrav/go-chorus/internal/application"
	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to a JSON array of transcription candidates; empty runs the built-in demo recognizers")
		configPath = flag.String("config", "", "Path to a YAML configuration file; empty uses the defaults")
		pretty     = flag.Bool("pretty", false, "Indent the result JSON")
		timeout    = flag.Duration("timeout", 30*time.Second, "Deadline for the whole run")
	)
	flag.Parse()

	config := application.DefaultFileConfig()
	if *configPath != "" {
		loaded, err := application.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config = *loaded
	}

	logger := config.Logging.NewLogger(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	engine, err := application.NewEngineFromConfig(&config, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}

	candidates, err := loadCandidates(ctx, *inputPath, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to collect candidates")
	}

	result, err := engine.Evaluate(ctx, candidates)
	if err != nil {
		logger.Fatal().Err(err).Msg("Consensus evaluation failed")
	}

	publisher := events.NewKafkaPublisher(config.Events, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close publisher")
		}
	}()
	if err := publisher.Publish(ctx, result.ID, result); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish result, continuing")
	}

	if err := printResult(result, *pretty); err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode result")
	}
}

// loadCandidates reads candidates from path, or produces them with the
// demo recognizers when no path is given.
func loadCandidates(ctx context.Context, path string, config application.FileConfig, logger zerolog.Logger) ([]domain.TranscriptionCandidate, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		var candidates []domain.TranscriptionCandidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return nil, fmt.Errorf("failed to parse candidates: %w", err)
		}
		return candidates, nil
	}

	runner, err := fanout.NewRunner(demoRecognizers(), config.Fanout, logger)
	if err != nil {
		return nil, err
	}

	// Mock recognizers never read audio, so an empty clip suffices.
	clip := ports.AudioClip{SampleRate: 16000, Channels: 1}
	return runner.Run(ctx, clip)
}

// demoRecognizers simulate three services that mostly agree on one
// utterance, which exercises ranking, disagreement detection, and the
// reasoning trace without any external dependency.
func demoRecognizers() []ports.Recognizer {
	return []ports.Recognizer{
		&fanout.MockRecognizer{
			ServiceName: "google-stt",
			Text:        "schedule a meeting with the design team at three pm tomorrow",
			Confidence:  domain.Float64Ptr(0.94),
			Latency:     420 * time.Millisecond,
			Metadata:    map[string]string{domain.MetadataKeyLanguage: "en-US"},
		},
		&fanout.MockRecognizer{
			ServiceName: "aws-transcribe",
			Text:        "schedule a meeting with the design team at 3 pm tomorrow",
			Confidence:  domain.Float64Ptr(0.91),
			Latency:     650 * time.Millisecond,
			Metadata:    map[string]string{domain.MetadataKeyLanguage: "en-US"},
		},
		&fanout.MockRecognizer{
			ServiceName: "azure-speech",
			Text:        "schedule a meeting with the design team at three p m tomorrow",
			Latency:     380 * time.Millisecond,
		},
	}
}

// printResult writes the result JSON to stdout.
func printResult(result *domain.ConsensusResult, pretty bool) error {
	encoder := json.NewEncoder(os.Stdout)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}
