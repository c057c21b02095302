// Package application loads, validates, and wires the configuration for
// a consensus deployment, turning a declarative YAML document into a
// ready-to-use engine with its scorer and observers attached.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-chorus/internal/ports"
)

// LoadConfig reads, parses, and validates the configuration file at path.
// Absent fields keep their reference defaults; unknown fields are
// rejected so typos fail loudly instead of silently configuring nothing.
// A missing file surfaces as ports.ErrConfigNotFound.
func LoadConfig(path string) (*FileConfig, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
		}
		return nil, ports.NewConfigError(cleanPath, fmt.Errorf("failed to read file: %w", err))
	}

	return loadConfig(data)
}

// ParseConfig reads, parses, and validates a configuration document from
// reader. It behaves exactly like LoadConfig without touching the
// filesystem.
func ParseConfig(reader io.Reader) (*FileConfig, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return loadConfig(data)
}

// load is the common implementation for loading configuration from byte
// data: decode over the defaults, then validate the merged result.
func loadConfig(data []byte) (*FileConfig, error) {
	config, err := parseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return config, nil
}

// parseConfigYAML decodes data on top of the reference defaults so a
// document only has to state the fields it overrides. An empty document
// yields the defaults unchanged.
func parseConfigYAML(data []byte) (*FileConfig, error) {
	config := DefaultFileConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return &config, nil
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	return &config, nil
}
