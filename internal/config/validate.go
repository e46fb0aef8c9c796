package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/x-rai/xrai/internal/logging"
)

const (
	minInputSize = 32
	maxInputSize = 4096
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validateModelConfig(cfg.Model); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Scan.Dir) == "" {
		return errors.New("scan.dir must be set")
	}
	if strings.TrimSpace(cfg.Scan.Image) == "" {
		return errors.New("scan.image must be set")
	}
	if filepath.IsAbs(cfg.Scan.Image) {
		return errors.New("scan.image must be a filename relative to scan.dir")
	}

	if err := cfg.Decision.Rules().Validate(); err != nil {
		return fmt.Errorf("decision: %w", err)
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation settings must not be negative")
	}

	return nil
}

func validateModelConfig(m ModelConfig) error {
	if strings.TrimSpace(m.Dir) == "" {
		return errors.New("model.dir must be set")
	}
	if m.InputSize < minInputSize || m.InputSize > maxInputSize {
		return fmt.Errorf("model.input_size %d must be within [%d, %d]", m.InputSize, minInputSize, maxInputSize)
	}
	if m.IntraThreads < 0 || m.InterThreads < 0 {
		return errors.New("model thread counts must not be negative")
	}
	if f := strings.TrimSpace(m.File); f != "" && !strings.EqualFold(filepath.Ext(f), ".onnx") {
		return fmt.Errorf("model.file %q must be an .onnx export", f)
	}
	return nil
}
