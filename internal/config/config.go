package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/x-rai/xrai/internal/decision"
	"github.com/x-rai/xrai/internal/imaging"
)

const (
	DefaultModelDir = "/home/nvidia07/X-RAI/runs/classify/train/weights"
	DefaultScanDir  = "/home/nvidia07/X-RAI/toscan"
	DefaultImage    = "EExtremelyHard2.jpg"
)

// Config holds xrai configuration.
type Config struct {
	Model       ModelConfig    `yaml:"model"`
	ONNXRuntime RuntimeConfig  `yaml:"onnxruntime"`
	Scan        ScanConfig     `yaml:"scan"`
	Decision    DecisionConfig `yaml:"decision"`
	Logging     LoggingConfig  `yaml:"logging"`
}

type ModelConfig struct {
	Dir          string `yaml:"dir"`           // directory holding the ONNX export
	File         string `yaml:"file"`          // model.onnx / best.onnx probed when empty
	InputSize    int    `yaml:"input_size"`    // square input edge, e.g. 224
	IntraThreads int    `yaml:"intra_threads"` // 0 = onnxruntime default
	InterThreads int    `yaml:"inter_threads"`
	SkipManifest bool   `yaml:"skip_manifest"` // manifest.json is verified when present
}

type RuntimeConfig struct {
	SharedLibrary string `yaml:"shared_library"` // falls back to ONNXRUNTIME_SHARED_LIBRARY_PATH
}

type ScanConfig struct {
	Dir   string `yaml:"dir"`
	Image string `yaml:"image"` // filename relative to dir
}

// DecisionConfig uses pointers so an explicit 0 differs from unset.
type DecisionConfig struct {
	Keyword        string   `yaml:"keyword"`
	HighConfidence *float64 `yaml:"high_confidence"`
	LowConfidence  *float64 `yaml:"low_confidence"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"` // debug | info | warn | error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Rules returns the decision table described by the config.
func (d DecisionConfig) Rules() decision.Rules {
	r := decision.DefaultRules()
	if d.Keyword != "" {
		r.Keyword = d.Keyword
	}
	if d.HighConfidence != nil {
		r.High = *d.HighConfidence
	}
	if d.LowConfidence != nil {
		r.Low = *d.LowConfidence
	}
	return r
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Model.Dir == "" {
		cfg.Model.Dir = DefaultModelDir
	}
	if cfg.Model.InputSize == 0 {
		cfg.Model.InputSize = imaging.DefaultInputSize
	}

	if cfg.Scan.Dir == "" {
		cfg.Scan.Dir = DefaultScanDir
	}
	if cfg.Scan.Image == "" {
		cfg.Scan.Image = DefaultImage
	}

	if cfg.Decision.Keyword == "" {
		cfg.Decision.Keyword = decision.DefaultKeyword
	}
	if cfg.Decision.HighConfidence == nil {
		v := decision.DefaultHigh
		cfg.Decision.HighConfidence = &v
	}
	if cfg.Decision.LowConfidence == nil {
		v := decision.DefaultLow
		cfg.Decision.LowConfidence = &v
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
