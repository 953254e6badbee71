package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

// Config is the YAML configuration file. Command line flags override it.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ModelConfig holds the FTRL hyperparameters.
type ModelConfig struct {
	Alpha     float32 `yaml:"alpha"`
	Beta      float32 `yaml:"beta"`
	L1        float32 `yaml:"l1"`
	L2        float32 `yaml:"l2"`
	ModelType string  `yaml:"model_type"`
}

// TrainingConfig controls the batch driver.
type TrainingConfig struct {
	Passes      int    `yaml:"passes"`
	Shuffle     bool   `yaml:"shuffle"`
	Seed        int64  `yaml:"seed"`
	Workers     int    `yaml:"workers"`
	Concurrency string `yaml:"concurrency"`
}

// DataConfig describes the libsvm input files.
type DataConfig struct {
	ZeroBased    bool `yaml:"zero_based"`
	Binary       bool `yaml:"binary"`
	BinaryLabels bool `yaml:"binary_labels"`
	NumFeatures  int  `yaml:"num_features"`
}

// LoggingConfig controls the log level, format and file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// DefaultConfig mirrors ftrl.DefaultParams with one shuffled pass.
func DefaultConfig() Config {
	p := ftrl.DefaultParams()
	return Config{
		Model: ModelConfig{
			Alpha: p.Alpha, Beta: p.Beta, L1: p.L1, L2: p.L2,
			ModelType: p.ModelType.String(),
		},
		Training: TrainingConfig{
			Passes:      1,
			Shuffle:     true,
			Seed:        -1,
			Workers:     1,
			Concurrency: ftrl.Sequential.String(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
}

// LoadConfig reads path on top of DefaultConfig. Keys missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Params converts the model section.
func (c Config) Params() (ftrl.Params, error) {
	mt, err := ftrl.ParseModelType(c.Model.ModelType)
	if err != nil {
		return ftrl.Params{}, err
	}
	p := ftrl.Params{Alpha: c.Model.Alpha, Beta: c.Model.Beta, L1: c.Model.L1, L2: c.Model.L2, ModelType: mt}
	return p, p.Validate()
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	if c.Training.Passes < 1 {
		return errors.NewValidationError("training.passes", "must be at least 1", c.Training.Passes)
	}
	if c.Training.Workers < 0 {
		return errors.NewValidationError("training.workers", "must be >= 0", c.Training.Workers)
	}
	if _, err := ftrl.ParseConcurrency(c.Training.Concurrency); err != nil {
		return err
	}
	if c.Data.NumFeatures < 0 {
		return errors.NewValidationError("data.num_features", "must be >= 0", c.Data.NumFeatures)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if f := c.Logging.Format; f != "json" && f != "console" {
		return errors.NewValidationError("logging.format", "allowed json, console", f)
	}
	return nil
}
