// Package config provides configuration loading and management for skulldetect.
// It handles loading configuration from YAML files and environment variables
// and provides default values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"skulldetect/pkg/detector"
)

// DirectionConfig holds the anchor arithmetic of one direction
type DirectionConfig struct {
	// Margin is how far the anchor is moved back inside the mask boundary
	Margin int `yaml:"margin"`

	// FallbackOffset is the anchor distance from the slice edge when the
	// mask never reaches background
	FallbackOffset int `yaml:"fallbackOffset"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Detection parameters of the skull heuristic
	Detection struct {
		// ProfileLength is the number of samples per direction
		ProfileLength int `yaml:"profileLength"`

		// VoteThreshold is the number of skull-like directions to exceed
		VoteThreshold int `yaml:"voteThreshold"`

		// SpikeMagnitude is the minimum |relative change| counted as a spike
		SpikeMagnitude float64 `yaml:"spikeMagnitude"`

		// SpikeThreshold is the spike count to exceed for a skull-like direction
		SpikeThreshold int `yaml:"spikeThreshold"`

		// LargeScaleRatio is the peak/valley ratio to exceed
		LargeScaleRatio float64 `yaml:"largeScaleRatio"`

		// Scale is the upper end of the normalized profile range
		Scale float64 `yaml:"scale"`

		// SkipOutward walks zero runs away from the slice center
		SkipOutward bool `yaml:"skipOutward"`

		// MinCoverage flags results with a smaller max layer as low confidence
		MinCoverage int `yaml:"minCoverage"`

		North DirectionConfig `yaml:"north"`
		South DirectionConfig `yaml:"south"`
		West  DirectionConfig `yaml:"west"`
		East  DirectionConfig `yaml:"east"`
	} `yaml:"detection"`

	// Batch parameters for patient directory runs
	Batch struct {
		// NumCores specifies how many patients are processed concurrently
		NumCores int `yaml:"numCores"`

		// VolumePattern locates the intensity volume below the dataset
		// directory; {id} is replaced by the patient ID
		VolumePattern string `yaml:"volumePattern"`

		// MaskDir is the root of the mask files, the dataset directory when empty
		MaskDir string `yaml:"maskDir"`

		// MaskPattern locates the mask below MaskDir
		MaskPattern string `yaml:"maskPattern"`

		// Expect is the label every patient should receive: "present",
		// "absent" or empty for none
		Expect string `yaml:"expect"`
	} `yaml:"batch"`

	// Output parameters
	Output struct {
		// Verbose prints per-patient lines in batch mode
		Verbose bool `yaml:"verbose"`

		// LogLevel is a zerolog level name
		LogLevel string `yaml:"logLevel"`

		// PreviewDir receives PNG previews of each detection when set
		PreviewDir string `yaml:"previewDir"`

		// Database is the SQLite results ledger path, disabled when empty
		Database string `yaml:"database"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	p := detector.DefaultParams()

	cfg.Detection.ProfileLength = p.ProfileLength
	cfg.Detection.VoteThreshold = p.VoteThreshold
	cfg.Detection.SpikeMagnitude = p.SpikeMagnitude
	cfg.Detection.SpikeThreshold = p.SpikeThreshold
	cfg.Detection.LargeScaleRatio = p.LargeScaleRatio
	cfg.Detection.Scale = p.Scale
	cfg.Detection.North = DirectionConfig(p.Directions[detector.North])
	cfg.Detection.South = DirectionConfig(p.Directions[detector.South])
	cfg.Detection.West = DirectionConfig(p.Directions[detector.West])
	cfg.Detection.East = DirectionConfig(p.Directions[detector.East])

	cfg.Batch.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Batch.VolumePattern = "{id}/{id}_t1.nii"
	cfg.Batch.MaskPattern = "{id}/{id}_mask.nii.gz"

	cfg.Output.Verbose = true
	cfg.Output.LogLevel = "info"

	return cfg
}

// DetectionParams converts the detection section into detector parameters
func (c *Config) DetectionParams() detector.Params {
	d := c.Detection
	p := detector.Params{
		ProfileLength:   d.ProfileLength,
		VoteThreshold:   d.VoteThreshold,
		SpikeMagnitude:  d.SpikeMagnitude,
		SpikeThreshold:  d.SpikeThreshold,
		LargeScaleRatio: d.LargeScaleRatio,
		Scale:           d.Scale,
		SkipOutward:     d.SkipOutward,
		MinCoverage:     d.MinCoverage,
	}
	p.Directions[detector.North] = detector.DirectionParams(d.North)
	p.Directions[detector.South] = detector.DirectionParams(d.South)
	p.Directions[detector.West] = detector.DirectionParams(d.West)
	p.Directions[detector.East] = detector.DirectionParams(d.East)
	return p
}

// Validate checks the configuration for values the pipeline cannot use
func (c *Config) Validate() error {
	if err := c.DetectionParams().Validate(); err != nil {
		return err
	}
	if c.Batch.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Batch.NumCores)
	}
	switch c.Batch.Expect {
	case "", "present", "absent":
	default:
		return fmt.Errorf("expect must be present, absent or empty, got %q", c.Batch.Expect)
	}
	if _, err := zerolog.ParseLevel(c.Output.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Output.LogLevel, err)
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults. A missing file yields the
// defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the parent directory
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// CreateDefaultConfigFile writes the default configuration to configPath
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
