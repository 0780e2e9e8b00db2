package config

import (
	"os"
	"path/filepath"
	"testing"

	"skulldetect/pkg/detector"
)

// TestDefaultConfigMatchesDetector verifies the defaults are the detector defaults
func TestDefaultConfigMatchesDetector(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration should be valid: %v", err)
	}

	if got, want := cfg.DetectionParams(), detector.DefaultParams(); got != want {
		t.Errorf("Expected detection params %+v, got %+v", want, got)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields the defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Detection.ProfileLength != 40 {
		t.Errorf("Expected profile length 40, got %d", cfg.Detection.ProfileLength)
	}
}

// TestLoadConfigPartial verifies only the keys present in the file change
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
detection:
  voteThreshold: 1
  north:
    margin: 3
batch:
  expect: absent
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	params := cfg.DetectionParams()
	if params.VoteThreshold != 1 {
		t.Errorf("Expected vote threshold 1, got %d", params.VoteThreshold)
	}
	if params.Directions[detector.North].Margin != 3 {
		t.Errorf("Expected north margin 3, got %d", params.Directions[detector.North].Margin)
	}
	// a partially given direction keeps its other defaults
	if params.Directions[detector.North].FallbackOffset != 25 {
		t.Errorf("Expected north fallback offset 25, got %d", params.Directions[detector.North].FallbackOffset)
	}
	if params.ProfileLength != 40 {
		t.Errorf("Expected profile length 40, got %d", params.ProfileLength)
	}
	if cfg.Batch.Expect != "absent" {
		t.Errorf("Expected expect=absent, got %q", cfg.Batch.Expect)
	}
}

// TestSaveAndLoadConfig verifies a saved configuration loads back unchanged
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Detection.SkipOutward = true
	cfg.Detection.East.FallbackOffset = 12
	cfg.Output.Database = "results.db"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.DetectionParams() != cfg.DetectionParams() {
		t.Errorf("Expected detection params %+v, got %+v", cfg.DetectionParams(), loaded.DetectionParams())
	}
	if loaded.Output.Database != "results.db" {
		t.Errorf("Expected database results.db, got %q", loaded.Output.Database)
	}
}

// TestCreateDefaultConfigFile verifies the written file loads back as the defaults
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "skulldetect.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.DetectionParams() != detector.DefaultParams() {
		t.Errorf("Expected default params %+v, got %+v", detector.DefaultParams(), loaded.DetectionParams())
	}
}

// TestLoadConfigUnreadable verifies read errors other than a missing file are reported
func TestLoadConfigUnreadable(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("Expected error when the config path is a directory, got nil")
	}
}

// TestLoadConfigInvalidYAML verifies parse errors are reported
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("detection: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

// TestValidate verifies invalid values are rejected
func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"profile length", func(cfg *Config) { cfg.Detection.ProfileLength = 0 }},
		{"cores", func(cfg *Config) { cfg.Batch.NumCores = 0 }},
		{"expect", func(cfg *Config) { cfg.Batch.Expect = "maybe" }},
		{"log level", func(cfg *Config) { cfg.Output.LogLevel = "loud" }},
		{"margin", func(cfg *Config) { cfg.Detection.South.Margin = -2 }},
	}

	for _, tc := range testCases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}
}

// TestApplyEnv verifies environment overrides
func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvNumCores, "3")
	t.Setenv(EnvDatabase, "/tmp/ledger.db")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Output.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.Output.LogLevel)
	}
	if cfg.Batch.NumCores != 3 {
		t.Errorf("Expected 3 cores, got %d", cfg.Batch.NumCores)
	}
	if cfg.Output.Database != "/tmp/ledger.db" {
		t.Errorf("Expected database /tmp/ledger.db, got %q", cfg.Output.Database)
	}

	t.Setenv(EnvNumCores, "many")
	if err := ApplyEnv(cfg); err == nil {
		t.Error("Expected error for non-numeric core count, got nil")
	}
}
