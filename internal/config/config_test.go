package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"workpool/internal/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
pool:
  name: outer
  workers: 8
driver:
  tasks: 200
  nested_workers: 3
  fanout_every: 4
log:
  level: debug
server:
  enabled: true
  addr: ":9090"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Name != "outer" || cfg.Pool.Workers != 8 {
		t.Errorf("unexpected pool section: %+v", cfg.Pool)
	}
	if cfg.Driver.Tasks != 200 || cfg.Driver.NestedWorkers != 3 || cfg.Driver.FanoutEvery != 4 {
		t.Errorf("unexpected driver section: %+v", cfg.Driver)
	}
	if !cfg.Server.Enabled || cfg.ServerAddr() != ":9090" {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != logger.LevelDebug {
		t.Errorf("expected debug level, got %v (%v)", level, err)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "pool": {"workers": 2},
  "driver": {"tasks": 10},
  "log": {"level": "warn"}
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Pool.Workers != 2 || cfg.Driver.Tasks != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ServerAddr() != ":8080" {
		t.Errorf("expected default addr, got %s", cfg.ServerAddr())
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		if _, err := LoadFile("/nonexistent/config.yaml"); err == nil {
			t.Error("expected error for nonexistent file")
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := writeFile(t, "config.txt", "test")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for unsupported format")
		}
	})

	t.Run("broken yaml", func(t *testing.T) {
		path := writeFile(t, "config.yml", "pool: [unterminated")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected YAML parse error")
		}
	})

	t.Run("broken json", func(t *testing.T) {
		path := writeFile(t, "config.json", "{")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected JSON parse error")
		}
	})
}

func TestToDriverConfig(t *testing.T) {
	cfg := &FileConfig{
		Pool:   PoolConfig{Name: "outer", Workers: 6},
		Driver: DriverConfig{Tasks: 30, NestedWorkers: 5, FanoutEvery: 3},
	}

	dc := cfg.ToDriverConfig()
	if dc.PoolName != "outer" || dc.Workers != 6 {
		t.Errorf("unexpected pool settings: %+v", dc)
	}
	if dc.Tasks != 30 || dc.NestedWorkers != 5 || dc.FanoutEvery != 3 {
		t.Errorf("unexpected driver settings: %+v", dc)
	}
	if err := dc.Validate(); err != nil {
		t.Errorf("converted config should be valid: %v", err)
	}
}

func TestToDriverConfigDefaults(t *testing.T) {
	dc := (&FileConfig{}).ToDriverConfig()

	if dc.Workers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), dc.Workers)
	}
	if dc.PoolName != "root" || dc.Tasks != 1000 || dc.NestedWorkers != 2 || dc.FanoutEvery != 2 {
		t.Errorf("unexpected defaults: %+v", dc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		config   FileConfig
		hasError bool
	}{
		{"valid config", FileConfig{}, false},
		{"negative workers", FileConfig{Pool: PoolConfig{Workers: -1}}, true},
		{"negative tasks", FileConfig{Driver: DriverConfig{Tasks: -1}}, true},
		{"negative nested workers", FileConfig{Driver: DriverConfig{NestedWorkers: -2}}, true},
		{"negative fanout", FileConfig{Driver: DriverConfig{FanoutEvery: -1}}, true},
		{"unknown log level", FileConfig{Log: LogConfig{Level: "loud"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.hasError && err == nil {
				t.Error("expected validation error")
			}
			if !tt.hasError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
