package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}

	want := OptimizeConfig{
		FloatPrecision: 3,
		Round09:        6,
		Plugins:        []string{"minifyTransforms", "removeInheritedAttrs"},
		Suffix:         ".min",
		Extensions:     []string{".svg", ".svgz"},
	}
	if diff := cmp.Diff(want, cfg.Optimize); diff != "" {
		t.Errorf("default optimize config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
optimize:
  float_precision: 2
  matrix_precision: 6
  round_to_zero: 0.001
  plugins: [minifyTransforms]
  indent: 2
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	o := cfg.Optimize
	if o.FloatPrecision != 2 || o.MatrixPrecision != 6 || o.RoundToZero != 0.001 || o.Indent != 2 {
		t.Errorf("unexpected optimize values: %+v", o)
	}
	if diff := cmp.Diff([]string{"minifyTransforms"}, o.Plugins); diff != "" {
		t.Errorf("plugins mismatch (-want +got):\n%s", diff)
	}
	// not mentioned in file - template default stays
	if o.Round09 != 6 {
		t.Errorf("Round09 = %d, want default 6", o.Round09)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("file log mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\noptimize:\n  indent: 2\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"unknown nested field", "version: 1\noptimize:\n  fix_zip: true\n"},
		{"bad version", "version: 2\n"},
		{"unknown plugin", "version: 1\noptimize:\n  plugins: [removeEverything]\n"},
		{"negative precision", "version: 1\noptimize:\n  float_precision: -1\n"},
		{"bad extension", "version: 1\noptimize:\n  extensions: [svg]\n"},
		{"bad log level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Optimize.FloatPrecision = 5

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if diff := cmp.Diff(cfg, cfg2); diff != "" {
		t.Errorf("dump/load mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		result, err := unmarshalConfig([]byte(`version: 1`), &Config{}, false)
		if err != nil {
			t.Fatalf("unmarshalConfig() error = %v", err)
		}
		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := unmarshalConfig([]byte(`invalid: [yaml`), &Config{}, false); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestLoggingConfig_Prepare(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: filepath.Join(t.TempDir(), "test.log"), Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil, nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hello")
	_ = log.Sync()

	data, err := os.ReadFile(conf.FileLogger.Destination)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
