package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/tagwire/wire"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDumpConfigDefaultsAndOverrides(t *testing.T) {
	path := writeFile(t, "wiredump.toml", `
max_depth = 16
max_empty_elements = 10
allow_trailing_bytes = true
schemas = [" protos/geo.proto ", ""]
type = " geo.Drawing "
jobs = 2
log_level = "debug"
`)

	cfg, err := loadDumpConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Wire.MaxDepth != 16 {
		t.Fatalf("unexpected max depth: %d", cfg.Wire.MaxDepth)
	}
	if cfg.Wire.MaxBytesLength != wire.DefaultMaxBytesLength {
		t.Fatalf("max bytes length should keep its default, got %d", cfg.Wire.MaxBytesLength)
	}
	if cfg.Wire.MaxCollectionLength != wire.DefaultMaxCollectionLength {
		t.Fatalf("max collection length should keep its default, got %d", cfg.Wire.MaxCollectionLength)
	}
	if cfg.Wire.MaxEmptyElements != 10 {
		t.Fatalf("unexpected max empty elements: %d", cfg.Wire.MaxEmptyElements)
	}
	if !cfg.Wire.AllowTrailingBytes {
		t.Fatalf("expected trailing bytes allowed")
	}
	if len(cfg.Schemas) != 1 || cfg.Schemas[0] != "protos/geo.proto" {
		t.Fatalf("unexpected schemas: %+v", cfg.Schemas)
	}
	if cfg.MessageType != "geo.Drawing" {
		t.Fatalf("unexpected type: %q", cfg.MessageType)
	}
	if cfg.Indent != "  " {
		t.Fatalf("unexpected indent: %q", cfg.Indent)
	}
	if cfg.Jobs != 2 {
		t.Fatalf("unexpected jobs: %d", cfg.Jobs)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadDumpConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"zero_depth", "max_depth = 0", "max_depth must be positive"},
		{"zero_empty_elements", "max_empty_elements = 0", "max_empty_elements must be positive"},
		{"negative_jobs", "jobs = -1", "jobs must be positive"},
		{"bad_level", `log_level = "loud"`, "parse log_level"},
		{"bad_toml", "max_depth = ", "load wiredump config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadDumpConfig(writeFile(t, "wiredump.toml", tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("error %q does not contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoadDumpConfigMissingFile(t *testing.T) {
	if _, err := loadDumpConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
