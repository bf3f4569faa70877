package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/tagwire/wire"
)

type dumpConfig struct {
	Wire        wire.Config
	Schemas     []string
	ProtoPaths  []string
	MessageType string
	Indent      string
	Jobs        int
	LogLevel    zerolog.Level
}

func defaultDumpConfig() dumpConfig {
	return dumpConfig{
		Wire:     wire.DefaultConfig(),
		Indent:   "  ",
		Jobs:     4,
		LogLevel: zerolog.InfoLevel,
	}
}

type fileConfig struct {
	MaxBytesLength      int      `toml:"max_bytes_length"`
	MaxDepth            int      `toml:"max_depth"`
	MaxCollectionLength int      `toml:"max_collection_length"`
	MaxEmptyElements    int      `toml:"max_empty_elements"`
	AllowTrailingBytes  bool     `toml:"allow_trailing_bytes"`
	Schemas             []string `toml:"schemas"`
	ProtoPaths          []string `toml:"proto_paths"`
	Type                string   `toml:"type"`
	Indent              string   `toml:"indent"`
	Jobs                int      `toml:"jobs"`
	LogLevel            string   `toml:"log_level"`
}

func loadDumpConfig(path string) (dumpConfig, error) {
	cfg := defaultDumpConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return dumpConfig{}, fmt.Errorf("load wiredump config: %w", err)
	}

	if meta.IsDefined("max_bytes_length") {
		if raw.MaxBytesLength <= 0 {
			return dumpConfig{}, fmt.Errorf("max_bytes_length must be positive, got %d", raw.MaxBytesLength)
		}
		cfg.Wire.MaxBytesLength = raw.MaxBytesLength
	}

	if meta.IsDefined("max_depth") {
		if raw.MaxDepth <= 0 {
			return dumpConfig{}, fmt.Errorf("max_depth must be positive, got %d", raw.MaxDepth)
		}
		cfg.Wire.MaxDepth = raw.MaxDepth
	}

	if meta.IsDefined("max_collection_length") {
		if raw.MaxCollectionLength <= 0 {
			return dumpConfig{}, fmt.Errorf("max_collection_length must be positive, got %d", raw.MaxCollectionLength)
		}
		cfg.Wire.MaxCollectionLength = raw.MaxCollectionLength
	}

	if meta.IsDefined("max_empty_elements") {
		if raw.MaxEmptyElements <= 0 {
			return dumpConfig{}, fmt.Errorf("max_empty_elements must be positive, got %d", raw.MaxEmptyElements)
		}
		cfg.Wire.MaxEmptyElements = raw.MaxEmptyElements
	}

	if meta.IsDefined("allow_trailing_bytes") {
		cfg.Wire.AllowTrailingBytes = raw.AllowTrailingBytes
	}

	if meta.IsDefined("schemas") {
		cfg.Schemas = normalizePaths(raw.Schemas)
	}

	if meta.IsDefined("proto_paths") {
		cfg.ProtoPaths = normalizePaths(raw.ProtoPaths)
	}

	if meta.IsDefined("type") {
		cfg.MessageType = strings.TrimSpace(raw.Type)
	}

	if meta.IsDefined("indent") {
		cfg.Indent = raw.Indent
	}

	if meta.IsDefined("jobs") {
		if raw.Jobs <= 0 {
			return dumpConfig{}, fmt.Errorf("jobs must be positive, got %d", raw.Jobs)
		}
		cfg.Jobs = raw.Jobs
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return dumpConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func normalizePaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
