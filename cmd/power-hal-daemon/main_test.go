package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	cfg, err := loadConfig(filepath.Join(dir, "missing.toml"), logger)
	if err != nil {
		t.Fatalf("loadConfig(missing) error = %v", err)
	}
	if cfg.Collection.IntervalSeconds != 60 {
		t.Fatalf("IntervalSeconds = %d, want default 60", cfg.Collection.IntervalSeconds)
	}

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[collection]\ninterval_seconds = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = loadConfig(path, logger)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Collection.IntervalSeconds != 5 {
		t.Fatalf("IntervalSeconds = %d, want 5", cfg.Collection.IntervalSeconds)
	}

	if err := os.WriteFile(path, []byte("[collection]\ninterval_seconds = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path, logger); err == nil {
		t.Fatal("loadConfig(invalid) error = nil, want error")
	}
}
