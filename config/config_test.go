package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "base_url: https://example.test\nowners:\n  - \"1Abc\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("DataDir = %q, want default %q", cfg.DataDir, "data")
	}
	if cfg.BatchSize != 20 {
		t.Fatalf("BatchSize = %d, want default 20", cfg.BatchSize)
	}
	if cfg.PollInterval().Milliseconds() != 100 {
		t.Fatalf("PollInterval = %v, want 100ms", cfg.PollInterval())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "base_url: https://example.test\nowners: [\"1Abc\"]\nbatch_size: 50\ndata_dir: /tmp/foo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize != 50 || cfg.DataDir != "/tmp/foo" {
		t.Fatalf("cfg = %+v, want overridden batch_size/data_dir", cfg)
	}
}

func TestLoadRequiresBaseURLAndOwners(t *testing.T) {
	path := writeConfig(t, "data_dir: /tmp/foo\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when base_url and owners are both missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a nonexistent config file")
	}
}
