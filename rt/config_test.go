package rt

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "loom" {
		t.Errorf("Name = %q, want loom", cfg.Name)
	}
	if cfg.PinThreads {
		t.Error("PinThreads should default to false")
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want %v", cfg.SweepInterval, DefaultSweepInterval)
	}
}

func TestDefaultConfigSnapshotEnv(t *testing.T) {
	t.Setenv("LOOM_SNAPSHOT_DB", "/tmp/test-snapshots.db")

	cfg := DefaultConfig()
	if cfg.SnapshotPath != "/tmp/test-snapshots.db" {
		t.Errorf("SnapshotPath = %q, want env value", cfg.SnapshotPath)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
name = "myapp"
pin-threads = true
sweep-interval = "5m"
snapshot-path = "graphs.db"
verbosity = 2
`
	if err := os.WriteFile(filepath.Join(dir, "loom.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Name != "myapp" {
		t.Errorf("Name = %q, want myapp", cfg.Name)
	}
	if !cfg.PinThreads {
		t.Error("PinThreads should be true")
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
	if cfg.SnapshotPath != "graphs.db" {
		t.Errorf("SnapshotPath = %q, want graphs.db", cfg.SnapshotPath)
	}
	if cfg.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", cfg.Verbosity)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "loom.toml"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "loom" {
		t.Errorf("Name = %q, want loom", cfg.Name)
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want default", cfg.SweepInterval)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("missing loom.toml should be an error")
	}
}

func TestLoadConfigBadInterval(t *testing.T) {
	dir := t.TempDir()
	content := `sweep-interval = "not-a-duration"`
	if err := os.WriteFile(filepath.Join(dir, "loom.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(dir); err == nil {
		t.Error("invalid sweep-interval should be an error")
	}
}

func TestLoadConfigBadToml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "loom.toml"), []byte("==="), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(dir); err == nil {
		t.Error("malformed TOML should be an error")
	}
}
