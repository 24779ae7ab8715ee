package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"annotator/internal/config"
	"annotator/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GridSize != 512 || cfg.PointTolerance != 10 || cfg.RetryIntervalSeconds != 5 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Connection().Driver != domain.RemoteDriverREST {
		t.Errorf("expected rest driver, got %q", cfg.Connection().Driver)
	}
}

func TestLoadClampsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"grid_size": -4, "point_tolerance": 0, "calibration_mode": " macro ",
		"remote": {"driver": "Postgres", "host": "db", "port": 5433},
		"keybindings": {"add": "a"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GridSize != 512 {
		t.Errorf("grid size not clamped: %d", cfg.GridSize)
	}
	if cfg.PointTolerance != 10 {
		t.Errorf("tolerance not clamped: %v", cfg.PointTolerance)
	}
	if cfg.CalibrationMode != "MACRO" {
		t.Errorf("calibration mode not normalized: %q", cfg.CalibrationMode)
	}
	conn := cfg.Connection()
	if conn.Driver != domain.RemoteDriverPostgres || conn.Host != "db" || conn.Port != 5433 {
		t.Errorf("unexpected connection %+v", conn)
	}
	if cfg.Keybindings["add"] != "a" {
		t.Errorf("keybindings lost: %v", cfg.Keybindings)
	}
	if cfg.RetryInterval() != 5*time.Second {
		t.Errorf("unexpected retry interval %v", cfg.RetryInterval())
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0o644)
	cfg, err := config.Load(path)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if cfg == nil || cfg.GridSize != 512 {
		t.Errorf("expected defaults alongside the error, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := config.DefaultConfig()
	cfg.ImageID = 42
	cfg.Remote.BaseURL = "https://eggs.example.org"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ImageID != 42 || got.Remote.BaseURL != "https://eggs.example.org" {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *config.Config, 4)
	w, err := config.Watch(path, func(c *config.Config) { changes <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	cfg.PointTolerance = 25
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got.PointTolerance != 25 {
			t.Errorf("expected reloaded tolerance 25, got %v", got.PointTolerance)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}
