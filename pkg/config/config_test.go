package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripweaver.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Queue.Backend != "sqlite" {
		t.Errorf("expected sqlite default backend, got %q", cfg.Queue.Backend)
	}
	if cfg.Jobs.AttemptCap != 3 {
		t.Errorf("expected attempt cap 3, got %d", cfg.Jobs.AttemptCap)
	}

	// Second load reads the file written by the first.
	cfg2, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if cfg2.Server.Address != cfg.Server.Address {
		t.Error("reload should match defaults")
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s":   30 * time.Second,
		"5m":    5 * time.Minute,
		"1d":    24 * time.Hour,
		"2w":    14 * 24 * time.Hour,
		"1d12h": 36 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCategoryDefaults(t *testing.T) {
	cats := DefaultCategories()
	if !cats.Known("museum") {
		t.Error("museum should be a known category")
	}
	if cats.Weight("museum") <= 1.0 {
		t.Error("museum should carry a boosted weight")
	}
	if cats.Weight("no-such-thing") != 1.0 {
		t.Error("unknown categories default to weight 1.0")
	}
	if cats.DwellDefault("no-such-thing") != 45 {
		t.Error("unknown categories default to 45min dwell")
	}
	if len(cats.Defaults) == 0 {
		t.Error("defaults must not be empty")
	}
}
