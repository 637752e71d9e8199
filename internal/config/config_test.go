package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.Output != "text" {
		t.Errorf("Output = %q, want text default", cfg.General.Output)
	}
	if cfg.Remote.FetchUsage != nil {
		t.Error("FetchUsage should be unset by default")
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	on := false
	cfg := DefaultConfig()
	cfg.General.Output = "json"
	cfg.General.ExtraRoots = []string{"/srv/claude"}
	cfg.Remote.FetchUsage = &on

	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("config file not written")
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.General.Output != "json" {
		t.Errorf("Output = %q", got.General.Output)
	}
	if len(got.General.ExtraRoots) != 1 || got.General.ExtraRoots[0] != "/srv/claude" {
		t.Errorf("ExtraRoots = %v", got.General.ExtraRoots)
	}
	if got.Remote.FetchUsage == nil || *got.Remote.FetchUsage {
		t.Errorf("FetchUsage = %v, want false", got.Remote.FetchUsage)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, "claudeline"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "claudeline", "config.toml"), []byte("not = [toml"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}
