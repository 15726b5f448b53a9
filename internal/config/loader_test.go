package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Policy.Profile != "interactive" {
		t.Errorf("profile = %q, want interactive", cfg.Policy.Profile)
	}
	if cfg.Scheduler.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Scheduler.Workers)
	}
	if cfg.NATS.Enabled {
		t.Error("nats enabled by default")
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want default 8080", cfg.Server.Port)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	content := `server:
  port: "9090"
policy:
  profile: safe-auto
scheduler:
  workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Policy.Profile != "safe-auto" {
		t.Errorf("profile = %q, want safe-auto", cfg.Policy.Profile)
	}
	if cfg.Scheduler.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Scheduler.Workers)
	}
	// Untouched sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want default info", cfg.Logging.Level)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("TOOLGATE_PORT", "7070")
	t.Setenv("TOOLGATE_POLICY_PROFILE", "full-auto")
	t.Setenv("TOOLGATE_WORKERS", "2")
	t.Setenv("TOOLGATE_NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://queue:4222")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env 7070", cfg.Server.Port)
	}
	if cfg.Policy.Profile != "full-auto" {
		t.Errorf("profile = %q, want full-auto", cfg.Policy.Profile)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Scheduler.Workers)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://queue:4222" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"nats enabled without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }},
		{"empty profile", func(c *Config) { c.Policy.Profile = "" }},
		{"zero workers", func(c *Config) { c.Scheduler.Workers = 0 }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.edit(&cfg)
		if err := validate(&cfg); err == nil {
			t.Errorf("%s: validate passed, want error", tc.name)
		}
	}
}

func TestLoadFromRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("malformed YAML loaded without error")
	}
}
