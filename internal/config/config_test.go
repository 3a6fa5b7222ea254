package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Engine.MaxPlanRevisions != 1 || cfg.Engine.MaxJudgmentRevisions != 1 {
		t.Errorf("default revision limits = %d/%d, want 1/1", cfg.Engine.MaxPlanRevisions, cfg.Engine.MaxJudgmentRevisions)
	}
	if cfg.Environment != "production" {
		t.Errorf("default environment = %q, want production", cfg.Environment)
	}
	if cfg.ItemTimeout() != 300*time.Second {
		t.Errorf("default item timeout = %v", cfg.ItemTimeout())
	}
}

func TestYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auditeval.yaml")
	yaml := `
environment: development
engine:
  max_plan_revisions: 3
  item_concurrency: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	// Env beats YAML.
	t.Setenv("AUDITEVAL_MAX_PLAN_REVISIONS", "5")
	t.Setenv("AUDITEVAL_FAST_PLAN", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Development() {
		t.Errorf("YAML environment override not applied")
	}
	if cfg.Engine.ItemConcurrency != 2 {
		t.Errorf("YAML item_concurrency = %d, want 2", cfg.Engine.ItemConcurrency)
	}
	if cfg.Engine.MaxPlanRevisions != 5 {
		t.Errorf("env override lost: max_plan_revisions = %d, want 5", cfg.Engine.MaxPlanRevisions)
	}
	if !cfg.Engine.FastPlan {
		t.Errorf("env fast_plan override not applied")
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("missing config file should fall back to defaults, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "Bad environment", mutate: func(c *Config) { c.Environment = "staging" }},
		{name: "Negative revisions", mutate: func(c *Config) { c.Engine.MaxPlanRevisions = -1 }},
		{name: "Zero item concurrency", mutate: func(c *Config) { c.Engine.ItemConcurrency = 0 }},
		{name: "Zero timeout", mutate: func(c *Config) { c.Engine.ItemTimeoutSec = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
