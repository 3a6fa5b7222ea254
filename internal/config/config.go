// Package config holds the engine configuration: built-in defaults, an
// optional YAML file, then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr  string       `yaml:"listen_addr"`
	Environment string       `yaml:"environment"` // production or development
	LogFile     string       `yaml:"log_file"`
	LLM         LLMConfig    `yaml:"llm"`
	Engine      EngineConfig `yaml:"engine"`
}

type LLMConfig struct {
	Backend    string `yaml:"backend"` // gemini or ollama
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`
}

type EngineConfig struct {
	MaxPlanRevisions     int  `yaml:"max_plan_revisions"`
	MaxJudgmentRevisions int  `yaml:"max_judgment_revisions"`
	FastPlan             bool `yaml:"fast_plan"`
	ItemTimeoutSec       int  `yaml:"item_timeout_sec"`
	ItemConcurrency      int  `yaml:"item_concurrency"`
	TaskConcurrency      int  `yaml:"task_concurrency"`
}

func Default() *Config {
	return &Config{
		ListenAddr:  ":8080",
		Environment: "production",
		LogFile:     "auditeval.log",
		LLM: LLMConfig{
			Backend: "gemini",
		},
		Engine: EngineConfig{
			MaxPlanRevisions:     1,
			MaxJudgmentRevisions: 1,
			FastPlan:             false,
			ItemTimeoutSec:       300,
			ItemConcurrency:      4,
			TaskConcurrency:      8,
		},
	}
}

// Load builds the effective config. path may be empty; a missing file is not
// an error, a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setStr(&c.ListenAddr, "AUDITEVAL_LISTEN_ADDR")
	setStr(&c.Environment, "AUDITEVAL_ENV")
	setStr(&c.LogFile, "AUDITEVAL_LOG_FILE")
	setStr(&c.LLM.Backend, "AUDITEVAL_LLM_BACKEND")
	setStr(&c.LLM.Model, "AUDITEVAL_LLM_MODEL")
	setStr(&c.LLM.OllamaHost, "OLLAMA_HOST")
	setInt(&c.Engine.MaxPlanRevisions, "AUDITEVAL_MAX_PLAN_REVISIONS")
	setInt(&c.Engine.MaxJudgmentRevisions, "AUDITEVAL_MAX_JUDGMENT_REVISIONS")
	setBool(&c.Engine.FastPlan, "AUDITEVAL_FAST_PLAN")
	setInt(&c.Engine.ItemTimeoutSec, "AUDITEVAL_ITEM_TIMEOUT_SEC")
	setInt(&c.Engine.ItemConcurrency, "AUDITEVAL_ITEM_CONCURRENCY")
	setInt(&c.Engine.TaskConcurrency, "AUDITEVAL_TASK_CONCURRENCY")
}

func (c *Config) validate() error {
	switch c.Environment {
	case "production", "development":
	default:
		return fmt.Errorf("environment must be production or development, got %q", c.Environment)
	}
	if c.Engine.MaxPlanRevisions < 0 || c.Engine.MaxJudgmentRevisions < 0 {
		return fmt.Errorf("revision limits must be >= 0")
	}
	if c.Engine.ItemConcurrency < 1 {
		return fmt.Errorf("item_concurrency must be >= 1")
	}
	if c.Engine.TaskConcurrency < 1 {
		return fmt.Errorf("task_concurrency must be >= 1")
	}
	if c.Engine.ItemTimeoutSec < 1 {
		return fmt.Errorf("item_timeout_sec must be >= 1")
	}
	return nil
}

func (c *Config) Development() bool {
	return c.Environment == "development"
}

func (c *Config) ItemTimeout() time.Duration {
	return time.Duration(c.Engine.ItemTimeoutSec) * time.Second
}
