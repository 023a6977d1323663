// Package config loads lorekeeper settings from defaults, a .env file, an
// optional YAML file and LOREKEEPER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/social"
)

// Config is the full runtime configuration. It is built once and passed to
// constructors.
type Config struct {
	Memory      MemoryConfig      `yaml:"memory"`
	LLM         LLMConfig         `yaml:"llm"`
	Game        GameConfig        `yaml:"game"`
	Logging     LoggingConfig     `yaml:"logging"`
	Social      social.Taxonomy   `yaml:"social"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	DB          string            `yaml:"db"`
}

type MemoryConfig struct {
	DecayRate           float64       `yaml:"decay_rate"`
	MaxMemoryItems      int           `yaml:"max_memory_items"`
	ImportanceThreshold int           `yaml:"importance_threshold"`
	SummaryInterval     int           `yaml:"summary_interval"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
	Rate        RateConfig    `yaml:"rate"`
}

// BreakerConfig controls the circuit breaker around completion calls.
type BreakerConfig struct {
	MaxFailures     uint32        `yaml:"max_failures"`
	OpenTimeout     time.Duration `yaml:"open_timeout"`
	HalfOpenSuccess uint32        `yaml:"half_open_successes"`
}

// RateConfig is a token bucket: PerSecond refills, Burst caps.
type RateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type GameConfig struct {
	SaveDir string `yaml:"save_dir"`
	World   string `yaml:"world"`
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	NarrativeLog bool   `yaml:"narrative_log"`
}

type MaintenanceConfig struct {
	Schedule string       `yaml:"schedule"`
	Forget   ForgetConfig `yaml:"forget"`
	Archive  bool         `yaml:"archive"`
}

type ForgetConfig struct {
	ThresholdDays int `yaml:"threshold_days"`
	MinImportance int `yaml:"min_importance"`
	MaxToForget   int `yaml:"max_to_forget"`
}

// Policy converts the thresholds to a local forgetting policy.
func (f ForgetConfig) Policy() local.ForgetPolicy {
	return local.ForgetPolicy{
		ThresholdDays: f.ThresholdDays,
		MinImportance: f.MinImportance,
		MaxToForget:   f.MaxToForget,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	forget := local.DefaultForgetPolicy()
	return Config{
		Memory: MemoryConfig{
			DecayRate:           0.1,
			MaxMemoryItems:      50,
			ImportanceThreshold: 3,
			SummaryInterval:     10,
			CacheTTL:            60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3",
			Temperature: 0.7,
			MaxTokens:   500,
			Timeout:     60 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures:     3,
				OpenTimeout:     30 * time.Second,
				HalfOpenSuccess: 2,
			},
			Rate: RateConfig{PerSecond: 1, Burst: 3},
		},
		Game:    GameConfig{SaveDir: "saves", World: "default"},
		Logging: LoggingConfig{Level: "info", NarrativeLog: true},
		Social:  social.DefaultTaxonomy(),
		Maintenance: MaintenanceConfig{
			Schedule: "@every 10m",
			Forget: ForgetConfig{
				ThresholdDays: forget.ThresholdDays,
				MinImportance: forget.MinImportance,
				MaxToForget:   forget.MaxToForget,
			},
		},
		DB: "lorekeeper.db",
	}
}

// Load builds a Config. A missing .env or YAML file is not an error; an
// unreadable or malformed one is. An empty path skips the YAML step.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Game.SaveDir, "LOREKEEPER_SAVE_DIR")
	setString(&c.Game.World, "LOREKEEPER_WORLD")
	setString(&c.DB, "LOREKEEPER_DB")
	setString(&c.LLM.Provider, "LOREKEEPER_LLM_PROVIDER")
	setString(&c.LLM.Model, "LOREKEEPER_LLM_MODEL")
	setString(&c.LLM.URL, "LOREKEEPER_LLM_URL")
	setString(&c.Logging.Level, "LOREKEEPER_LOG_LEVEL")
	setString(&c.Maintenance.Schedule, "LOREKEEPER_MAINTENANCE_SCHEDULE")

	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if v := os.Getenv("LOREKEEPER_NARRATIVE_LOG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOREKEEPER_NARRATIVE_LOG: %w", err)
		}
		c.Logging.NarrativeLog = b
	}
	if v := os.Getenv("LOREKEEPER_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LOREKEEPER_CACHE_TTL: %w", err)
		}
		c.Memory.CacheTTL = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
