package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Ladder        LadderConfig        `yaml:"ladder"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// LadderConfig holds the ladder rule knobs.
type LadderConfig struct {
	// ChallengeReach is how many rank positions above its own a team may
	// challenge. Kept as configuration, not a literal, because clubs tune it.
	ChallengeReach int `yaml:"challenge_reach"`

	// DefaultBestOf is used when a season does not specify its own best-of.
	DefaultBestOf int `yaml:"default_best_of"`

	// ReminderQueueWorkers bounds the river reminder queue.
	ReminderQueueWorkers int `yaml:"reminder_queue_workers"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

const (
	defaultChallengeReach = 3
	defaultBestOf         = 3
	defaultQueueWorkers   = 5
)

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("CHALLENGE_REACH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ladder.ChallengeReach = n
		}
	}
	if v := os.Getenv("DEFAULT_BEST_OF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ladder.DefaultBestOf = n
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	cfg.Observability.MetricsAddress = os.Getenv("METRICS_ADDRESS")
	cfg.Observability.Environment = os.Getenv("ENV")

	if v := os.Getenv("CHALLENGE_REACH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ladder.ChallengeReach = n
		}
	}
	if v := os.Getenv("DEFAULT_BEST_OF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ladder.DefaultBestOf = n
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ladder.ChallengeReach <= 0 {
		c.Ladder.ChallengeReach = defaultChallengeReach
	}
	if c.Ladder.DefaultBestOf <= 0 {
		c.Ladder.DefaultBestOf = defaultBestOf
	}
	if c.Ladder.ReminderQueueWorkers <= 0 {
		c.Ladder.ReminderQueueWorkers = defaultQueueWorkers
	}
	if c.Observability.MetricsAddress == "" {
		c.Observability.MetricsAddress = ":9090"
	}
}
