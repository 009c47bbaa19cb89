// Package config loads the watcher configuration from environment variables,
// an optional .env file, and an optional YAML config file. Environment
// variables win over the file, the file wins over the built-in defaults.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// The default user agent mimics the Android app; the API rejects obviously
// synthetic agents.
const defaultUserAgent = "TGTG/25.7.0 Dalvik/2.1.0 (Linux; U; Android 10; SM-G935F Build/NRD90M)"

const (
	defaultPollInterval     = 30 * time.Minute
	defaultListenAddr       = "127.0.0.1:8080"
	defaultDBPath           = "tgtg.db"
	defaultHistoryRetention = 14 * 24 * time.Hour
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Config holds the validated watcher configuration.
type Config struct {
	Email            string `validate:"omitempty,email"`
	UserAgent        string `validate:"required"`
	ItemIDs          []string
	PollInterval     time.Duration
	PollCron         string
	ListenAddr       string `validate:"required,hostname_port"`
	DBPath           string `validate:"required"`
	EncryptionKey    []byte
	MetricsEnabled   bool
	HistoryRetention time.Duration
}

// HasEmail reports whether an account email is configured for automatic
// login at startup. Without it, login happens through the panel or tgtgctl.
func (c *Config) HasEmail() bool {
	return c.Email != ""
}

// Load assembles the configuration and returns it validated. A .env file in
// the working directory is read first when present (a convenience for
// compose setups); TGTG_CONFIG_FILE may point at a YAML file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		UserAgent:        defaultUserAgent,
		ItemIDs:          []string{},
		PollInterval:     defaultPollInterval,
		ListenAddr:       defaultListenAddr,
		DBPath:           defaultDBPath,
		MetricsEnabled:   true,
		HistoryRetention: defaultHistoryRetention,
	}

	if path := os.Getenv("TGTG_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig mirrors the optional YAML file. Durations are strings so the
// file can say "30m"; pointer booleans distinguish "absent" from "false".
type fileConfig struct {
	Email            string   `yaml:"email"`
	UserAgent        string   `yaml:"user_agent"`
	ItemIDs          []string `yaml:"item_ids"`
	PollInterval     string   `yaml:"poll_interval"`
	PollCron         string   `yaml:"poll_cron"`
	ListenAddr       string   `yaml:"listen_addr"`
	DBPath           string   `yaml:"db_path"`
	MetricsEnabled   *bool    `yaml:"metrics_enabled"`
	HistoryRetention string   `yaml:"history_retention"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Email != "" {
		cfg.Email = fc.Email
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if len(fc.ItemIDs) > 0 {
		cfg.ItemIDs = fc.ItemIDs
	}
	if fc.PollInterval != "" {
		parsed, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("config file poll_interval %q: %w", fc.PollInterval, err)
		}
		cfg.PollInterval = parsed
	}
	if fc.PollCron != "" {
		cfg.PollCron = fc.PollCron
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
	}
	if fc.HistoryRetention != "" {
		parsed, err := time.ParseDuration(fc.HistoryRetention)
		if err != nil {
			return fmt.Errorf("config file history_retention %q: %w", fc.HistoryRetention, err)
		}
		cfg.HistoryRetention = parsed
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("TGTG_EMAIL"); ok {
		cfg.Email = v
	}
	if v, ok := os.LookupEnv("TGTG_USER_AGENT"); ok && v != "" {
		cfg.UserAgent = v
	}
	if v, ok := os.LookupEnv("TGTG_ITEM_IDS"); ok {
		cfg.ItemIDs = splitList(v)
	}
	if v, ok := os.LookupEnv("TGTG_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TGTG_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		cfg.PollInterval = parsed
	}
	if v, ok := os.LookupEnv("TGTG_POLL_CRON"); ok {
		cfg.PollCron = v
	}
	if v, ok := os.LookupEnv("TGTG_LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("TGTG_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("TGTG_ENCRYPTION_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return fmt.Errorf("TGTG_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("TGTG_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.EncryptionKey = key
	}
	if v, ok := os.LookupEnv("TGTG_METRICS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TGTG_METRICS has invalid boolean %q: %w", v, err)
		}
		cfg.MetricsEnabled = parsed
	}
	if v, ok := os.LookupEnv("TGTG_HISTORY_RETENTION"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TGTG_HISTORY_RETENTION has invalid duration %q: %w", v, err)
		}
		cfg.HistoryRetention = parsed
	}

	return nil
}

// validate enforces the structural rules and the polling bounds. The API
// bans accounts that poll too aggressively, so the interval floor is a
// safety net, not a tunable.
func (c *Config) validate() error {
	if c.PollInterval < time.Minute {
		return fmt.Errorf("poll interval %s is below the 1m minimum", c.PollInterval)
	}
	if c.HistoryRetention < time.Hour {
		return fmt.Errorf("history retention %s is below the 1h minimum", c.HistoryRetention)
	}
	if c.PollCron != "" {
		if _, err := cron.ParseStandard(c.PollCron); err != nil {
			return fmt.Errorf("TGTG_POLL_CRON is not a valid schedule: %w", err)
		}
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

func splitList(v string) []string {
	var items []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	if items == nil {
		items = []string{}
	}
	return items
}
