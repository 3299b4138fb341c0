package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"PairSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, bridge or mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Schedule struct {
		CycleCron string `yaml:"cycle_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy    string   `yaml:"proxy"`
	Analysis Analysis `yaml:"analysis"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Analysis: DefaultAnalysis()}
	cfg.DataSource.Provider = "yahoo"
	cfg.Schedule.CycleCron = "0 */15 10-17 * * 1-5"
	cfg.Database.SQLitePath = "data/pair_sentinel.db"
	cfg.Metrics.Addr = ":9102"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("BRIDGE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_CYCLE"); v != "" {
		cfg.Schedule.CycleCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("UNIVERSE"); v != "" {
		symbols := splitSymbols(v)
		cfg.Analysis.UniverseDependent = symbols
		cfg.Analysis.UniverseIndependent = symbols
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		cfg.Analysis.Timeframe = model.Timeframe(strings.ToUpper(v))
	}

	// A YAML file may blank out slices; put the ladder back.
	if len(cfg.Analysis.Lookbacks) == 0 {
		cfg.Analysis.Lookbacks = DefaultLookbacks()
	}
	if cfg.Analysis.Timeframe == "" {
		cfg.Analysis.Timeframe = model.D1
	}

	return cfg, nil
}

// Validate checks the harness fields and the analysis record.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "bridge":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the bridge provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Schedule.CycleCron == "" {
		return fmt.Errorf("schedule.cycle_cron is required")
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

func splitSymbols(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
