package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the stock simulator.
type Config struct {
	Port            int
	LogLevel        string
	LogFormat       string
	TickInterval    time.Duration
	HistoryWindow   time.Duration
	InitialCash     decimal.Decimal
	CatalogPath     string
	AutoLoad        bool
	Seed            int64
	CommandBuffer   int
	StreamBuffer    int
	WebhookTimeout  time.Duration
	JournalPath     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

var defaults = map[string]string{
	"port":             "8080",
	"log_level":        "info",
	"log_format":       "json",
	"tick_interval":    "5s",
	"history_window":   "60m",
	"initial_cash":     "10000.00",
	"catalog_path":     "",
	"auto_load":        "true",
	"seed":             "0",
	"command_buffer":   "64",
	"stream_buffer":    "256",
	"webhook_timeout":  "5s",
	"journal_path":     "",
	"read_timeout":     "5s",
	"write_timeout":    "10s",
	"idle_timeout":     "60s",
	"shutdown_timeout": "10s",
}

// Load reads configuration from defaults, an optional config file and
// environment variables, in increasing order of precedence. An empty path
// falls back to the CONFIG_FILE environment variable. It returns an error for
// any invalid value.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		CatalogPath: v.GetString("catalog_path"),
		JournalPath: v.GetString("journal_path"),
	}

	var err error
	if cfg.Port, err = getInt(v, "port"); err != nil {
		return nil, err
	}

	cfg.LogLevel = v.GetString("log_level")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	cfg.LogFormat = v.GetString("log_format")
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q, must be one of: json, console", cfg.LogFormat)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"tick_interval", &cfg.TickInterval},
		{"history_window", &cfg.HistoryWindow},
		{"webhook_timeout", &cfg.WebhookTimeout},
		{"read_timeout", &cfg.ReadTimeout},
		{"write_timeout", &cfg.WriteTimeout},
		{"idle_timeout", &cfg.IdleTimeout},
		{"shutdown_timeout", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(v, d.key); err != nil {
			return nil, err
		}
	}

	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be positive")
	}
	if cfg.HistoryPoints() < 1 {
		return nil, fmt.Errorf("invalid HISTORY_WINDOW: %v must span at least one TICK_INTERVAL (%v)",
			cfg.HistoryWindow, cfg.TickInterval)
	}

	if cfg.InitialCash, err = domain.ParseMoney(v.GetString("initial_cash")); err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	if cfg.InitialCash.Sign() < 0 {
		return nil, fmt.Errorf("invalid INITIAL_CASH: must be >= 0")
	}

	if cfg.AutoLoad, err = strconv.ParseBool(v.GetString("auto_load")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_LOAD: %w", err)
	}

	if cfg.Seed, err = strconv.ParseInt(v.GetString("seed"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	if cfg.CommandBuffer, err = getInt(v, "command_buffer"); err != nil {
		return nil, err
	}
	if cfg.StreamBuffer, err = getInt(v, "stream_buffer"); err != nil {
		return nil, err
	}
	if cfg.CommandBuffer < 1 || cfg.StreamBuffer < 1 {
		return nil, fmt.Errorf("invalid COMMAND_BUFFER/STREAM_BUFFER: must be >= 1")
	}

	return cfg, nil
}

// HistoryPoints returns N, the number of tick intervals covered by the price
// history window. Each history holds N+1 points.
func (c *Config) HistoryPoints() int {
	if c.TickInterval <= 0 {
		return 0
	}
	return int(c.HistoryWindow / c.TickInterval)
}

func getInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return n, nil
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return d, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
