package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve in minimal containers

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PriceActionBot/internal/model"
	"PriceActionBot/internal/pattern"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
		Timezone string `yaml:"timezone"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"data_source"`
	Symbols    []string `yaml:"symbols"`
	Timeframes []string `yaml:"timeframes"`
	Patterns   struct {
		Enabled                []string `yaml:"enabled"`
		DojiEpsilon            *float64 `yaml:"doji_epsilon"`
		ShadowRatio            *float64 `yaml:"shadow_ratio"`
		MaxBodyRatio           *float64 `yaml:"max_body_ratio"`
		MaxOppositeShadowRatio *float64 `yaml:"max_opposite_shadow_ratio"`
		ZeroBodyShadowRatio    *float64 `yaml:"zero_body_shadow_ratio"`
		MinStrength            *float64 `yaml:"min_strength"`
	} `yaml:"patterns"`
	Scan struct {
		BarCount    int `yaml:"bar_count"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"scan"`
	Schedule struct {
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Alerts struct {
		Cooldown      time.Duration `yaml:"cooldown"`
		CacheFile     string        `yaml:"cache_file"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
	} `yaml:"alerts"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("BRIDGE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Alerts.RedisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitList(v)
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Timeframes = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Telegram.Timezone == "" {
		c.Telegram.Timezone = "UTC"
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 5
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = []string{"M15", "H1", "H4", "D1"}
	}
	if len(c.Patterns.Enabled) == 0 {
		for _, k := range model.Kinds() {
			c.Patterns.Enabled = append(c.Patterns.Enabled, k.ID())
		}
	}
	if c.Patterns.MinStrength == nil {
		v := 0.5
		c.Patterns.MinStrength = &v
	}
	if c.Scan.BarCount == 0 {
		c.Scan.BarCount = 100
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 4
	}
	if c.Alerts.Cooldown == 0 {
		c.Alerts.Cooldown = time.Hour
	}
	if c.Alerts.CacheFile == "" {
		c.Alerts.CacheFile = "data/alert_cache.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/price_action.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set and well-formed.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if _, err := time.LoadLocation(c.Telegram.Timezone); err != nil {
		return fmt.Errorf("telegram.timezone: %w", err)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if _, err := c.ParsedTimeframes(); err != nil {
		return err
	}
	pc, err := c.PatternConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("patterns: %w", err)
	}
	if ms := c.MinStrength(); ms < 0 || ms > 1 || math.IsNaN(ms) {
		return fmt.Errorf("patterns.min_strength must be within [0, 1]")
	}
	if c.Scan.BarCount < 2 {
		return fmt.Errorf("scan.bar_count must be at least 2")
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be positive")
	}
	return nil
}

// ParsedTimeframes returns the configured timeframes in order.
func (c *Config) ParsedTimeframes() ([]model.Timeframe, error) {
	out := make([]model.Timeframe, 0, len(c.Timeframes))
	for _, s := range c.Timeframes {
		tf, err := model.ParseTimeframe(s)
		if err != nil {
			return nil, fmt.Errorf("timeframes: %w", err)
		}
		out = append(out, tf)
	}
	return out, nil
}

// PatternConfig builds classifier thresholds, keeping defaults for any
// threshold not present in the file.
func (c *Config) PatternConfig() (pattern.Config, error) {
	pc := pattern.DefaultConfig()
	pc.Enabled = 0
	for _, id := range c.Patterns.Enabled {
		k, err := model.ParseKind(id)
		if err != nil {
			return pattern.Config{}, fmt.Errorf("patterns.enabled: %w", err)
		}
		pc.Enabled = pc.Enabled.With(k)
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&pc.DojiEpsilon, c.Patterns.DojiEpsilon)
	set(&pc.ShadowRatio, c.Patterns.ShadowRatio)
	set(&pc.MaxBodyRatio, c.Patterns.MaxBodyRatio)
	set(&pc.MaxOppositeShadowRatio, c.Patterns.MaxOppositeShadowRatio)
	set(&pc.ZeroBodyShadowRatio, c.Patterns.ZeroBodyShadowRatio)
	return pc, nil
}

// MinStrength is the lowest pattern strength that is alerted. Zero alerts
// every detection.
func (c *Config) MinStrength() float64 {
	if c.Patterns.MinStrength == nil {
		return 0.5
	}
	return *c.Patterns.MinStrength
}

// Location returns the timezone alert timestamps are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Telegram.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
