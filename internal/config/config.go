package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Solcast struct {
		BaseURL  string `yaml:"base_url"`
		SiteID   string `yaml:"site_id"`
		APIKey   string `yaml:"api_key"`
		AuthMode string `yaml:"auth_mode"`
	} `yaml:"solcast"`
	PSE struct {
		BaseURL     string `yaml:"base_url"`
		FilterField string `yaml:"filter_field"`
	} `yaml:"pse"`
	Policy struct {
		ForecastMaxAge       time.Duration `yaml:"forecast_max_age"`
		DayStart             time.Duration `yaml:"day_start"`
		PricePublicationHour int           `yaml:"price_publication_hour"`
		UpstreamTimeout      time.Duration `yaml:"upstream_timeout"`
		RequestTimeout       time.Duration `yaml:"request_timeout"`
	} `yaml:"policy"`
	Database struct {
		// DSN is a sqlite path, sqlite:// or postgres:// URL, or "memory".
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	HTTP struct {
		Addr string  `yaml:"addr"`
		RPS  float64 `yaml:"rps"`
		// Burst is the upstream token bucket size.
		Burst int `yaml:"burst"`
	} `yaml:"http"`
	Schedule struct {
		ForecastCron string `yaml:"forecast_cron"`
		PricesCron   string `yaml:"prices_cron"`
		ReportCron   string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		// Output is stdout, stderr or a file path rotated by size.
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Timezone string `yaml:"timezone"`
	Currency string `yaml:"currency"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Midnight is a valid publication hour, so the default is seeded before
	// decoding instead of being inferred from the zero value.
	cfg.Policy.PricePublicationHour = 16

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
	override(&cfg.Solcast.APIKey, "SOLCAST_API_KEY")
	override(&cfg.Solcast.SiteID, "SOLCAST_SITE_ID")
	override(&cfg.Solcast.BaseURL, "SOLCAST_BASE_URL")
	override(&cfg.Solcast.AuthMode, "SOLCAST_AUTH_MODE")
	override(&cfg.PSE.BaseURL, "PSE_BASE_URL")
	override(&cfg.PSE.FilterField, "PSE_FILTER_FIELD")
	override(&cfg.Database.DSN, "DATABASE_URL")
	override(&cfg.HTTP.Addr, "HTTP_ADDR")
	override(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	override(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	override(&cfg.Logging.Level, "LOG_LEVEL")
	override(&cfg.Logging.Output, "LOG_FILE")
	override(&cfg.Timezone, "TIMEZONE")
	override(&cfg.Proxy, "HTTPS_PROXY")
	if v := os.Getenv("FORECAST_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORECAST_MAX_AGE: %w", err)
		}
		cfg.Policy.ForecastMaxAge = d
	}
	if v := os.Getenv("PRICE_PUBLICATION_HOUR"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PRICE_PUBLICATION_HOUR: %w", err)
		}
		cfg.Policy.PricePublicationHour = h
	}

	// Defaults
	if cfg.Solcast.BaseURL == "" {
		cfg.Solcast.BaseURL = "https://api.solcast.com.au"
	}
	if cfg.Solcast.AuthMode == "" {
		cfg.Solcast.AuthMode = "bearer"
	}
	if cfg.PSE.BaseURL == "" {
		cfg.PSE.BaseURL = "https://api.raporty.pse.pl/api/rce-pln"
	}
	if cfg.PSE.FilterField == "" {
		cfg.PSE.FilterField = "business_date"
	}
	if cfg.Policy.ForecastMaxAge == 0 {
		cfg.Policy.ForecastMaxAge = 30 * time.Minute
	}
	if cfg.Policy.DayStart == 0 {
		cfg.Policy.DayStart = 5 * time.Hour
	}
	if cfg.Policy.UpstreamTimeout == 0 {
		cfg.Policy.UpstreamTimeout = 45 * time.Second
	}
	if cfg.Policy.RequestTimeout == 0 {
		cfg.Policy.RequestTimeout = 60 * time.Second
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/solarbudget.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RPS == 0 {
		cfg.HTTP.RPS = 1
	}
	if cfg.HTTP.Burst == 0 {
		cfg.HTTP.Burst = 2
	}
	if cfg.Schedule.ForecastCron == "" {
		cfg.Schedule.ForecastCron = "0 */30 * * * *"
	}
	if cfg.Schedule.PricesCron == "" {
		cfg.Schedule.PricesCron = "0 5 0,16 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 20 * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Warsaw"
	}
	if cfg.Currency == "" {
		cfg.Currency = "PLN"
	}

	return cfg, nil
}

func override(field *string, env string) {
	if v := os.Getenv(env); v != "" {
		*field = v
	}
}

// Location resolves the deployment timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Solcast.SiteID == "" {
		return fmt.Errorf("solcast.site_id is required")
	}
	if c.Solcast.APIKey == "" {
		return fmt.Errorf("solcast.api_key is required")
	}
	if c.Solcast.AuthMode != "bearer" && c.Solcast.AuthMode != "api_key" {
		return fmt.Errorf("solcast.auth_mode must be bearer or api_key, got %q", c.Solcast.AuthMode)
	}
	if c.PSE.FilterField != "business_date" && c.PSE.FilterField != "doba" {
		return fmt.Errorf("pse.filter_field must be business_date or doba, got %q", c.PSE.FilterField)
	}
	if c.Policy.ForecastMaxAge <= 0 {
		return fmt.Errorf("policy.forecast_max_age must be positive")
	}
	if c.Policy.DayStart < 0 || c.Policy.DayStart >= 24*time.Hour {
		return fmt.Errorf("policy.day_start must be within a day")
	}
	if c.Policy.PricePublicationHour < 0 || c.Policy.PricePublicationHour > 23 {
		return fmt.Errorf("policy.price_publication_hour must be 0-23")
	}
	if c.HTTP.RPS <= 0 {
		return fmt.Errorf("http.rps must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
