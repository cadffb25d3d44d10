package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.solcast.com.au", cfg.Solcast.BaseURL)
	assert.Equal(t, "bearer", cfg.Solcast.AuthMode)
	assert.Equal(t, "business_date", cfg.PSE.FilterField)
	assert.Equal(t, 30*time.Minute, cfg.Policy.ForecastMaxAge)
	assert.Equal(t, 5*time.Hour, cfg.Policy.DayStart)
	assert.Equal(t, 16, cfg.Policy.PricePublicationHour)
	assert.Equal(t, "0 */30 * * * *", cfg.Schedule.ForecastCron)
	assert.Equal(t, "Europe/Warsaw", cfg.Timezone)
	assert.Equal(t, "PLN", cfg.Currency)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solcast:
  site_id: abcd-1234
  api_key: from-file
  auth_mode: api_key
policy:
  forecast_max_age: 45m
  day_start: 4h30m
database:
  dsn: postgres://solar@localhost/solar
timezone: UTC
`), 0o644))
	t.Setenv("SOLCAST_API_KEY", "from-env")
	t.Setenv("PRICE_PUBLICATION_HOUR", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "abcd-1234", cfg.Solcast.SiteID)
	assert.Equal(t, "from-env", cfg.Solcast.APIKey)
	assert.Equal(t, "api_key", cfg.Solcast.AuthMode)
	assert.Equal(t, 45*time.Minute, cfg.Policy.ForecastMaxAge)
	assert.Equal(t, 4*time.Hour+30*time.Minute, cfg.Policy.DayStart)
	assert.Equal(t, 15, cfg.Policy.PricePublicationHour)
	assert.Equal(t, "postgres://solar@localhost/solar", cfg.Database.DSN)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadKeepsMidnightPublicationHour(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  price_publication_hour: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Policy.PricePublicationHour)

	t.Setenv("PRICE_PUBLICATION_HOUR", "0")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Policy.PricePublicationHour)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solcast: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadEnvDuration(t *testing.T) {
	t.Setenv("FORECAST_MAX_AGE", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.Solcast.SiteID = "site"
		cfg.Solcast.APIKey = "key"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing site", func(c *Config) { c.Solcast.SiteID = "" }},
		{"missing key", func(c *Config) { c.Solcast.APIKey = "" }},
		{"bad auth mode", func(c *Config) { c.Solcast.AuthMode = "basic" }},
		{"bad filter field", func(c *Config) { c.PSE.FilterField = "date" }},
		{"publication hour", func(c *Config) { c.Policy.PricePublicationHour = 24 }},
		{"day start", func(c *Config) { c.Policy.DayStart = 25 * time.Hour }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "token" }},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
