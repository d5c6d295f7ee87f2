package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/eligibility"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/metadata"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/sheets"
	"github.com/spf13/viper"
)

// Defaults for settings that are not part of a component's own config.
const (
	DefaultDatabasePath = "$HOME/.local/share/longbox/longbox.db"
	DefaultServerAddr   = "127.0.0.1:8420"
	DefaultCertDir      = "$HOME/.config/longbox/certs"
)

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API. With TLS set the server uses a
// self-signed localhost certificate kept in CertDir.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	CertDir string `mapstructure:"cert_dir"`
	TLS     bool   `mapstructure:"tls"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the complete runtime configuration.
type Config struct {
	Logging     LoggingConfig      `mapstructure:"logging"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Server      ServerConfig       `mapstructure:"server"`
	Metadata    metadata.Config    `mapstructure:"metadata"`
	Sheets      sheets.Config      `mapstructure:"sheets"`
	Eligibility eligibility.Policy `mapstructure:"eligibility"`
	Fees        fees.Schedule      `mapstructure:"fees"`
	Scanner     scanner.Thresholds `mapstructure:"scanner"`
}

// SetDefaults registers every default with v so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", DefaultCertDir)

	schedule := fees.DefaultSchedule()
	v.SetDefault("fees.platform_rate", schedule.PlatformRate)
	v.SetDefault("fees.processor_rate", schedule.ProcessorRate)
	v.SetDefault("fees.processor_flat_cents", schedule.ProcessorFlatCents)

	policy := eligibility.DefaultPolicy()
	v.SetDefault("eligibility.min_completed_transactions", policy.MinCompletedTransactions)
	v.SetDefault("eligibility.min_account_age_days", policy.MinAccountAgeDays)
	v.SetDefault("eligibility.dispute_window", policy.DisputeWindow)

	thresholds := scanner.DefaultThresholds()
	v.SetDefault("scanner.high", thresholds.High)
	v.SetDefault("scanner.medium", thresholds.Medium)
	v.SetDefault("scanner.max_candidates", thresholds.MaxCandidates)

	v.SetDefault("metadata.base_url", "")
	v.SetDefault("metadata.api_key", "")
	v.SetDefault("metadata.timeout", metadata.DefaultTimeout)
	v.SetDefault("metadata.cache_ttl", metadata.DefaultCacheTTL)
	v.SetDefault("metadata.rate_limit", metadata.DefaultRateLimit)
	v.SetDefault("metadata.result_limit", metadata.DefaultResultLimit)
	v.SetDefault("metadata.max_retries", metadata.DefaultMaxRetries)

	sheetsDefaults := sheets.DefaultConfig()
	v.SetDefault("sheets.client_id", "")
	v.SetDefault("sheets.client_secret", "")
	v.SetDefault("sheets.refresh_token", "")
	v.SetDefault("sheets.service_account_path", "")
	v.SetDefault("sheets.token_file", "$HOME/.config/longbox/sheets-token.json")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.spreadsheet_name", sheetsDefaults.SpreadsheetName)
	v.SetDefault("sheets.time_zone", sheetsDefaults.TimeZone)
	v.SetDefault("sheets.batch_size", sheetsDefaults.BatchSize)
	v.SetDefault("sheets.retry_attempts", sheetsDefaults.RetryAttempts)
	v.SetDefault("sheets.retry_delay", sheetsDefaults.RetryDelay)
	v.SetDefault("sheets.enable_formatting", sheetsDefaults.EnableFormatting)
}

// Load decodes v into a Config, applies GOOGLE_SHEETS_* fallbacks,
// expands paths, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	applySheetsEnv(&cfg.Sheets)

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Server.CertDir = ExpandPath(cfg.Server.CertDir)
	cfg.Sheets.ServiceAccountPath = ExpandPath(cfg.Sheets.ServiceAccountPath)
	cfg.Sheets.TokenFile = ExpandPath(cfg.Sheets.TokenFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applySheetsEnv fills unset sheets credentials from the variables
// Google tooling conventionally uses.
func applySheetsEnv(cfg *sheets.Config) {
	fallback := func(field *string, env string) {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
	fallback(&cfg.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	fallback(&cfg.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	fallback(&cfg.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	fallback(&cfg.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	fallback(&cfg.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	if v := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"); v != "" && cfg.SpreadsheetName == sheets.DefaultSpreadsheetName {
		cfg.SpreadsheetName = v
	}
}

// Validate checks the settings every command depends on. Metadata and
// sheets credentials are optional until a command needs them.
func (c *Config) Validate() error {
	var errs []error

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: database.path", common.ErrMissingConfig))
	}
	if err := c.Fees.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fees: %w", err))
	}
	if err := c.Eligibility.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("eligibility: %w", err))
	}
	if err := c.Scanner.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scanner: %w", err))
	}
	if c.Metadata.BaseURL != "" {
		if err := c.Metadata.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
