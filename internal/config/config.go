package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the default location for the extractor configuration file.
// Uses hidden file format following common tool conventions (.eslintrc, .prettierrc, etc.).
const DefaultConfigPath = ".adstream.yaml"

// ConfigPathEnvVar is the environment variable name for custom config path.
const ConfigPathEnvVar = "ADSTREAM_CONFIG_PATH"

// Provider defaults for the advertising API and its OAuth2 token endpoint.
const (
	defaultAPIBaseURL    = "https://advertising-api.amazon.com"
	defaultOAuthEndpoint = "https://api.amazon.com/auth/o2/token"
	defaultOAuthScope    = "advertising::campaign_management"
	defaultUserAgent     = "adstream/1.0.0"
	defaultLookbackDays  = 30
)

// Sentinel errors for extractor configuration validation.
var (
	// ErrClientIDEmpty is returned when the OAuth client ID is missing.
	ErrClientIDEmpty = errors.New("client ID cannot be empty")

	// ErrClientSecretEmpty is returned when the OAuth client secret is missing.
	ErrClientSecretEmpty = errors.New("client secret cannot be empty")

	// ErrRefreshTokenEmpty is returned when the OAuth refresh token is missing.
	ErrRefreshTokenEmpty = errors.New("refresh token cannot be empty")

	// ErrNoProfileIDs is returned when no advertiser profile IDs are configured.
	ErrNoProfileIDs = errors.New("at least one profile ID is required")

	// ErrInvalidStartDate is returned when the configured start date is not YYYY-MM-DD.
	ErrInvalidStartDate = errors.New("start date must be in YYYY-MM-DD format")
)

// Extractor holds the full extraction run configuration.
//
// Values are seeded from an optional YAML file (see DefaultConfigPath) and
// overridden by ADSTREAM_* environment variables, so credentials can stay out
// of files in containerized deployments.
//
//nolint:tagliatelle // snake_case is intentional for YAML config files
type Extractor struct {
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RefreshToken  string   `yaml:"refresh_token"`
	ProfileIDs    []string `yaml:"profile_ids"`
	APIBaseURL    string   `yaml:"api_url"`
	OAuthEndpoint string   `yaml:"auth_endpoint"`
	OAuthScope    string   `yaml:"permission_scope"`
	UserAgent     string   `yaml:"user_agent"`

	// LookbackDays bounds the report date window: [today-LookbackDays, today].
	LookbackDays int `yaml:"lookback_days"`

	// StartDate is the incremental replication floor for report streams,
	// in YYYY-MM-DD format. Empty means full lookback window.
	StartDate string `yaml:"start_date"`
}

// LoadExtractor loads extractor configuration from the YAML file at path,
// then applies environment variable overrides and defaults.
//
// Behavior:
//   - Missing file is not an error - env-only configuration is supported
//   - Invalid YAML logs a warning and continues with env-only values
//     (graceful degradation, matching the optional nature of the file)
func LoadExtractor(path string) *Extractor {
	cfg := &Extractor{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read config file, continuing with env-only configuration",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Warn("Failed to parse config file, continuing with env-only configuration",
				slog.String("path", path),
				slog.String("error", err.Error()))

			cfg = &Extractor{}
		}
	}

	cfg.ClientID = GetEnvStr("ADSTREAM_CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = GetEnvStr("ADSTREAM_CLIENT_SECRET", cfg.ClientSecret)
	cfg.RefreshToken = GetEnvStr("ADSTREAM_REFRESH_TOKEN", cfg.RefreshToken)

	if profiles := GetEnvStr("ADSTREAM_PROFILE_IDS", ""); profiles != "" {
		cfg.ProfileIDs = ParseCommaSeparatedList(profiles)
	}

	cfg.APIBaseURL = GetEnvStr("ADSTREAM_API_URL", defaultIfEmpty(cfg.APIBaseURL, defaultAPIBaseURL))
	cfg.OAuthEndpoint = GetEnvStr("ADSTREAM_AUTH_ENDPOINT", defaultIfEmpty(cfg.OAuthEndpoint, defaultOAuthEndpoint))
	cfg.OAuthScope = GetEnvStr("ADSTREAM_PERMISSION_SCOPE", defaultIfEmpty(cfg.OAuthScope, defaultOAuthScope))
	cfg.UserAgent = GetEnvStr("ADSTREAM_USER_AGENT", defaultIfEmpty(cfg.UserAgent, defaultUserAgent))
	cfg.StartDate = GetEnvStr("ADSTREAM_START_DATE", cfg.StartDate)

	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}

	cfg.LookbackDays = GetEnvInt("ADSTREAM_LOOKBACK_DAYS", cfg.LookbackDays)

	return cfg
}

// LoadExtractorFromEnv loads config from the path specified in ADSTREAM_CONFIG_PATH
// environment variable. Falls back to ".adstream.yaml" in current directory if not set.
func LoadExtractorFromEnv() *Extractor {
	path := GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadExtractor(path)
}

// Validate checks that all required credentials and scopes are present.
func (c *Extractor) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrClientIDEmpty
	}

	if strings.TrimSpace(c.ClientSecret) == "" {
		return ErrClientSecretEmpty
	}

	if strings.TrimSpace(c.RefreshToken) == "" {
		return ErrRefreshTokenEmpty
	}

	if len(c.ProfileIDs) == 0 {
		return ErrNoProfileIDs
	}

	if c.StartDate != "" {
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidStartDate, c.StartDate)
		}
	}

	return nil
}

// MaskedClientID returns the client ID with all but the last 4 characters hidden,
// safe for log output.
func (c *Extractor) MaskedClientID() string {
	const visible = 4

	if len(c.ClientID) <= visible {
		return "****"
	}

	return strings.Repeat("*", len(c.ClientID)-visible) + c.ClientID[len(c.ClientID)-visible:]
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
