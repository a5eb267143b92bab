package adsapi

import (
	"time"

	"github.com/adstream-io/adstream/internal/config"
)

const (
	defaultRequestsPerSecond = 5
	defaultBurst             = 10
	defaultStatusTimeout     = 30 * time.Second
	defaultDownloadTimeout   = 60 * time.Second
)

// ClientConfig holds outbound HTTP client settings.
type ClientConfig struct {
	BaseURL   string
	ClientID  string
	UserAgent string

	// RequestsPerSecond and Burst shape the shared token-bucket limiter
	// applied to every provider call.
	RequestsPerSecond int
	Burst             int

	// StatusTimeout guards report status checks; DownloadTimeout guards
	// payload downloads. Both are per-call deadlines independent of the
	// poller's attempt budget.
	StatusTimeout   time.Duration
	DownloadTimeout time.Duration
}

// LoadClientConfig loads client settings from environment variables with
// fallback to defaults. BaseURL, ClientID and UserAgent come from the
// extractor config and are set by the caller.
func LoadClientConfig() *ClientConfig {
	return &ClientConfig{
		RequestsPerSecond: config.GetEnvInt("ADSTREAM_API_RPS", defaultRequestsPerSecond),
		Burst:             config.GetEnvInt("ADSTREAM_API_BURST", defaultBurst),
		StatusTimeout:     config.GetEnvDuration("ADSTREAM_STATUS_TIMEOUT", defaultStatusTimeout),
		DownloadTimeout:   config.GetEnvDuration("ADSTREAM_DOWNLOAD_TIMEOUT", defaultDownloadTimeout),
	}
}
