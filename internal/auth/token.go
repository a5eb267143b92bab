// Package auth provides OAuth2 bearer-token acquisition and refresh for the
// advertising API.
//
// A single TokenManager instance is shared by all extraction streams. The
// refresh-and-update sequence is guarded by a mutex so a reactive refresh
// triggered by one stream's 401 cannot race another stream's proactive
// expiry check.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// refreshMargin is the safety window before expiry within which the token is
// refreshed proactively.
const refreshMargin = 5 * time.Minute

const refreshTimeout = 60 * time.Second

// ErrAuth indicates a token refresh failure. Use errors.Is to match, and
// errors.As with *Error to inspect the provider response body.
var ErrAuth = errors.New("authentication failed")

// Error carries the provider's error response from a failed token refresh.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed: token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap makes Error match ErrAuth via errors.Is.
func (e *Error) Unwrap() error {
	return ErrAuth
}

// Token is a bearer token with its refresh bookkeeping.
type Token struct {
	AccessToken   string
	ExpiresIn     time.Duration
	LastRefreshed time.Time
}

// expiresSoon reports whether the token is absent, or within margin of expiry.
func (t Token) expiresSoon(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" || t.ExpiresIn <= 0 {
		return true
	}

	return !now.Before(t.LastRefreshed.Add(t.ExpiresIn - margin))
}

// Config holds the OAuth2 client credentials and token endpoint.
type Config struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scope        string
}

// TokenManager owns the shared AuthToken for one extraction run.
//
// Every refresh is a blocking network call to the provider's token endpoint;
// there is no caching beyond the expiry margin check.
type TokenManager struct {
	config Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	token Token
}

// NewTokenManager creates a TokenManager. A nil httpClient falls back to a
// client with the refresh timeout applied.
func NewTokenManager(config Config, httpClient *http.Client, logger *slog.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: refreshTimeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &TokenManager{
		config: config,
		client: httpClient,
		logger: logger,
		now:    time.Now,
	}
}

// AccessToken returns a valid bearer token, refreshing first when the shared
// token is absent or within the expiry margin.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.expiresSoon(m.now(), refreshMargin) {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	return m.token.AccessToken, nil
}

// ForceRefresh discards the current token and fetches a new one. Used after
// the provider rejects a request with 401.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}

	return m.token.AccessToken, nil
}

// ExpiresSoon reports whether the shared token is within the expiry margin.
// Pollers use this for the proactive refresh check at the top of each attempt.
func (m *TokenManager) ExpiresSoon() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.token.expiresSoon(m.now(), refreshMargin)
}

// refreshLocked performs the grant_type=refresh_token exchange and updates the
// shared token in place. Callers must hold m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) error {
	requestTime := m.now()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.config.RefreshToken},
		"client_id":     {m.config.ClientID},
		"client_secret": {m.config.ClientSecret},
	}

	if m.config.Scope != "" {
		form.Set("scope", m.config.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building token request: %w", ErrAuth, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: calling token endpoint: %w", ErrAuth, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading token response: %w", ErrAuth, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		m.logger.Error("OAuth token refresh failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)

		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: decoding token response: %w", ErrAuth, err)
	}

	if payload.AccessToken == "" {
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	m.token = Token{
		AccessToken:   payload.AccessToken,
		ExpiresIn:     time.Duration(payload.ExpiresIn) * time.Second,
		LastRefreshed: requestTime,
	}

	if payload.ExpiresIn == 0 {
		m.logger.Info("No expires_in received in OAuth response, token treated as short-lived")
	} else {
		m.logger.Info("OAuth authorization was successful",
			slog.Duration("expires_in", m.token.ExpiresIn),
		)
	}

	return nil
}
