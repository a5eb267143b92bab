// Package adsapi provides the authenticated HTTP client shared by all
// advertising API streams.
//
// Every provider call carries the client identifier header and, when a
// profile context is active, the advertiser scope header. Report endpoints
// layer vendor-specific content types on top (see the report package).
package adsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/adstream-io/adstream/internal/auth"
)

// Provider header names. The scope header carries the advertiser profile ID.
const (
	HeaderClientID   = "Amazon-Advertising-API-ClientId"
	HeaderScope      = "Amazon-Advertising-API-Scope"
	HeaderAPIVersion = "Amazon-Ads-API-Version"
)

// Client issues authenticated requests against the advertising API.
//
// Outbound calls share a token-bucket rate limiter so parallel streams stay
// under the provider's request quota, and a single TokenManager so one token
// refresh is visible to all streams.
type Client struct {
	baseURL   string
	clientID  string
	userAgent string
	http      *http.Client
	tokens    *auth.TokenManager
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewClient creates an API client. A nil httpClient falls back to
// http.DefaultClient; per-call deadlines come from the request context.
func NewClient(cfg *ClientConfig, tokens *auth.TokenManager, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		clientID:  cfg.ClientID,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		tokens:    tokens,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:    logger,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Tokens exposes the shared token manager for callers that need explicit
// refresh control (the report poller's 401 handling).
func (c *Client) Tokens() *auth.TokenManager {
	return c.tokens
}

// Headers returns the base header set for a provider call. profileID may be
// empty for calls that are not scoped to an advertiser profile.
func (c *Client) Headers(profileID string) http.Header {
	headers := http.Header{}
	headers.Set(HeaderClientID, c.clientID)
	headers.Set("Accept", "application/json")

	if c.userAgent != "" {
		headers.Set("User-Agent", c.userAgent)
	}

	if profileID != "" {
		headers.Set(HeaderScope, profileID)
	}

	return headers
}

// Request describes one provider call. ContentType overrides the default
// Accept/Content-Type pair with a vendor media type when set.
type Request struct {
	Method      string
	Path        string
	ProfileID   string
	ContentType string
	Accept      string
	Body        any
	Header      http.Header
}

// Do executes the request and returns the raw response. The caller owns the
// response body.
//
// The prepared request never carries Content-Type or Content-Length on GET;
// the provider API rejects GET requests with entity headers.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader

	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	httpReq.Header = c.Headers(req.ProfileID)

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Set(key, value)
		}
	}

	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}

	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)

	if req.Method == http.MethodGet {
		httpReq.Header.Del("Content-Type")
		httpReq.Header.Del("Content-Length")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	return resp, nil
}

// DrainBody reads and closes a response body, returning its contents for
// error reporting. Failures surface as an empty slice; the body is always
// closed.
func DrainBody(resp *http.Response) []byte {
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	return body
}

// LogFailedRequest logs full request/response context for a provider-side
// rejection to support debugging.
func (c *Client) LogFailedRequest(req Request, resp *http.Response, body []byte) {
	c.logger.Error("API request failed",
		slog.String("method", req.Method),
		slog.String("url", c.baseURL+req.Path),
		slog.String("profile_id", req.ProfileID),
		slog.Int("status", resp.StatusCode),
		slog.String("content_type", resp.Header.Get("Content-Type")),
		slog.String("body", string(body)),
	)
}
