package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/adstream-io/adstream/internal/adsapi"
)

const (
	statusMediaType = "application/vnd.getasyncreportresponse.v3+json"

	// DefaultMaxAttempts bounds the polling loop. With the 60s backoff cap
	// this allows several hours of report generation time.
	DefaultMaxAttempts = 200

	// backoffCap limits the exponential backoff between status checks.
	backoffCap = 60 * time.Second

	// jitterSpan is the width of the uniform jitter added to each backoff
	// sleep, de-synchronizing parallel report streams.
	jitterSpan = 2 * time.Second

	// authRetrySleep follows a 401-triggered token refresh.
	authRetrySleep = 2 * time.Second

	// transportRetrySleep follows transient HTTP or network failures.
	transportRetrySleep = 5 * time.Second

	// defaultRetryAfter applies when a 429 response omits the Retry-After
	// header.
	defaultRetryAfter = 60 * time.Second
)

// Poller drives a report job to a terminal status.
//
// Every retry consumes one attempt, including 401 and 429 retries, so the
// single maxAttempts budget bounds the loop even when token refreshes fail
// repeatedly.
type Poller struct {
	client        *adsapi.Client
	logger        *slog.Logger
	maxAttempts   int
	statusTimeout time.Duration

	// sleep and jitter are injectable for deterministic tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewPoller creates a Poller. maxAttempts <= 0 falls back to
// DefaultMaxAttempts.
func NewPoller(client *adsapi.Client, statusTimeout time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		client:        client,
		logger:        logger,
		maxAttempts:   maxAttempts,
		statusTimeout: statusTimeout,
		sleep:         sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(jitterSpan))) //nolint:gosec // jitter, not crypto
		},
	}
}

// Poll checks the job status until a terminal state is reached or the
// attempt budget is exhausted. It returns the terminal status and, for
// COMPLETED, the payload download URL.
//
// Poll only returns a non-nil error when the context is cancelled; all
// provider-side outcomes are reported through the status so callers can log
// and move on without crashing the extraction run.
func (p *Poller) Poll(ctx context.Context, reportID, profileID string) (Status, string, error) {
	p.logger.Info("Polling report status", slog.String("report_id", reportID))

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if p.client.Tokens().ExpiresSoon() {
			p.logger.Info("Refreshing access token before expiry", slog.String("report_id", reportID))

			if _, err := p.client.Tokens().ForceRefresh(ctx); err != nil {
				p.logger.Warn("Access-token refresh pre-check failed",
					slog.String("report_id", reportID),
					slog.String("error", err.Error()),
				)
			}
		}

		status, url, retry, err := p.checkOnce(ctx, reportID, profileID, attempt)
		if err != nil {
			return StatusFailed, "", err
		}

		if !retry {
			return status, url, nil
		}
	}

	return StatusTimeout, "", nil
}

// checkOnce performs a single status request and classifies the outcome.
// retry=true means the loop should continue with the next attempt; err is
// only set for context cancellation.
func (p *Poller) checkOnce(ctx context.Context, reportID, profileID string, attempt int) (Status, string, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.statusTimeout)
	defer cancel()

	resp, err := p.client.Do(callCtx, adsapi.Request{
		Method:    http.MethodGet,
		Path:      reportsPath + "/" + reportID,
		ProfileID: profileID,
		Accept:    statusMediaType,
	})
	if err != nil {
		if ctx.Err() != nil {
			return StatusFailed, "", false, ctx.Err()
		}

		p.logger.Error("Request error polling report",
			slog.String("report_id", reportID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		return p.retryTransport(ctx, reportID, attempt)
	}

	body := adsapi.DrainBody(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return p.retryUnauthorized(ctx, reportID)

	case resp.StatusCode == http.StatusTooManyRequests:
		return p.retryRateLimited(ctx, reportID, resp.Header.Get("Retry-After"))

	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		p.logger.Error("HTTP error polling report",
			slog.String("report_id", reportID),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt),
			slog.String("body", string(body)),
		)

		return p.retryTransport(ctx, reportID, attempt)
	}

	var state struct {
		Status        Status `json:"status"`
		URL           string `json:"url"`
		FailureReason string `json:"failureReason"`
	}

	if err := json.Unmarshal(body, &state); err != nil {
		p.logger.Error("Unparseable status response",
			slog.String("report_id", reportID),
			slog.String("body", string(body)),
		)

		return p.retryTransport(ctx, reportID, attempt)
	}

	switch state.Status {
	case StatusCompleted:
		if state.URL == "" {
			// A completed report without a download URL is a provider
			// defect, not a retryable condition.
			p.logger.Error("Completed report missing URL", slog.String("report_id", reportID))

			return StatusFailed, "", false, nil
		}

		return StatusCompleted, state.URL, false, nil

	case StatusFailure, StatusCancelled:
		p.logger.Error("Report failed",
			slog.String("report_id", reportID),
			slog.String("status", string(state.Status)),
			slog.String("failure_reason", state.FailureReason),
		)

		return state.Status, "", false, nil

	case StatusPending, StatusInProgress, StatusTimeout, StatusFailed:
	}

	wait := backoffDelay(attempt) + p.jitter()

	p.logger.Debug("Report not ready",
		slog.String("report_id", reportID),
		slog.String("status", string(state.Status)),
		slog.Int("attempt", attempt),
		slog.Duration("sleep", wait),
	)

	if err := p.sleep(ctx, wait); err != nil {
		return StatusFailed, "", false, err
	}

	return "", "", true, nil
}

// retryUnauthorized force-refreshes the shared token after a 401 and retries.
func (p *Poller) retryUnauthorized(ctx context.Context, reportID string) (Status, string, bool, error) {
	p.logger.Warn("401 Unauthorized, refreshing token and retrying", slog.String("report_id", reportID))

	if _, err := p.client.Tokens().ForceRefresh(ctx); err != nil {
		p.logger.Error("Token refresh after 401 failed",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()),
		)
	}

	if err := p.sleep(ctx, authRetrySleep); err != nil {
		return StatusFailed, "", false, err
	}

	return "", "", true, nil
}

// retryRateLimited honors the server-directed Retry-After delay.
func (p *Poller) retryRateLimited(ctx context.Context, reportID, retryAfter string) (Status, string, bool, error) {
	wait := defaultRetryAfter

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		wait = time.Duration(seconds) * time.Second
	}

	p.logger.Info("429 Too Many Requests, waiting",
		slog.String("report_id", reportID),
		slog.Duration("retry_after", wait),
	)

	if err := p.sleep(ctx, wait); err != nil {
		return StatusFailed, "", false, err
	}

	return "", "", true, nil
}

// retryTransport sleeps the fixed transport-retry delay, returning FAILED on
// the final attempt.
func (p *Poller) retryTransport(ctx context.Context, reportID string, attempt int) (Status, string, bool, error) {
	if attempt == p.maxAttempts {
		return StatusFailed, "", false, nil
	}

	if err := p.sleep(ctx, transportRetrySleep); err != nil {
		return StatusFailed, "", false, err
	}

	return "", "", true, nil
}

// backoffDelay is the capped exponential backoff before the next status
// check: min(2^attempt, 60) seconds.
func backoffDelay(attempt int) time.Duration {
	const capExponent = 6 // 2^6 = 64 > 60s cap

	if attempt >= capExponent {
		return backoffCap
	}

	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > backoffCap {
		return backoffCap
	}

	return delay
}

// sleepContext sleeps for d, waking early if the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
