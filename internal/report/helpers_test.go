package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adstream-io/adstream/internal/adsapi"
	"github.com/adstream-io/adstream/internal/auth"
)

const testTokenPath = "/oauth/token"

// newTestClient builds an API client against a test server that serves
// tokens at testTokenPath and delegates every other request to handler. The
// returned counter tracks token refreshes.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*adsapi.Client, *int) {
	t.Helper()

	refreshes := 0

	mux := http.NewServeMux()
	mux.HandleFunc(testTokenPath, func(w http.ResponseWriter, _ *http.Request) {
		refreshes++

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":3600}`))
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tokens := auth.NewTokenManager(auth.Config{
		Endpoint:     server.URL + testTokenPath,
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RefreshToken: "test-refresh",
	}, nil, nil)

	cfg := &adsapi.ClientConfig{
		BaseURL:           server.URL,
		ClientID:          "test-client",
		UserAgent:         "adstream-test/1.0",
		RequestsPerSecond: 1000,
		Burst:             1000,
	}

	return adsapi.NewClient(cfg, tokens, nil, nil), &refreshes
}

// noSleep replaces real sleeps in tests, recording requested durations.
func noSleep(durations *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if durations != nil {
			*durations = append(*durations, d)
		}

		return nil
	}
}

func testReportConfig() Config {
	return Config{
		Name:         "campaign_performance_report",
		NamePrefix:   "Campaign_Performance",
		AdProduct:    "SPONSORED_PRODUCTS",
		GroupBy:      []string{"campaign"},
		Columns:      []string{"date", "campaignId", "impressions", "clicks", "cost"},
		ReportTypeID: "spCampaigns",
		TimeUnit:     "DAILY",
		Format:       "GZIP_JSON",
		Schema: []Field{
			{Name: "date", Kind: KindString, Format: "date"},
			{Name: "campaignId", Kind: KindString},
			{Name: "impressions", Kind: KindInteger},
			{Name: "clicks", Kind: KindInteger},
			{Name: "cost", Kind: KindNumber},
		},
		PrimaryKeys:    []string{"campaignId", "date"},
		ReplicationKey: "date",
		LookbackDays:   30,
	}
}
