package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigWindow(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	now := time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)

	cfg := Config{LookbackDays: 30}
	start, end := cfg.Window(now)

	assert.Equal(t, "2024-05-16", start)
	assert.Equal(t, "2024-06-15", end)

	cfg.LookbackDays = 0
	start, end = cfg.Window(now)

	assert.Equal(t, end, start)
}

func TestStatusIsTerminal(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	terminal := []Status{StatusCompleted, StatusFailure, StatusCancelled, StatusTimeout, StatusFailed}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), string(status))
	}

	for _, status := range []Status{StatusPending, StatusInProgress, Status("UNKNOWN")} {
		assert.False(t, status.IsTerminal(), string(status))
	}
}

func TestStockReports(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	configs := StockReports()
	assert.Len(t, configs, 5)

	seen := map[string]bool{}

	for _, cfg := range configs {
		assert.False(t, seen[cfg.Name], "duplicate stream name %s", cfg.Name)
		seen[cfg.Name] = true

		assert.NotEmpty(t, cfg.NamePrefix, cfg.Name)
		assert.NotEmpty(t, cfg.ReportTypeID, cfg.Name)
		assert.NotEmpty(t, cfg.Schema, cfg.Name)
		assert.NotEmpty(t, cfg.PrimaryKeys, cfg.Name)
		assert.Equal(t, "date", cfg.ReplicationKey, cfg.Name)

		// Request columns are derived from the schema.
		assert.Equal(t, columnNames(cfg.Schema), cfg.Columns, cfg.Name)

		for _, key := range cfg.PrimaryKeys {
			found := false

			for _, field := range cfg.Schema {
				if field.Name == key {
					found = true

					break
				}
			}

			assert.True(t, found, "%s: primary key %s missing from schema", cfg.Name, key)
		}
	}

	assert.True(t, seen["campaign_performance_report"])
	assert.True(t, seen["search_terms_report"])
	assert.True(t, seen["advertised_product_report"])
	assert.True(t, seen["keywords_targeting_summary_report"])
	assert.True(t, seen["sd_advertised_product_report"])
}
