package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRecords(out *[]map[string]any) func(map[string]any) error {
	return func(record map[string]any) error {
		*out = append(*out, record)

		return nil
	}
}

func TestNormalizeShapesRecordsToSchema(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	normalizer := NewNormalizer(nil)
	cfg := testReportConfig()

	raw := []map[string]any{
		{
			"date":        "2024-06-01",
			"campaignId":  float64(42),
			"impressions": "12.0",
			"clicks":      float64(3),
			"cost":        "1.25",
			"unexpected":  "dropped",
		},
	}

	var records []map[string]any

	require.NoError(t, normalizer.Normalize(raw, cfg, "", collectRecords(&records)))
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "2024-06-01", record["date"])
	assert.Equal(t, float64(42), record["campaignId"])
	assert.Equal(t, int64(12), record["impressions"])
	assert.Equal(t, int64(3), record["clicks"])
	assert.Equal(t, 1.25, record["cost"])
	assert.NotContains(t, record, "unexpected")
}

func TestNormalizeMissingFieldsComeThroughNil(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	normalizer := NewNormalizer(nil)
	cfg := testReportConfig()

	var records []map[string]any

	require.NoError(t, normalizer.Normalize(
		[]map[string]any{{"date": "2024-06-01"}},
		cfg, "", collectRecords(&records),
	))
	require.Len(t, records, 1)

	assert.Contains(t, records[0], "impressions")
	assert.Nil(t, records[0]["impressions"])
	assert.Nil(t, records[0]["cost"])
}

func TestNormalizeWatermarkFilter(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	normalizer := NewNormalizer(nil)
	cfg := testReportConfig()

	raw := []map[string]any{
		{"date": "2024-06-01"},
		{"date": "2024-06-02"},
		{"date": "2024-06-03"},
		{"date": "not-a-date"},
	}

	tests := []struct {
		name      string
		watermark string
		wantDates []any
	}{
		{
			name:      "empty watermark emits everything",
			watermark: "",
			wantDates: []any{"2024-06-01", "2024-06-02", "2024-06-03", "not-a-date"},
		},
		{
			name:      "records at or before the watermark are suppressed",
			watermark: "2024-06-02",
			wantDates: []any{"2024-06-03", "not-a-date"},
		},
		{
			name:      "watermark past all records suppresses parseable dates only",
			watermark: "2024-06-30",
			wantDates: []any{"not-a-date"},
		},
		{
			name:      "unparseable watermark disables the filter",
			watermark: "yesterday",
			wantDates: []any{"2024-06-01", "2024-06-02", "2024-06-03", "not-a-date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []map[string]any

			require.NoError(t, normalizer.Normalize(raw, cfg, tt.watermark, collectRecords(&records)))

			dates := make([]any, 0, len(records))
			for _, record := range records {
				dates = append(dates, record["date"])
			}

			assert.Equal(t, tt.wantDates, dates)
		})
	}
}

func TestNormalizeEmitErrorStops(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	normalizer := NewNormalizer(nil)
	cfg := testReportConfig()

	raw := []map[string]any{
		{"date": "2024-06-01"},
		{"date": "2024-06-02"},
	}

	sinkErr := errors.New("sink unavailable")
	emitted := 0

	err := normalizer.Normalize(raw, cfg, "", func(map[string]any) error {
		emitted++

		return sinkErr
	})

	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 1, emitted)
}

func TestCoerce(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name  string
		value any
		kind  FieldKind
		want  any
	}{
		{name: "nil stays nil", value: nil, kind: KindInteger, want: nil},
		{name: "float to integer truncates", value: float64(12.0), kind: KindInteger, want: int64(12)},
		{name: "decimal string to integer", value: "12.0", kind: KindInteger, want: int64(12)},
		{name: "garbage to integer", value: "abc", kind: KindInteger, want: nil},
		{name: "bool to integer", value: true, kind: KindInteger, want: nil},
		{name: "float to number", value: float64(1.5), kind: KindNumber, want: 1.5},
		{name: "string to number", value: "2.75", kind: KindNumber, want: 2.75},
		{name: "garbage to number", value: "abc", kind: KindNumber, want: nil},
		{name: "string passthrough", value: "hello", kind: KindString, want: "hello"},
		{name: "non-string passthrough for string kind", value: float64(7), kind: KindString, want: float64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerce(tt.value, tt.kind))
		})
	}
}
