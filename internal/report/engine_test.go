package report

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adstream-io/adstream/internal/sink"
	"github.com/adstream-io/adstream/internal/state"
)

// memorySink captures emitted records for assertions.
type memorySink struct {
	mutex   sync.Mutex
	records []sink.Record
}

func (m *memorySink) Emit(_ context.Context, record sink.Record) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records = append(m.records, record)

	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) snapshot() []sink.Record {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]sink.Record(nil), m.records...)
}

// reportFixture scripts one report stream end to end on a single test
// server: create, status and payload download.
type reportFixture struct {
	reportID string
	payload  string
	// failSubmit makes report creation return 500 for this stream.
	failSubmit bool
}

// lifecycleHandler serves the report API for fixtures keyed by report-name
// prefix, so concurrently-submitting streams get their own fixture. Download
// URLs point back at the same server.
func lifecycleHandler(t *testing.T, fixtures map[string]reportFixture) http.HandlerFunc {
	t.Helper()

	byID := make(map[string]reportFixture, len(fixtures))
	for _, fixture := range fixtures {
		byID[fixture.reportID] = fixture
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == reportsPath:
			var payload struct {
				Name string `json:"name"`
			}

			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decoding submission payload: %v", err)
				http.Error(w, "bad payload", http.StatusBadRequest)

				return
			}

			for prefix, fixture := range fixtures {
				if !strings.HasPrefix(payload.Name, prefix) {
					continue
				}

				if fixture.failSubmit {
					http.Error(w, `{"message":"internal"}`, http.StatusInternalServerError)

					return
				}

				_, _ = w.Write([]byte(`{"reportId":"` + fixture.reportID + `"}`))

				return
			}

			t.Errorf("no fixture matches report name %q", payload.Name)
			http.Error(w, "no fixture", http.StatusBadRequest)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, reportsPath+"/"):
			id := strings.TrimPrefix(r.URL.Path, reportsPath+"/")

			if _, ok := byID[id]; !ok {
				t.Errorf("status check for unknown report %q", id)
				http.Error(w, "unknown report", http.StatusNotFound)

				return
			}

			_, _ = w.Write([]byte(`{"status":"COMPLETED","url":"http://` + r.Host + `/payloads/` + id + `"}`))

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/payloads/"):
			fixture, ok := byID[strings.TrimPrefix(r.URL.Path, "/payloads/")]
			if !ok {
				http.Error(w, "unknown payload", http.StatusNotFound)

				return
			}

			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(fixture.payload))
			_ = gz.Close()

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.Error(w, "unexpected", http.StatusNotFound)
		}
	}
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) (*Engine, *memorySink, *state.MemoryStore) {
	t.Helper()

	client, _ := newTestClient(t, handler)

	submitter := NewSubmitter(client, nil)

	poller := NewPoller(client, 30*time.Second, 5, nil)
	poller.sleep = noSleep(nil)
	poller.jitter = func() time.Duration { return 0 }

	store := state.NewMemoryStore()
	captured := &memorySink{}

	engine := NewEngine(
		submitter,
		poller,
		NewDownloader(10*time.Second, nil),
		NewNormalizer(nil),
		store,
		captured,
		nil,
	)
	engine.sleep = noSleep(nil)
	engine.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	return engine, captured, store
}

func TestRunStreamFullLifecycle(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testReportConfig()

	fixtures := map[string]reportFixture{
		cfg.NamePrefix: {
			reportID: "rid-main",
			payload: `[{"date":"2024-06-01","campaignId":"c-1","impressions":10,"clicks":1,"cost":0.5},` +
				`{"date":"2024-06-02","campaignId":"c-1","impressions":20,"clicks":2,"cost":1.5}]`,
		},
	}

	engine, captured, store := newTestEngine(t, lifecycleHandler(t, fixtures))

	require.NoError(t, engine.RunStream(context.Background(), cfg, "profile-1"))

	records := captured.snapshot()
	require.Len(t, records, 2)

	assert.Equal(t, cfg.Name, records[0].Stream)
	assert.Equal(t, "profile-1", records[0].ProfileID)
	assert.Equal(t, "2024-06-01", records[0].Data["date"])
	assert.Equal(t, int64(10), records[0].Data["impressions"])
	assert.Equal(t, engine.now().UTC(), records[0].EmittedAt)

	watermark, err := store.Get(context.Background(), cfg.Name, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", watermark)
}

func TestRunStreamSuppressesDeliveredRecordsOnRerun(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testReportConfig()

	fixtures := map[string]reportFixture{
		cfg.NamePrefix: {
			reportID: "rid-main",
			payload: `[{"date":"2024-06-01","campaignId":"c-1","impressions":10,"clicks":1,"cost":0.5},` +
				`{"date":"2024-06-02","campaignId":"c-1","impressions":20,"clicks":2,"cost":1.5}]`,
		},
	}

	engine, captured, store := newTestEngine(t, lifecycleHandler(t, fixtures))

	require.NoError(t, engine.RunStream(context.Background(), cfg, "profile-1"))
	require.NoError(t, engine.RunStream(context.Background(), cfg, "profile-1"))

	// The second run replays the same payload; everything at or before the
	// advanced watermark is suppressed.
	assert.Len(t, captured.snapshot(), 2)

	watermark, err := store.Get(context.Background(), cfg.Name, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", watermark)
}

func TestRunStreamSeedsInitialWatermark(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testReportConfig()

	fixtures := map[string]reportFixture{
		cfg.NamePrefix: {
			reportID: "rid-main",
			payload: `[{"date":"2024-06-01","campaignId":"c-1","impressions":10,"clicks":1,"cost":0.5},` +
				`{"date":"2024-06-02","campaignId":"c-1","impressions":20,"clicks":2,"cost":1.5}]`,
		},
	}

	engine, captured, _ := newTestEngine(t, lifecycleHandler(t, fixtures))
	engine.InitialWatermark = "2024-06-01"

	require.NoError(t, engine.RunStream(context.Background(), cfg, "profile-1"))

	records := captured.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "2024-06-02", records[0].Data["date"])
}

func TestRunStreamTimeoutReturnsError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testReportConfig()

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"reportId":"rid-stuck"}`))

			return
		}

		_, _ = w.Write([]byte(`{"status":"IN_PROGRESS"}`))
	}

	engine, captured, store := newTestEngine(t, handler)

	err := engine.RunStream(context.Background(), cfg, "profile-1")
	require.ErrorIs(t, err, ErrPollTimeout)

	assert.Empty(t, captured.snapshot())

	watermark, storeErr := store.Get(context.Background(), cfg.Name, "profile-1")
	require.NoError(t, storeErr)
	assert.Empty(t, watermark, "a failed stream must not advance its watermark")
}

func TestRunIsolatesStreamFailures(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	good := testReportConfig()

	bad := testReportConfig()
	bad.Name = "search_terms_report"
	bad.NamePrefix = "SP_Search_Term"

	fixtures := map[string]reportFixture{
		good.NamePrefix: {
			reportID: "rid-good",
			payload:  `[{"date":"2024-06-01","campaignId":"c-1","impressions":10,"clicks":1,"cost":0.5}]`,
		},
		bad.NamePrefix: {reportID: "rid-bad", failSubmit: true},
	}

	engine, captured, store := newTestEngine(t, lifecycleHandler(t, fixtures))

	err := engine.Run(context.Background(), []Config{good, bad}, []string{"profile-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 report stream run(s) failed")

	// The healthy stream still delivered and advanced its watermark.
	require.Len(t, captured.snapshot(), 1)

	watermark, storeErr := store.Get(context.Background(), good.Name, "profile-1")
	require.NoError(t, storeErr)
	assert.Equal(t, "2024-06-01", watermark)
}

func TestRunCoversEveryProfile(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testReportConfig()

	fixtures := map[string]reportFixture{
		cfg.NamePrefix: {
			reportID: "rid-main",
			payload:  `[{"date":"2024-06-01","campaignId":"c-1","impressions":10,"clicks":1,"cost":0.5}]`,
		},
	}

	engine, captured, _ := newTestEngine(t, lifecycleHandler(t, fixtures))

	require.NoError(t, engine.Run(context.Background(), []Config{cfg}, []string{"profile-1", "profile-2"}))

	records := captured.snapshot()
	require.Len(t, records, 2)

	profiles := map[string]bool{}
	for _, record := range records {
		profiles[record.ProfileID] = true
	}

	assert.True(t, profiles["profile-1"])
	assert.True(t, profiles["profile-2"])
}
