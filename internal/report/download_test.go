package report

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBody(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()

	gz := gzip.NewWriter(w)
	_, err := gz.Write([]byte(payload))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
}

func TestDownloadDecodesGzipArray(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Pre-signed URLs carry no provider auth headers.
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Amazon-Advertising-API-ClientId"))

		gzipBody(t, w, `[{"date":"2024-06-01","impressions":10},{"date":"2024-06-02","impressions":20}]`)
	}))
	defer server.Close()

	downloader := NewDownloader(10*time.Second, nil)

	records, err := downloader.Download(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "2024-06-01", records[0]["date"])
	assert.Equal(t, float64(20), records[1]["impressions"])
}

func TestDownloadWrapsSingleObject(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		gzipBody(t, w, `{"date":"2024-06-01","impressions":10}`)
	}))
	defer server.Close()

	downloader := NewDownloader(10*time.Second, nil)

	records, err := downloader.Download(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "2024-06-01", records[0]["date"])
}

func TestDownloadEmptyArray(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		gzipBody(t, w, `[]`)
	}))
	defer server.Close()

	downloader := NewDownloader(10*time.Second, nil)

	records, err := downloader.Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDownloadRejectsNonGzipPayload(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"date":"2024-06-01"}]`))
	}))
	defer server.Close()

	downloader := NewDownloader(10*time.Second, nil)

	_, err := downloader.Download(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDownloadRejectsHTTPError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	downloader := NewDownloader(10*time.Second, nil)

	_, err := downloader.Download(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrDownload)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadCancelledContext(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		gzipBody(t, w, `[]`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	downloader := NewDownloader(10*time.Second, nil)

	_, err := downloader.Download(ctx, server.URL)
	require.ErrorIs(t, err, ErrDownload)
	assert.Contains(t, err.Error(), "context canceled")
}
