package report

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Downloader fetches and decodes completed report payloads.
//
// Download URLs returned by the reporting service are pre-signed S3 links;
// they must be fetched without the authenticated header set, so the
// Downloader uses its own plain HTTP client.
type Downloader struct {
	http   *http.Client
	logger *slog.Logger
}

// NewDownloader creates a Downloader with the given per-download timeout.
func NewDownloader(timeout time.Duration, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Download fetches the payload at url, decompresses it and decodes the JSON
// body into a slice of records. A top-level JSON object is wrapped into a
// single-element slice so callers always iterate uniformly.
func (d *Downloader) Download(ctx context.Context, url string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrDownload, err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		d.logger.Error("Report download failed",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)

		return nil, fmt.Errorf("%w: unexpected status %d", ErrDownload, resp.StatusCode)
	}

	reader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: opening gzip stream: %v", ErrDecode, err)
	}
	defer func() { _ = reader.Close() }()

	return decodeRecords(reader)
}

// decodeRecords decodes a JSON document that is either an array of objects
// or a single object.
func decodeRecords(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrDecode, err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%w: payload is neither object nor array: %v", ErrDecode, err)
	}

	return []map[string]any{single}, nil
}
