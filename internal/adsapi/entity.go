package adsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Entity list endpoints page through results with a nextToken cursor and cap
// each page at this many records.
const listPageSize = 100

// EntityStream describes one direct list endpoint (campaigns, ad groups,
// keywords, ...). These streams do not use the async report lifecycle; they
// share the base request/auth contract with the report engine.
type EntityStream struct {
	// Name identifies the stream in emitted records and log output.
	Name string

	// Path is the POST list endpoint, e.g. "/sp/campaigns/list".
	Path string

	// RecordsKey is the response field holding the record array.
	RecordsKey string

	// MediaType is the vendor content type for both Accept and Content-Type,
	// e.g. "application/vnd.spCampaign.v3+json".
	MediaType string

	// PrimaryKeys are the fields forming the record identity downstream.
	PrimaryKeys []string

	// Payload is the base list request body. The lister adds nextToken for
	// subsequent pages.
	Payload map[string]any
}

// stateFilter is the shared list filter covering every campaign state.
func stateFilter() map[string]any {
	return map[string]any{
		"include": []string{"ENABLED", "PAUSED", "ARCHIVED"},
	}
}

// EntityStreams returns the stock entity list streams for sponsored products.
func EntityStreams() []EntityStream {
	return []EntityStream{
		{
			Name:        "campaigns",
			Path:        "/sp/campaigns/list",
			RecordsKey:  "campaigns",
			MediaType:   "application/vnd.spCampaign.v3+json",
			PrimaryKeys: []string{"campaignId"},
			Payload: map[string]any{
				"stateFilter": stateFilter(),
				"maxResults":  listPageSize,
			},
		},
		{
			Name:        "adgroups",
			Path:        "/sp/adGroups/list",
			RecordsKey:  "adGroups",
			MediaType:   "application/vnd.spAdGroup.v3+json",
			PrimaryKeys: []string{"adGroupId"},
			Payload: map[string]any{
				"stateFilter":               stateFilter(),
				"includeExtendedDataFields": true,
				"maxResults":                listPageSize,
			},
		},
		{
			Name:        "keywords",
			Path:        "/sp/keywords/list",
			RecordsKey:  "keywords",
			MediaType:   "application/vnd.spKeyword.v3+json",
			PrimaryKeys: []string{"keywordId"},
			Payload: map[string]any{
				"stateFilter":               stateFilter(),
				"includeExtendedDataFields": true,
				"maxResults":                listPageSize,
			},
		},
		{
			Name:        "targets",
			Path:        "/sp/targets/list",
			RecordsKey:  "targetingClauses",
			MediaType:   "application/vnd.spTargetingClause.v3+json",
			PrimaryKeys: []string{"targetId"},
			Payload: map[string]any{
				"stateFilter": stateFilter(),
				"maxResults":  listPageSize,
			},
		},
		{
			Name:        "negative_keywords",
			Path:        "/sp/negativeKeywords/list",
			RecordsKey:  "negativeKeywords",
			MediaType:   "application/vnd.spNegativeKeyword.v3+json",
			PrimaryKeys: []string{"keywordId"},
			Payload: map[string]any{
				"stateFilter": stateFilter(),
				"maxResults":  listPageSize,
			},
		},
		{
			Name:        "productads",
			Path:        "/sp/productAds/list",
			RecordsKey:  "productAds",
			MediaType:   "application/vnd.spProductAd.v3+json",
			PrimaryKeys: []string{"adId"},
			Payload: map[string]any{
				"stateFilter": stateFilter(),
				"maxResults":  listPageSize,
			},
		},
	}
}

// Lister pages through entity list endpoints for one advertiser profile.
type Lister struct {
	client *Client
	logger *slog.Logger
}

// NewLister creates a Lister on the shared API client.
func NewLister(client *Client, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}

	return &Lister{client: client, logger: logger}
}

// List issues one full paginated traversal of the stream for profileID,
// calling emit for each record in page order. Returns the first emit or
// transport error.
func (l *Lister) List(ctx context.Context, stream EntityStream, profileID string, emit func(map[string]any) error) error {
	nextToken := ""

	for {
		payload := make(map[string]any, len(stream.Payload)+1)
		for key, value := range stream.Payload {
			payload[key] = value
		}

		if nextToken != "" {
			payload["nextToken"] = nextToken
		}

		req := Request{
			Method:      http.MethodPost,
			Path:        stream.Path,
			ProfileID:   profileID,
			ContentType: stream.MediaType,
			Accept:      stream.MediaType,
			Body:        payload,
		}

		resp, err := l.client.Do(ctx, req)
		if err != nil {
			return fmt.Errorf("listing %s: %w", stream.Name, err)
		}

		body := DrainBody(resp)

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			l.client.LogFailedRequest(req, resp, body)

			return fmt.Errorf("listing %s: unexpected status %d", stream.Name, resp.StatusCode)
		}

		var page struct {
			NextToken string `json:"nextToken"`
		}

		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("decoding %s page: %w", stream.Name, err)
		}

		records, err := extractRecords(body, stream.RecordsKey)
		if err != nil {
			return fmt.Errorf("decoding %s records: %w", stream.Name, err)
		}

		for _, record := range records {
			if err := emit(record); err != nil {
				return err
			}
		}

		l.logger.Debug("Listed entity page",
			slog.String("stream", stream.Name),
			slog.String("profile_id", profileID),
			slog.Int("records", len(records)),
			slog.Bool("has_next", page.NextToken != ""),
		)

		if page.NextToken == "" {
			return nil
		}

		nextToken = page.NextToken
	}
}

// BudgetUsage fetches budget usage rows for the given campaigns. The endpoint
// returns per-campaign results under "success" and partial failures under
// "error"; failures are logged and skipped.
func (l *Lister) BudgetUsage(ctx context.Context, profileID string, campaignIDs []string, emit func(map[string]any) error) error {
	if len(campaignIDs) == 0 {
		return nil
	}

	const mediaType = "application/vnd.spCampaignBudget.v3+json"

	req := Request{
		Method:      http.MethodPost,
		Path:        "/sp/campaigns/budget/usage",
		ProfileID:   profileID,
		ContentType: mediaType,
		Accept:      mediaType,
		Body:        map[string]any{"campaignIds": campaignIDs},
	}

	resp, err := l.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("fetching budget usage: %w", err)
	}

	body := DrainBody(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		l.client.LogFailedRequest(req, resp, body)

		return fmt.Errorf("fetching budget usage: unexpected status %d", resp.StatusCode)
	}

	records, err := extractRecords(body, "success")
	if err != nil {
		return fmt.Errorf("decoding budget usage: %w", err)
	}

	failures, _ := extractRecords(body, "error")
	for _, failure := range failures {
		l.logger.Warn("Budget usage lookup failed for campaign", slog.Any("error", failure))
	}

	for _, record := range records {
		if err := emit(record); err != nil {
			return err
		}
	}

	return nil
}

// extractRecords pulls the record array at key from a list response body.
// A missing key yields an empty slice, not an error.
func extractRecords(body []byte, key string) ([]map[string]any, error) {
	var envelope map[string]json.RawMessage

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	raw, ok := envelope[key]
	if !ok {
		return nil, nil
	}

	var records []map[string]any

	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}

	return records, nil
}
