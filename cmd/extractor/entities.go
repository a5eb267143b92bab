package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/adstream-io/adstream/internal/adsapi"
	"github.com/adstream-io/adstream/internal/sink"
)

// runEntityStreams extracts the paginated entity streams for every profile
// and follows up with budget usage for the campaigns seen. Entity streams
// are full-table snapshots; they carry no watermark.
func runEntityStreams(ctx context.Context, client *adsapi.Client, out sink.Sink, profileIDs []string, logger *slog.Logger) error {
	lister := adsapi.NewLister(client, logger)

	for _, profileID := range profileIDs {
		var campaignIDs []string

		for _, stream := range adsapi.EntityStreams() {
			emit := func(record map[string]any) error {
				if stream.Name == "campaigns" {
					if id, ok := record["campaignId"].(string); ok {
						campaignIDs = append(campaignIDs, id)
					}
				}

				return out.Emit(ctx, sink.Record{
					Stream:    stream.Name,
					ProfileID: profileID,
					Data:      record,
					EmittedAt: time.Now().UTC(),
				})
			}

			if err := lister.List(ctx, stream, profileID, emit); err != nil {
				return err
			}
		}

		if len(campaignIDs) == 0 {
			continue
		}

		emitBudget := func(record map[string]any) error {
			return out.Emit(ctx, sink.Record{
				Stream:    "campaign_budget_usage",
				ProfileID: profileID,
				Data:      record,
				EmittedAt: time.Now().UTC(),
			})
		}

		if err := lister.BudgetUsage(ctx, profileID, campaignIDs, emitBudget); err != nil {
			return err
		}
	}

	return nil
}
