package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adstream-io/adstream/internal/sink"
	"github.com/adstream-io/adstream/internal/state"
)

// postSubmitDelay settles the provider after report creation; submitting and
// immediately polling triggers spurious duplicate errors.
const postSubmitDelay = 2 * time.Second

// Engine drives the whole report lifecycle for each configured stream:
// submit, poll to completion, download, normalize and emit, then advance the
// watermark.
type Engine struct {
	submitter  *Submitter
	poller     *Poller
	downloader *Downloader
	normalizer *Normalizer
	store      state.WatermarkStore
	sink       sink.Sink
	logger     *slog.Logger

	// InitialWatermark seeds streams that have no stored watermark yet,
	// typically from the configured start date. Empty means no floor: the
	// first run emits the full lookback window.
	InitialWatermark string

	// sleep is injectable for deterministic tests.
	sleep func(ctx context.Context, d time.Duration) error

	// now stamps emitted records.
	now func() time.Time
}

// NewEngine wires the lifecycle components together.
func NewEngine(
	submitter *Submitter,
	poller *Poller,
	downloader *Downloader,
	normalizer *Normalizer,
	store state.WatermarkStore,
	out sink.Sink,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		submitter:  submitter,
		poller:     poller,
		downloader: downloader,
		normalizer: normalizer,
		store:      store,
		sink:       out,
		logger:     logger,
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Run extracts every configured report stream for every profile. Profiles
// run sequentially; within a profile the report streams run concurrently.
//
// Stream failures are isolated: a failed stream is logged and counted, the
// rest keep running, and its watermark is left untouched so the next run
// re-covers the window. Run only returns an error when at least one stream
// failed or the context was cancelled.
func (e *Engine) Run(ctx context.Context, configs []Config, profileIDs []string) error {
	var failed int

	for _, profileID := range profileIDs {
		group, groupCtx := errgroup.WithContext(ctx)

		results := make([]error, len(configs))

		for i, cfg := range configs {
			group.Go(func() error {
				err := e.RunStream(groupCtx, cfg, profileID)
				if err != nil {
					e.logger.Error("Report stream failed",
						slog.String("stream", cfg.Name),
						slog.String("profile_id", profileID),
						slog.String("error", err.Error()),
					)

					results[i] = err
				}

				// Failures stay local to the stream; cancellation is the
				// only error that should stop the group.
				return groupCtx.Err()
			})
		}

		if err := group.Wait(); err != nil {
			return err
		}

		for _, err := range results {
			if err != nil {
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d report stream run(s) failed", failed)
	}

	return nil
}

// RunStream extracts one report stream for one profile.
func (e *Engine) RunStream(ctx context.Context, cfg Config, profileID string) error {
	watermark, err := e.store.Get(ctx, cfg.Name, profileID)
	if err != nil {
		return fmt.Errorf("loading watermark: %w", err)
	}

	if watermark == "" {
		watermark = e.InitialWatermark
	}

	job, err := e.submitter.Submit(ctx, cfg, profileID)
	if err != nil {
		return err
	}

	if err := e.sleep(ctx, postSubmitDelay); err != nil {
		return err
	}

	status, url, err := e.poller.Poll(ctx, job.ReportID, profileID)
	if err != nil {
		return err
	}

	if status != StatusCompleted {
		if status == StatusTimeout {
			return fmt.Errorf("%w: report %s", ErrPollTimeout, job.ReportID)
		}

		return fmt.Errorf("report %s ended in status %s", job.ReportID, status)
	}

	raw, err := e.downloader.Download(ctx, url)
	if err != nil {
		return err
	}

	e.logger.Info("Downloaded report payload",
		slog.String("stream", cfg.Name),
		slog.String("report_id", job.ReportID),
		slog.Int("rows", len(raw)),
	)

	var emitted int

	maxDate := watermark

	emit := func(record map[string]any) error {
		if err := e.sink.Emit(ctx, sink.Record{
			Stream:    cfg.Name,
			ProfileID: profileID,
			Data:      record,
			EmittedAt: e.now().UTC(),
		}); err != nil {
			return err
		}

		emitted++

		if date, ok := record[cfg.ReplicationKey].(string); ok && date > maxDate {
			maxDate = date
		}

		return nil
	}

	if err := e.normalizer.Normalize(raw, cfg, watermark, emit); err != nil {
		return fmt.Errorf("emitting records: %w", err)
	}

	// Advance the watermark only after every record reached the sink, so a
	// partial failure replays rather than drops rows.
	if maxDate != watermark {
		if err := e.store.Set(ctx, cfg.Name, profileID, maxDate); err != nil {
			return fmt.Errorf("advancing watermark: %w", err)
		}
	}

	e.logger.Info("Report stream complete",
		slog.String("stream", cfg.Name),
		slog.String("profile_id", profileID),
		slog.Int("records", emitted),
		slog.String("watermark", maxDate),
	)

	return nil
}
