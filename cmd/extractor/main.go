// Package main provides the adstream extraction service.
//
// The extractor pulls advertising entities and asynchronous performance
// reports from the provider API and emits schema-normalized records to the
// configured sink, advancing per-stream replication watermarks as it goes.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adstream-io/adstream/internal/adsapi"
	"github.com/adstream-io/adstream/internal/auth"
	"github.com/adstream-io/adstream/internal/config"
	"github.com/adstream-io/adstream/internal/report"
	"github.com/adstream-io/adstream/internal/sink"
	"github.com/adstream-io/adstream/internal/state"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "extractor"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting adstream extractor",
		slog.String("service", name),
		slog.String("version", version),
	)

	extractorConfig := config.LoadExtractorFromEnv()
	if err := extractorConfig.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Loaded extractor configuration",
		slog.String("client_id", extractorConfig.MaskedClientID()),
		slog.String("api_url", extractorConfig.APIBaseURL),
		slog.String("auth_endpoint", extractorConfig.OAuthEndpoint),
		slog.Int("profiles", len(extractorConfig.ProfileIDs)),
		slog.Int("lookback_days", extractorConfig.LookbackDays),
		slog.String("start_date", extractorConfig.StartDate),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, extractorConfig, logger); err != nil {
		logger.Error("Extraction run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Extraction run complete")
}

func run(ctx context.Context, extractorConfig *config.Extractor, logger *slog.Logger) error {
	tokens := auth.NewTokenManager(auth.Config{
		Endpoint:     extractorConfig.OAuthEndpoint,
		ClientID:     extractorConfig.ClientID,
		ClientSecret: extractorConfig.ClientSecret,
		RefreshToken: extractorConfig.RefreshToken,
		Scope:        extractorConfig.OAuthScope,
	}, &http.Client{Timeout: 30 * time.Second}, logger)

	clientConfig := adsapi.LoadClientConfig()
	clientConfig.BaseURL = extractorConfig.APIBaseURL
	clientConfig.ClientID = extractorConfig.ClientID
	clientConfig.UserAgent = extractorConfig.UserAgent

	client := adsapi.NewClient(clientConfig, tokens, &http.Client{Timeout: clientConfig.StatusTimeout}, logger)

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := openSink(logger)
	defer func() { _ = out.Close() }()

	if config.GetEnvBool("ADSTREAM_ENTITY_STREAMS", true) {
		if err := runEntityStreams(ctx, client, out, extractorConfig.ProfileIDs, logger); err != nil {
			return err
		}
	}

	configs := report.StockReports()
	for i := range configs {
		configs[i].LookbackDays = extractorConfig.LookbackDays
	}

	engine := report.NewEngine(
		report.NewSubmitter(client, logger),
		report.NewPoller(client, clientConfig.StatusTimeout, report.DefaultMaxAttempts, logger),
		report.NewDownloader(clientConfig.DownloadTimeout, logger),
		report.NewNormalizer(logger),
		store,
		out,
		logger,
	)
	engine.InitialWatermark = extractorConfig.StartDate

	return engine.Run(ctx, configs, extractorConfig.ProfileIDs)
}

// openStore selects the watermark store: PostgreSQL when DATABASE_URL is
// set, otherwise an in-memory store that forgets progress on exit.
func openStore(ctx context.Context, logger *slog.Logger) (state.WatermarkStore, error) {
	storeConfig := state.LoadConfig()

	if err := storeConfig.Validate(); err != nil {
		logger.Warn("DATABASE_URL not set, using in-memory watermark store",
			slog.String("note", "watermarks will not survive restarts"),
		)

		return state.NewMemoryStore(), nil
	}

	conn, err := state.Connect(ctx, storeConfig)
	if err != nil {
		return nil, err
	}

	logger.Info("Watermark store initialized",
		slog.String("database_url", storeConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storeConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storeConfig.MaxIdleConns),
	)

	return state.NewPostgresStore(conn), nil
}

// openSink selects the record sink: Kafka when ADSTREAM_SINK=kafka,
// otherwise line-delimited JSON on stdout.
func openSink(logger *slog.Logger) sink.Sink {
	if config.GetEnvStr("ADSTREAM_SINK", "stdout") != "kafka" {
		return sink.NewJSONLSink(os.Stdout)
	}

	kafkaConfig := sink.LoadKafkaConfig()

	logger.Info("Kafka sink initialized",
		slog.Any("brokers", kafkaConfig.Brokers),
		slog.String("topic", kafkaConfig.Topic),
	)

	return sink.NewKafkaSink(kafkaConfig, logger)
}
