package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/AlaskanTuna/fusion-solar-collector/db"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/collector"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/config"
	"github.com/AlaskanTuna/fusion-solar-collector/internal/fusionsolar"
	checkpointfile "github.com/AlaskanTuna/fusion-solar-collector/internal/infra/storage/checkpoint/file"
	recordspg "github.com/AlaskanTuna/fusion-solar-collector/internal/infra/storage/records/postgres"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/logger"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/otel"
	"github.com/AlaskanTuna/fusion-solar-collector/pkg/common/retry"
)

const serviceType = "collector"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get hostname: %v\n", err)
		os.Exit(1)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	svcName := fmt.Sprintf("COLLECTOR-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stdout, logLevelFromEnv(), svcName,
		func(ctx context.Context) string { return otel.GetTraceID(ctx) },
		logEvents, metadata)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "collector run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	configPath := flag.String("config", "config.yaml", "path to the collector config file")
	flag.Parse()

	cfg, err := config.NewFileLoader(*configPath).Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	prob := 0.0
	if v := os.Getenv("OTEL_SAMPLING_RATIO"); v != "" {
		if prob, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("parsing OTEL_SAMPLING_RATIO: %w", err)
		}
	}
	tp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      serviceType,
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Probability:      prob,
		InsecureExporter: true,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer telemetryTeardown(context.Background())

	tracer := tp.Tracer(serviceType)

	log.Info(ctx, "startup", "status", "connecting to database")
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("parsing database dsn: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer func() {
		pool.Close()
		log.Info(ctx, "shutdown", "status", "database connection closed")
	}()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	if err := db.RunMigrations(pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info(ctx, "startup", "status", "database ready")

	client := fusionsolar.NewClient(
		&http.Client{Timeout: cfg.FusionSolar.RequestTimeout()},
		cfg.FusionSolar.Domain,
		cfg.FusionSolar.UserName,
		cfg.FusionSolar.SystemCode,
		tracer,
	)
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("logging in to FusionSolar: %w", err)
	}
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			log.Warn(ctx, "shutdown", "status", "logout failed", "error", err)
		}
	}()
	log.Info(ctx, "startup", "status", "api session established")

	catalogPolicy := retry.Policy{
		MaxRetries: uint64(cfg.Collector.CatalogRetry.MaxAttempts),
		BaseDelay:  cfg.Collector.CatalogRetry.BaseDelay(),
	}
	detailPolicy := retry.Policy{
		MaxRetries: uint64(cfg.Collector.DetailRetry.MaxAttempts),
		BaseDelay:  cfg.Collector.DetailRetry.BaseDelay(),
		Jitter:     true,
	}

	orch := collector.NewOrchestrator(
		collector.NewCatalogFetcher(client, catalogPolicy, log, tracer),
		collector.NewDetailFetcher(client, detailPolicy, log, tracer),
		checkpointfile.NewStore(cfg.Collector.StateFilePath, log),
		recordspg.NewRecordStore(pool, tracer),
		common.NewPacer(cfg.Collector.Cooldown()),
		cfg.Collector.PlantLimit,
		log,
		tracer,
	)

	if err := orch.Run(ctx); err != nil {
		return err
	}

	log.Info(ctx, "shutdown", "status", "sweep finished")
	return nil
}

func logLevelFromEnv() logger.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
