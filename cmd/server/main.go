// Command server receives pump.fun launches over a webhook (and optionally
// a live log subscription), persists them and scores each new mint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-pump-radar/internal/api"
	"solana-pump-radar/internal/config"
	"solana-pump-radar/internal/discovery"
	"solana-pump-radar/internal/ingestion"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/notify"
	"solana-pump-radar/internal/pipeline"
	"solana-pump-radar/internal/risk"
	"solana-pump-radar/internal/scheduler"
	"solana-pump-radar/internal/solana"
	"solana-pump-radar/internal/storage"
	chstore "solana-pump-radar/internal/storage/clickhouse"
	"solana-pump-radar/internal/storage/memory"
	"solana-pump-radar/internal/storage/migrations"
	pgstore "solana-pump-radar/internal/storage/postgres"
)

const (
	shutdownTimeout       = 30 * time.Second
	launchNotifyQueueSize = 1024
)

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Pump.fun launch detector and risk scorer",
		SilenceUsage: true,
		RunE:         runServer,
	}

	f := root.Flags()
	f.String("config", "", "config file path")
	f.String("env", "development", "environment (development, production, test)")
	f.String("listen-addr", ":3000", "HTTP listen address")
	f.String("rpc-url", "", "Solana RPC HTTP endpoint")
	f.String("ws-url", "", "Solana WebSocket endpoint; enables the live source")
	f.String("webhook-secret", "", "shared webhook bearer secret")
	f.String("postgres-dsn", "", "PostgreSQL DSN; empty uses the in-memory store")
	f.String("clickhouse-dsn", "", "ClickHouse DSN for report history")
	f.StringSlice("kafka-brokers", nil, "Kafka brokers (comma-separated)")
	f.String("kafka-topic", "pump-radar.events", "Kafka topic for launch and risk events")
	f.Int("queue-concurrency", 3, "concurrent risk scoring tasks")
	f.Int("max-launches-response", 100, "maximum limit accepted by GET /launches")
	f.Duration("rpc-timeout", 30*time.Second, "per-request RPC timeout")
	f.Int("rpc-max-retries", 3, "RPC retry attempts")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "json", "log format (json, console)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		sinks          []scheduler.ReportSink
		notifiers      []pipeline.LaunchNotifier
		launchNotifier *pipeline.AsyncNotifier
	)

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()
		sinks = append(sinks, scheduler.NewHistorySink(chstore.NewReportHistoryStore(conn)))
		logger.Info("report history enabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, nil, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		launchNotifier = pipeline.NewAsyncNotifier(pub, launchNotifyQueueSize, logger)
		notifiers = append(notifiers, launchNotifier)
		logger.Info("kafka publishing enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	rpc := solana.NewHTTPClient(cfg.RPCURL,
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithMaxRetries(cfg.RPCMaxRetries),
	)
	scorer := risk.NewScorer(solana.NewChainReader(rpc), logger)

	pool, err := scheduler.NewPool(cfg.QueueConcurrency, logger)
	if err != nil {
		return err
	}
	sched := scheduler.New(pool, scorer, store, logger, sinks...)
	processor := pipeline.NewProcessor(discovery.NewCreateDecoder(logger), store, sched, logger, notifiers...)

	router := api.NewRouter(api.Config{
		WebhookSecret: cfg.WebhookSecret,
		MaxLaunches:   cfg.MaxLaunchesResponse,
		Processor:     processor,
		Store:         store,
		Scheduler:     sched,
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("env", cfg.Env),
			zap.Int("queue_concurrency", cfg.QueueConcurrency))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.WSURL != "" {
		ws, err := solana.NewWSClient(ctx, cfg.WSURL, nil, logger)
		if err != nil {
			return fmt.Errorf("connect ws: %w", err)
		}
		defer ws.Close()

		live := ingestion.NewLiveSource(ws, rpc, processor, logger)
		g.Go(func() error {
			return live.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
		if err := sched.Close(shutdownCtx); err != nil {
			logger.Warn("scoring queue not drained", zap.Error(err), zap.Any("stats", sched.Stats()))
		}
		if launchNotifier != nil {
			if err := launchNotifier.Close(shutdownCtx); err != nil {
				logger.Warn("launch notifications not drained", zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore returns the Postgres store when a DSN is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	if cfg.UseMemoryStore() {
		logger.Warn("no postgres dsn configured, using in-memory store")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewStore(pool), pool.Close, nil
}
