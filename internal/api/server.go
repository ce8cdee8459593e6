// Package api exposes the webhook receiver and the read endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
	"solana-pump-radar/internal/pipeline"
	"solana-pump-radar/internal/scheduler"
	"solana-pump-radar/internal/storage"
)

// WebhookPath is where the transaction webhook is mounted.
const WebhookPath = "/webhooks/helius"

const (
	defaultLaunchesLimit = 50
	defaultMaxLaunches   = 100
)

// Processor handles a parsed webhook batch.
type Processor interface {
	Process(ctx context.Context, origin string, txs []domain.RawTransaction, raws []json.RawMessage) pipeline.Result
}

// StatsSource reports scheduler observations.
type StatsSource interface {
	Stats() scheduler.Stats
}

// Config wires the router's dependencies.
type Config struct {
	WebhookSecret string
	// MaxLaunches caps the limit accepted by GET /launches.
	MaxLaunches int
	Processor   Processor
	Store       storage.Store
	Scheduler   StatsSource
	Logger      *zap.Logger
}

// Server holds the handlers' dependencies.
type Server struct {
	processor   Processor
	store       storage.Store
	scheduler   StatsSource
	maxLaunches int
	logger      *zap.Logger
}

// NewRouter builds the gin engine.
//
// Public: /launches, /tokens/:mint, /healthz, /status, /metrics
// Bearer-authenticated: POST /webhooks/helius
func NewRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := logging.OrNop(cfg.Logger).With(zap.String("component", "api"))
	s := &Server{
		processor:   cfg.Processor,
		store:       cfg.Store,
		scheduler:   cfg.Scheduler,
		maxLaunches: cfg.MaxLaunches,
		logger:      logger,
	}
	if s.maxLaunches < 1 {
		s.maxLaunches = defaultMaxLaunches
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), CORS())

	r.POST(WebhookPath, BearerAuth(cfg.WebhookSecret, logger), s.handleWebhook)

	r.GET("/launches", s.handleLaunches)
	r.GET("/tokens/:mint", s.handleToken)
	r.GET("/healthz", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	return r
}
