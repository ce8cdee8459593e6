package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/observability"
	"solana-pump-radar/internal/pipeline"
	"solana-pump-radar/internal/storage"
	"solana-pump-radar/internal/webhook"
)

const (
	minMintLen = 32
	maxMintLen = 44

	healthTimeout = 2 * time.Second

	// maxWebhookBody caps a webhook delivery at 1 MiB.
	maxWebhookBody = 1 << 20
)

// launchView is the JSON form of a launch. Slot is a string so that
// JavaScript clients do not lose precision.
type launchView struct {
	Signature string `json:"signature"`
	Slot      string `json:"slot"`
	BlockTime string `json:"blockTime"`
	Mint      string `json:"mint"`
	Creator   string `json:"creator"`
	Source    string `json:"source"`
	CreatedAt string `json:"createdAt"`
}

func newLaunchView(e *domain.LaunchEvent) launchView {
	return launchView{
		Signature: e.Signature,
		Slot:      strconv.FormatUint(e.Slot, 10),
		BlockTime: time.Unix(e.BlockTime, 0).UTC().Format(time.RFC3339),
		Mint:      e.Mint,
		Creator:   e.Creator,
		Source:    e.Source.String(),
		CreatedAt: time.UnixMilli(e.CreatedAt).UTC().Format(time.RFC3339Nano),
	}
}

type webhookResponse struct {
	Success bool `json:"success"`
	pipeline.Result
}

// handleWebhook answers as soon as launches are persisted and enqueued.
// Scoring continues in the background.
func (s *Server) handleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.logger.Warn("webhook payload too large", zap.Int64("limit", tooLarge.Limit))
		observability.RecordWebhookRequest("too_large")
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if err != nil {
		s.rejectPayload(c, err)
		return
	}

	txs, raws, err := webhook.Parse(body)
	if err != nil {
		s.rejectPayload(c, err)
		return
	}

	res := s.processor.Process(c.Request.Context(), pipeline.OriginWebhook, txs, raws)
	observability.RecordWebhookRequest("ok")
	c.JSON(http.StatusOK, webhookResponse{Success: true, Result: res})
}

func (s *Server) rejectPayload(c *gin.Context, err error) {
	s.logger.Warn("invalid webhook payload", zap.Error(err))
	observability.RecordWebhookRequest("invalid")
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
}

func (s *Server) handleLaunches(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLaunchesLimit
	}
	if limit > s.maxLaunches {
		limit = s.maxLaunches
	}

	launches, err := s.store.ListRecentLaunches(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, "list launches", err)
		return
	}

	views := make([]launchView, 0, len(launches))
	for _, e := range launches {
		views = append(views, newLaunchView(e))
	}
	c.JSON(http.StatusOK, gin.H{"launches": views, "count": len(views)})
}

func (s *Server) handleToken(c *gin.Context) {
	mint := c.Param("mint")
	if len(mint) < minMintLen || len(mint) > maxMintLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}

	ctx := c.Request.Context()
	launch, err := s.store.GetLaunchByMint(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	if err != nil {
		s.internalError(c, "get launch", err)
		return
	}

	var risk any
	report, err := s.store.FindRiskReport(ctx, mint)
	switch {
	case err == nil:
		risk = report
	case errors.Is(err, storage.ErrNotFound):
		risk = gin.H{"status": "pending", "message": "risk analysis in progress"}
	default:
		s.internalError(c, "find risk report", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"launch": newLaunchView(launch), "risk": risk})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"database":  "connected",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.scheduler.Stats())
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
