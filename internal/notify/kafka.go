// Package notify publishes launch and risk events to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
)

// Event types carried in Envelope.Type.
const (
	TypeLaunchDetected = "launch_detected"
	TypeRiskComputed   = "risk_computed"
)

// Envelope wraps every published payload.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"` // unix ms
	Data json.RawMessage `json:"data"`
}

// LaunchMessage is the payload of a launch_detected event.
type LaunchMessage struct {
	Signature string `json:"signature"`
	Slot      string `json:"slot"`
	BlockTime int64  `json:"blockTime"`
	Mint      string `json:"mint"`
	Creator   string `json:"creator"`
	Source    string `json:"source"`
}

// KafkaPublisher sends events to a single topic keyed by mint, so every
// event of one token lands in the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewKafkaPublisher connects a synchronous producer to brokers.
// A nil cfg uses acks from all in-sync replicas and idempotent writes.
func NewKafkaPublisher(brokers []string, topic string, cfg *sarama.Config, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: empty topic")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: new producer: %w", err)
	}
	return NewPublisher(producer, topic, logger), nil
}

// DefaultConfig returns the producer settings used when none are given.
func DefaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "pump-radar"
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logging.OrNop(logger).With(zap.String("component", "notify"), zap.String("topic", topic)),
		now:      time.Now,
	}
}

// Name identifies the publisher in logs and metrics.
func (p *KafkaPublisher) Name() string { return "kafka" }

// NotifyLaunch publishes a launch_detected event.
func (p *KafkaPublisher) NotifyLaunch(ctx context.Context, e *domain.LaunchEvent) error {
	msg := LaunchMessage{
		Signature: e.Signature,
		Slot:      strconv.FormatUint(e.Slot, 10),
		BlockTime: e.BlockTime,
		Mint:      e.Mint,
		Creator:   e.Creator,
		Source:    e.Source.String(),
	}
	return p.emit(ctx, TypeLaunchDetected, e.Mint, msg)
}

// HandleReport publishes a risk_computed event.
func (p *KafkaPublisher) HandleReport(ctx context.Context, r *domain.RiskReport) error {
	return p.emit(ctx, TypeRiskComputed, r.Mint, r)
}

func (p *KafkaPublisher) emit(ctx context.Context, typ, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	b, err := json.Marshal(Envelope{Type: typ, TS: p.now().UnixMilli(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}

	p.logger.Debug("event published",
		zap.String("type", typ),
		zap.String("mint", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
