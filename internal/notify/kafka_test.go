package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pump-radar/internal/domain"
)

func newTestPublisher(t *testing.T) (*KafkaPublisher, *mocks.SyncProducer) {
	t.Helper()
	producer := mocks.NewSyncProducer(t, nil)
	p := NewPublisher(producer, "pump-radar.events", nil)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p, producer
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) Envelope {
	t.Helper()
	b, err := msg.Value.Encode()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(b, &env))
	return env
}

func TestNotifyLaunch(t *testing.T) {
	p, producer := newTestPublisher(t)

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "pump-radar.events", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "mint-1", string(key))

		env := decodeEnvelope(t, msg)
		assert.Equal(t, TypeLaunchDetected, env.Type)
		assert.Equal(t, int64(1700000000000), env.TS)

		var got LaunchMessage
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, LaunchMessage{
			Signature: "sig-1",
			Slot:      "123456",
			BlockTime: 1234567890,
			Mint:      "mint-1",
			Creator:   "creator-1",
			Source:    "pumpfun",
		}, got)
		return nil
	})

	err := p.NotifyLaunch(context.Background(), &domain.LaunchEvent{
		Signature: "sig-1",
		Slot:      123456,
		BlockTime: 1234567890,
		Mint:      "mint-1",
		Creator:   "creator-1",
		Source:    domain.SourcePumpFun,
		RawJSON:   []byte(`{"not":"published"}`),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestHandleReport(t *testing.T) {
	p, producer := newTestPublisher(t)
	report := &domain.RiskReport{
		Mint:       "mint-1",
		Score:      65,
		Label:      domain.LabelHigh,
		Reasons:    []string{"extreme holder concentration"},
		TopHolders: []domain.TopHolder{{Address: "a", Percentage: 60}},
		ComputedAt: 1700000000000,
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		env := decodeEnvelope(t, msg)
		assert.Equal(t, TypeRiskComputed, env.Type)

		var got domain.RiskReport
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, *report, got)
		return nil
	})

	require.NoError(t, p.HandleReport(context.Background(), report))
	require.NoError(t, p.Close())
}

func TestSendFailure(t *testing.T) {
	p, producer := newTestPublisher(t)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := p.HandleReport(context.Background(), &domain.RiskReport{Mint: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}

func TestCancelledContextSkipsSend(t *testing.T) {
	p, _ := newTestPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.NotifyLaunch(ctx, &domain.LaunchEvent{Mint: "m"})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic", nil, nil)
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", nil, nil)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Idempotent)
	require.NoError(t, cfg.Validate())
}

func TestName(t *testing.T) {
	p, _ := newTestPublisher(t)
	assert.Equal(t, "kafka", p.Name())
}
