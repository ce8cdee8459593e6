package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pump-radar/internal/discovery"
	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/pipeline"
	"solana-pump-radar/internal/solana"
	"solana-pump-radar/internal/solana/stub"
)

var createLogs = []string{
	"Program " + discovery.PumpFun + " invoke [1]",
	"Program log: Instruction: Create",
}

type fakeSubscriber struct {
	ch        chan solana.LogNotification
	filter    solana.LogsFilter
	subscribe error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{ch: make(chan solana.LogNotification, 16)}
}

func (f *fakeSubscriber) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.filter = filter
	if f.subscribe != nil {
		return nil, f.subscribe
	}
	return f.ch, nil
}

func (f *fakeSubscriber) Close() error { return nil }

type processCall struct {
	origin string
	txs    []domain.RawTransaction
	raws   []json.RawMessage
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls []processCall
}

func (p *recordingProcessor) Process(_ context.Context, origin string, txs []domain.RawTransaction, raws []json.RawMessage) pipeline.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, processCall{origin: origin, txs: txs, raws: raws})
	return pipeline.Result{Received: len(txs)}
}

func (p *recordingProcessor) snapshot() []processCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]processCall(nil), p.calls...)
}

func newTestSource(t *testing.T) (*LiveSource, *fakeSubscriber, *stub.RPCClient, *recordingProcessor) {
	t.Helper()
	ws := newFakeSubscriber()
	rpc := stub.NewRPCClient()
	proc := &recordingProcessor{}
	src := NewLiveSource(ws, rpc, proc, nil)
	src.retryDelay = time.Millisecond
	return src, ws, rpc, proc
}

func runSource(t *testing.T, src *LiveSource) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()
	return cancel, done
}

func TestLiveSource_ProcessesCreateNotifications(t *testing.T) {
	src, ws, rpc, proc := newTestSource(t)
	rpc.Transactions["sig-1"] = &domain.RawTransaction{Signature: "sig-1", Slot: 10, BlockTime: 1700000000}

	cancel, done := runSource(t, src)
	defer cancel()

	ws.ch <- solana.LogNotification{Signature: "sig-1", Slot: 10, Logs: createLogs}

	require.Eventually(t, func() bool { return len(proc.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	call := proc.snapshot()[0]
	assert.Equal(t, pipeline.OriginLive, call.origin)
	require.Len(t, call.txs, 1)
	assert.Equal(t, "sig-1", call.txs[0].Signature)
	require.Len(t, call.raws, 1)
	assert.Contains(t, string(call.raws[0]), `"sig-1"`)
	assert.Equal(t, []string{discovery.PumpFun}, ws.filter.Mentions)

	cancel()
	assert.NoError(t, <-done)
}

func TestLiveSource_SkipsFailedAndUnrelatedNotifications(t *testing.T) {
	src, ws, rpc, proc := newTestSource(t)
	rpc.Transactions["sig-ok"] = &domain.RawTransaction{Signature: "sig-ok"}

	cancel, done := runSource(t, src)
	defer cancel()

	ws.ch <- solana.LogNotification{Signature: "sig-failed", Logs: createLogs, Err: map[string]interface{}{"InstructionError": 1}}
	ws.ch <- solana.LogNotification{Signature: "sig-buy", Logs: []string{"Program log: Instruction: Buy"}}
	ws.ch <- solana.LogNotification{Signature: "sig-ok", Logs: createLogs}

	require.Eventually(t, func() bool { return len(proc.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sig-ok", proc.snapshot()[0].txs[0].Signature)
	assert.Equal(t, 1, rpc.Calls("getTransaction"), "only the create notification is fetched")

	cancel()
	<-done
}

func TestLiveSource_RetriesThenDrops(t *testing.T) {
	src, ws, rpc, proc := newTestSource(t)

	cancel, done := runSource(t, src)
	defer cancel()

	ws.ch <- solana.LogNotification{Signature: "sig-missing", Logs: createLogs}

	require.Eventually(t, func() bool { return rpc.Calls("getTransaction") == maxRetries }, time.Second, 5*time.Millisecond)
	assert.Empty(t, proc.snapshot())

	cancel()
	<-done
}

func TestLiveSource_RetrySchedule(t *testing.T) {
	src := NewLiveSource(newFakeSubscriber(), stub.NewRPCClient(), &recordingProcessor{}, nil)

	// Sleeps happen only between attempts.
	var delays []time.Duration
	for attempt := 0; attempt < maxRetries-1; attempt++ {
		delays = append(delays, src.backoff(attempt))
	}
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, delays)
}

func TestLiveSource_ClosedSubscription(t *testing.T) {
	src, ws, _, _ := newTestSource(t)
	close(ws.ch)

	err := src.Run(context.Background())
	assert.Error(t, err)
}

func TestLiveSource_SubscribeError(t *testing.T) {
	src, ws, _, _ := newTestSource(t)
	ws.subscribe = errors.New("handshake failed")

	err := src.Run(context.Background())
	assert.ErrorContains(t, err, "handshake failed")
}
