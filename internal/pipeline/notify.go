package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"solana-pump-radar/internal/domain"
	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
)

const defaultNotifyQueueSize = 1024

var (
	// ErrNotifyQueueFull is returned when the notification backlog is full.
	// The launch is still persisted and scored; only the notification is lost.
	ErrNotifyQueueFull = errors.New("launch notification queue full")
	// ErrNotifierClosed is returned after Close.
	ErrNotifierClosed = errors.New("launch notifier closed")
)

// AsyncNotifier moves delivery to a downstream notifier off the ingest path.
// NotifyLaunch only queues; a single goroutine delivers in order.
type AsyncNotifier struct {
	next   LaunchNotifier
	queue  chan *domain.LaunchEvent
	done   chan struct{}
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewAsyncNotifier starts the delivery goroutine. size bounds the backlog.
func NewAsyncNotifier(next LaunchNotifier, size int, logger *zap.Logger) *AsyncNotifier {
	if size < 1 {
		size = defaultNotifyQueueSize
	}
	n := &AsyncNotifier{
		next:   next,
		queue:  make(chan *domain.LaunchEvent, size),
		done:   make(chan struct{}),
		logger: logging.OrNop(logger).With(zap.String("component", "notify"), zap.String("notifier", next.Name())),
	}
	go n.run()
	return n
}

// Name reports the wrapped notifier's name.
func (n *AsyncNotifier) Name() string { return n.next.Name() }

// NotifyLaunch queues e without blocking.
func (n *AsyncNotifier) NotifyLaunch(_ context.Context, e *domain.LaunchEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrNotifierClosed
	}
	select {
	case n.queue <- e:
		return nil
	default:
		return ErrNotifyQueueFull
	}
}

func (n *AsyncNotifier) run() {
	defer close(n.done)
	for e := range n.queue {
		if err := n.next.NotifyLaunch(context.Background(), e); err != nil {
			observability.RecordSinkError(n.next.Name())
			n.logger.Warn("launch notification failed",
				zap.String("mint", e.Mint),
				zap.Error(err))
		}
	}
}

// Close stops accepting launches and waits until the backlog is delivered
// or ctx ends.
func (n *AsyncNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		n.logger.Warn("notification backlog not drained", zap.Int("pending", len(n.queue)))
		return ctx.Err()
	}
}
