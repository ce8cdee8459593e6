package solana

import "context"

// LogsSubscriber streams program log notifications.
type LogsSubscriber interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	// The returned channel is closed when the subscriber is closed.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the underlying connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logsNotification message.
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	Err       interface{}
}
