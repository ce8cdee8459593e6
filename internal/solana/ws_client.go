package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-pump-radar/internal/logging"
	"solana-pump-radar/internal/observability"
)

var errClientClosed = errors.New("websocket client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// BufferSize is the capacity of each notification channel.
	BufferSize int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		BufferSize:        1024,
	}
}

// WSClient implements LogsSubscriber over a Solana PubSub WebSocket.
// Subscriptions survive reconnects: filters are replayed and channels re-bound.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps live subscription ID to its channel and filter.
	subs   map[int64]*subscription
	subsMu sync.RWMutex

	// pending maps request ID to a subscription awaiting confirmation.
	pending   map[uint64]*pendingSub
	pendingMu sync.Mutex

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
}

type subscription struct {
	ch     chan LogNotification
	filter LogsFilter
}

// pendingSub is moved into subs by the read loop when its confirmation arrives.
type pendingSub struct {
	sub      *subscription
	replaces int64 // previous subscription ID after a reconnect, 0 if none
	confirm  chan int64
}

var _ LogsSubscriber = (*WSClient)(nil)

// NewWSClient connects to endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger *zap.Logger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultWSConfig().BufferSize
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = DefaultWSConfig().SubscribeTimeout
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logging.OrNop(logger).With(zap.String("component", "ws")),
		subs:     make(map[int64]*subscription),
		pending:  make(map[uint64]*pendingSub),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// SubscribeLogs subscribes to program logs matching the filter.
func (c *WSClient) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	sub := &subscription{
		ch:     make(chan LogNotification, c.config.BufferSize),
		filter: filter,
	}

	subID, err := c.subscribe(ctx, sub, 0)
	if err != nil {
		return nil, err
	}

	c.logger.Info("logs subscription active",
		zap.Int64("subscription", subID),
		zap.Strings("mentions", filter.Mentions))

	return sub.ch, nil
}

// subscribe sends logsSubscribe for sub and waits until the read loop has bound it.
func (c *WSClient) subscribe(ctx context.Context, sub *subscription, replaces int64) (int64, error) {
	if c.closed.Load() {
		return 0, errClientClosed
	}

	reqID := c.requestID.Add(1)

	mentions := map[string]interface{}{"all": nil}
	if len(sub.filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": sub.filter.Mentions}
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = &pendingSub{sub: sub, replaces: replaces, confirm: confirmCh}
	c.pendingMu.Unlock()

	if err := c.writeJSON(req); err != nil {
		c.dropPending(reqID)
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return 0, errClientClosed
		}
		return subID, nil
	case <-timer.C:
		c.dropPending(reqID)
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, errClientClosed
	case <-ctx.Done():
		c.dropPending(reqID)
		return 0, ctx.Err()
	}
}

func (c *WSClient) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *WSClient) dropPending(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

// Close closes the connection and all subscription channels.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, p := range c.pending {
		close(p.confirm)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	return nil
}

// readLoop reads messages and dispatches them; read errors trigger a reconnect.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	delay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			// A previous reconnect failed; keep trying with backoff.
			if !c.reconnecting.Swap(true) {
				go c.reconnect(nil, delay)
				delay = c.nextDelay(delay)
			}
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("websocket read failed", zap.Error(err), zap.Duration("reconnect_in", delay))

			if !c.reconnecting.Swap(true) {
				go c.reconnect(conn, delay)
				delay = c.nextDelay(delay)
			}
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		delay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

func (c *WSClient) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > c.config.MaxReconnectDelay {
		d = c.config.MaxReconnectDelay
	}
	return d
}

// sleep waits for d and reports false if the client closed meanwhile.
func (c *WSClient) sleep(d time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}

// reconnect replaces a broken connection and replays all subscriptions.
func (c *WSClient) reconnect(broken *websocket.Conn, delay time.Duration) {
	defer c.reconnecting.Store(false)

	if !c.sleep(delay) {
		return
	}
	observability.RecordWSReconnect()

	c.connMu.Lock()
	if c.conn != nil && c.conn == broken {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn("websocket reconnect failed", zap.Error(err))
		return
	}
	c.logger.Info("websocket reconnected")

	c.resubscribeAll()
}

// resubscribeAll replays every active filter and rebinds its channel to the new ID.
func (c *WSClient) resubscribeAll() {
	c.subsMu.RLock()
	old := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		old[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range old {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.SubscribeTimeout)
		newID, err := c.subscribe(ctx, sub, oldID)
		cancel()
		if err != nil {
			c.logger.Warn("resubscribe failed", zap.Int64("subscription", oldID), zap.Error(err))
			continue
		}
		c.logger.Debug("resubscribed", zap.Int64("old", oldID), zap.Int64("new", newID))
	}
}

func (c *WSClient) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 && resp.Result > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		c.handleLogsNotification(&notif)
		return
	}

	var errResp wsErrorResponse
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		c.logger.Warn("websocket error response",
			zap.Uint64("request_id", errResp.ID),
			zap.Int("code", errResp.Error.Code),
			zap.String("message", errResp.Error.Message))
	}
}

func (c *WSClient) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingMu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	c.subsMu.Lock()
	if p.replaces != 0 {
		delete(c.subs, p.replaces)
	}
	c.subs[resp.Result] = p.sub
	c.subsMu.Unlock()

	select {
	case p.confirm <- resp.Result:
	default:
	}
}

// handleLogsNotification blocks until the subscriber accepts the notification.
func (c *WSClient) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}

	c.subsMu.RLock()
	sub, ok := c.subs[notif.Params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	select {
	case sub.ch <- out:
	case <-c.done:
	}
}

func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A failed ping surfaces as a read error; readLoop reconnects.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsErrorResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Error   *RPCError `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
