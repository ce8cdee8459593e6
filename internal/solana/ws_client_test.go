package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// drain keeps a server-side connection open until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// confirmSubscribe reads one logsSubscribe request and confirms it with subID.
func confirmSubscribe(t *testing.T, conn *websocket.Conn, subID int64) bool {
	t.Helper()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal request: %v", err)
		return false
	}
	if req.Method != "logsSubscribe" {
		t.Errorf("expected logsSubscribe, got %s", req.Method)
	}
	return conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}) == nil
}

func sendLogs(conn *websocket.Conn, subID int64, sig string, slot uint64) error {
	return conn.WriteJSON(wsNotification{
		JSONRPC: "2.0",
		Method:  "logsNotification",
		Params: &wsNotificationParams{
			Subscription: subID,
			Result: wsNotificationResult{
				Context: &wsContext{Slot: slot},
				Value: wsLogsValue{
					Signature: sig,
					Logs:      []string{"Program log: Instruction: Create"},
				},
			},
		},
	})
}

func fastConfig() *WSClientConfig {
	return &WSClientConfig{
		ReconnectDelay:    20 * time.Millisecond,
		MaxReconnectDelay: 100 * time.Millisecond,
		PingInterval:      time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
		SubscribeTimeout:  2 * time.Second,
		BufferSize:        16,
	}
}

func TestWSClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
	if client.config.BufferSize != DefaultWSConfig().BufferSize {
		t.Errorf("expected default buffer size, got %d", client.config.BufferSize)
	}
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !confirmSubscribe(t, conn, 12345) {
			return
		}
		time.Sleep(50 * time.Millisecond)
		if err := sendLogs(conn, 12345, "testsig", 100); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}
		drain(conn)
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), fastConfig(), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"testprogram"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "testsig" {
			t.Errorf("expected testsig, got %s", notif.Signature)
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		switch connections.Add(1) {
		case 1:
			// Confirm, then drop the connection.
			confirmSubscribe(t, conn, 1)
			time.Sleep(20 * time.Millisecond)
		default:
			if !confirmSubscribe(t, conn, 2) {
				return
			}
			if err := sendLogs(conn, 2, "after-reconnect", 7); err != nil {
				return
			}
			drain(conn)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), fastConfig(), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"prog"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "after-reconnect" {
			t.Errorf("expected after-reconnect, got %s", notif.Signature)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification after reconnect")
	}

	if got := connections.Load(); got < 2 {
		t.Errorf("expected reconnect, got %d connections", got)
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn) // never confirms
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(server), cfg, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeLogs(context.Background(), LogsFilter{}); err == nil {
		t.Error("expected subscription timeout")
	}
}

func TestWSClient_CloseClosesChannels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if confirmSubscribe(t, conn, 9) {
			drain(conn)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), fastConfig(), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, err := client.SubscribeLogs(ctx, LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	if _, err := client.SubscribeLogs(ctx, LogsFilter{}); err == nil {
		t.Error("expected error subscribing after close")
	}
}
