package ws

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger, 8, time.Second, func() any {
		return map[string]any{"type": "welcome", "world": "test"}
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubWelcomeAndBroadcast(t *testing.T) {
	h := newTestHub()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome map[string]any
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome["type"] != "welcome" {
		t.Fatalf("welcome = %v", welcome)
	}
	waitForClients(t, h, 1)

	h.Broadcast(map[string]any{"type": "spawn", "id": "monster_goblin1"})
	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event["id"] != "monster_goblin1" {
		t.Fatalf("event = %v", event)
	}
}

func TestHubFansOut(t *testing.T) {
	h := newTestHub()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	defer h.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var welcome map[string]any
		if err := conn.ReadJSON(&welcome); err != nil {
			t.Fatal(err)
		}
	}
	waitForClients(t, h, 2)

	h.Broadcast(map[string]any{"seq": json.Number("1")})
	for _, conn := range []*websocket.Conn{a, b} {
		var event map[string]any
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	h := newTestHub()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome map[string]any
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}
