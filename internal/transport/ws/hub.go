// Package ws streams world events to observers over websockets. The feed is
// one-way: clients connect, receive a welcome frame with the catalog digests,
// then every broadcast event. A client that cannot keep up is dropped rather
// than allowed to stall the hub.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const pingInterval = 30 * time.Second

type client struct {
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

type Hub struct {
	log          *logrus.Logger
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	// welcome builds the first frame sent to every new client.
	welcome func() any

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger *logrus.Logger, sendBuffer int, writeTimeout time.Duration, welcome func() any) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		log:          logger,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		welcome:      welcome,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[*client]struct{}{},
	}
}

// Broadcast fans an event out to every connected observer. Clients with a
// full send buffer are disconnected.
func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Warn("broadcast marshal failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			delete(h.clients, c)
			c.close()
			h.log.Warn("dropped slow observer")
		}
	}
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		c := &client{
			conn: conn,
			out:  make(chan []byte, h.sendBuffer),
			done: make(chan struct{}),
		}

		if h.welcome != nil {
			b, err := json.Marshal(h.welcome())
			if err == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				err = conn.WriteMessage(websocket.TextMessage, b)
			}
			if err != nil {
				c.close()
				return
			}
		}

		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		go h.writer(c)

		// Reader loop: observers send nothing, but reading is what detects
		// a gone peer. Pongs refresh the deadline.
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
		})
		_ = conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
	}
}

func (h *Hub) writer(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			return
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
