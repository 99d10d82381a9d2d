// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	applog "beatgrid/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPublisher broadcasts engine events as JSON to every connected
// renderer client. Grid snapshots are rate limited so a burst of nudges
// does not flood slow clients; onset and tempo events always go out.
type WebSocketPublisher struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server

	lastSnapshot    time.Time
	minSendInterval time.Duration
}

// envelope is what every outbound message looks like on the wire.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event pairs a type tag with a payload for broadcast.
type Event struct {
	Type string
	Data any
}

// NewWebSocketPublisher starts an HTTP server on addr with the grid
// stream at /grid and returns the publisher. minSendInterval bounds how
// often snapshot events are broadcast; zero disables rate limiting.
func NewWebSocketPublisher(addr string, minSendInterval time.Duration) *WebSocketPublisher {
	p := &WebSocketPublisher{
		clients:         make(map[*websocket.Conn]bool),
		minSendInterval: minSendInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // The renderer is served from another origin in dev.
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/grid", p.handleWebSocket)
	p.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		applog.Infof("Transport: websocket listening on %s", addr)
		if err := p.server.ListenAndServe(); err != http.ErrServerClosed {
			applog.Errorf("Transport: websocket server: %v", err)
		}
	}()

	return p
}

func (p *WebSocketPublisher) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("Transport: websocket upgrade: %v", err)
		return
	}

	p.clientsMutex.Lock()
	p.clients[conn] = true
	p.clientsMutex.Unlock()

	// Drain reads to notice disconnects; clients never send payloads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				p.clientsMutex.Lock()
				delete(p.clients, conn)
				p.clientsMutex.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts an event to all connected clients. Events that are not
// transport.Event values are wrapped as type "message". Snapshot events
// ("grid") are rate limited; disconnected clients are dropped.
func (p *WebSocketPublisher) Send(data any) error {
	env := envelope{Type: "message", Data: data}
	if ev, ok := data.(Event); ok {
		env = envelope{Type: ev.Type, Data: ev.Data}
	}

	if env.Type == "grid" && p.minSendInterval > 0 {
		now := time.Now()
		if now.Sub(p.lastSnapshot) < p.minSendInterval {
			return nil
		}
		p.lastSnapshot = now
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	p.clientsMutex.Lock()
	for client := range p.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(p.clients, client)
		}
	}
	p.clientsMutex.Unlock()

	return nil
}

// Close shuts down the server and every client connection. Idempotent.
func (p *WebSocketPublisher) Close() error {
	p.clientsMutex.Lock()
	for client := range p.clients {
		client.Close()
		delete(p.clients, client)
	}
	p.clientsMutex.Unlock()

	return p.server.Close()
}

var _ Publisher = (*WebSocketPublisher)(nil)
