// Package websocket forwards notification hub events to browser clients over WebSocket.
package websocket

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"stock_tracker/internal/api"
	"stock_tracker/internal/platform/notify"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxClients     = 500
	readLimit      = 512
)

// Subscriber is the hub side the gateway consumes.
type Subscriber interface {
	SubscribeAll(handler notify.Handler) func()
}

type client struct {
	id   string
	conn *gws.Conn
	send chan []byte
}

// Gateway はハブの全イベントを接続中のクライアントへ配信します。
// 送信はクライアント毎のバッファ付きチャネル経由で行い、バッファが満杯の場合はそのイベントを破棄します。
type Gateway struct {
	upgrader gws.Upgrader
	unsub    func()

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewGateway subscribes to hub and returns a ready Gateway.
// allowedOrigin restricts the Origin header; empty or "*" accepts any origin.
func NewGateway(hub Subscriber, allowedOrigin string) *Gateway {
	g := &Gateway{
		clients: make(map[string]*client),
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
	g.unsub = hub.SubscribeAll(g.onEvent)
	return g
}

func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// Handle is the gin handler for GET /ws.
func (g *Gateway) Handle(c *gin.Context) {
	g.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the connection and registers the client.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.Clients() >= maxClients {
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	cl := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBufferSize)}
	if !g.register(cl) {
		_ = conn.WriteControl(gws.CloseMessage,
			gws.FormatCloseMessage(gws.CloseGoingAway, "server shutting down"), time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}
	slog.Info("websocket client connected", "client_id", cl.id, "clients", g.Clients())

	go g.writePump(cl)
	go g.readPump(cl)
}

// Clients returns the number of connected clients.
func (g *Gateway) Clients() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Close unsubscribes from the hub and disconnects every client.
func (g *Gateway) Close() {
	g.unsub()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for id, cl := range g.clients {
		close(cl.send)
		delete(g.clients, id)
	}
}

func (g *Gateway) register(cl *client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.clients[cl.id] = cl
	return true
}

func (g *Gateway) unregister(cl *client) {
	g.mu.Lock()
	_, ok := g.clients[cl.id]
	if ok {
		delete(g.clients, cl.id)
		close(cl.send)
	}
	g.mu.Unlock()

	if ok {
		slog.Info("websocket client disconnected", "client_id", cl.id)
	}
}

// onEvent encodes once and queues the frame for every client without blocking.
func (g *Gateway) onEvent(ev notify.Event) {
	frame, err := api.EncodeEvent(string(ev.Kind), ev.Payload)
	if err != nil {
		slog.Error("failed to encode websocket event", "event", ev.Kind, "error", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, cl := range g.clients {
		select {
		case cl.send <- frame:
		default:
			slog.Warn("websocket client buffer full, dropping event", "client_id", cl.id, "event", ev.Kind)
		}
	}
}

func (g *Gateway) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = cl.conn.WriteMessage(gws.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(gws.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; it exists to process control frames and detect disconnects.
func (g *Gateway) readPump(cl *client) {
	defer func() {
		g.unregister(cl)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(readLimit)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure, gws.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "client_id", cl.id, "error", err)
			}
			return
		}
	}
}
