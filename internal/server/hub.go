package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/txtof/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Per-client queue of pending messages.
	sendBuffer = 16
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Hash      string    `json:"hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the open preview sockets and fans reload messages out to them.
// Once the hub has closed its clients no new client is accepted.
type Hub struct {
	clients      map[*websocket.Conn]*client
	clientsMutex sync.RWMutex
	closed       bool
	unregister   chan *websocket.Conn
	broadcast    chan []byte

	allowedOrigins []string
	logger         logging.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. allowedOrigins lists extra host[:port] values that may
// open a socket besides the host the page was served from.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		clients:        make(map[*websocket.Conn]*client),
		unregister:     make(chan *websocket.Conn, sendBuffer),
		broadcast:      make(chan []byte, sendBuffer),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("hub"),
		done:           make(chan struct{}),
	}
}

// Run serves unregistrations and broadcasts until ctx is cancelled or Stop is
// called, then closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer h.Stop()
	defer h.closeAll()

	for {
		select {
		case conn := <-h.unregister:
			h.unregisterClient(ctx, conn)
		case message := <-h.broadcast:
			h.broadcastToClients(ctx, message)
		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every connected client. It never blocks; when the
// queue is full the message is dropped, which is harmless for reloads.
func (h *Hub) Broadcast(msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn(context.Background(), nil, "Broadcast queue full, dropping message", "type", msg.Type)
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		h.logger.Warn(r.Context(), nil, "WebSocket connection rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// The origin was checked above.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if !h.registerClient(r.Context(), c) {
		conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// checkOrigin accepts same-host origins and the configured extra hosts.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if originURL.Host == r.Host {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if originURL.Host == allowed {
			return true
		}
	}
	return false
}

// registerClient adds c unless the hub is stopping.
func (h *Hub) registerClient(ctx context.Context, c *client) bool {
	h.clientsMutex.Lock()
	select {
	case <-h.done:
		h.closed = true
	default:
	}
	if h.closed {
		h.clientsMutex.Unlock()
		return false
	}
	h.clients[c.conn] = c
	count := len(h.clients)
	h.clientsMutex.Unlock()

	h.logger.Debug(ctx, "Client connected", "clients", count)
	return true
}

func (h *Hub) unregisterClient(ctx context.Context, conn *websocket.Conn) {
	h.clientsMutex.Lock()
	c, exists := h.clients[conn]
	if exists {
		delete(h.clients, conn)
		close(c.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if exists {
		conn.CloseNow()
		h.logger.Debug(ctx, "Client disconnected", "clients", count)
	}
}

func (h *Hub) broadcastToClients(ctx context.Context, message []byte) {
	h.clientsMutex.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMutex.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			// Slow client.
			h.unregisterClient(ctx, c.conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*client)
	h.clientsMutex.Unlock()

	for conn, c := range clients {
		close(c.send)
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) release(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// readPump drains incoming frames so pings and close frames are handled.
func (h *Hub) readPump(c *client) {
	defer h.release(c.conn)

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.release(c.conn)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				h.release(c.conn)
				return
			}
		}
	}
}
