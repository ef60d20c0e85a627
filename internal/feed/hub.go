package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/metrics"
	"github.com/yourusername/value-tipster/internal/scan"
)

// Hub keeps the set of websocket subscribers and fans scan results out to them.
// It implements scan.Publisher and http.Handler.
type Hub struct {
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan *scan.Result
	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. With no allowed origins only same-origin upgrades are
// accepted; "*" accepts any origin.
func NewHub(allowedOrigins []string, log *logrus.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger:     log.WithField("component", "feed_hub"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *scan.Result, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	h.logger.Info("Feed hub started")

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case result := <-h.broadcast:
			h.fanOut(result)
		}
	}
}

// Name identifies the hub as a publisher
func (h *Hub) Name() string {
	return "websocket"
}

// Publish queues a scan result for delivery. It only blocks while the
// broadcast buffer is full.
func (h *Hub) Publish(ctx context.Context, result *scan.Result) error {
	select {
	case h.broadcast <- result:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and attaches a new subscriber
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := newClient(uuid.New().String(), conn, h, h.logger)
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump(h.ctx)
	go c.readPump(h.ctx)
}

// Unregister detaches a subscriber
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	metrics.UpdateFeedClients(count)
	h.logger.WithFields(logrus.Fields{"client_id": c.ID, "clients": count}).Info("Feed client connected")
}

func (h *Hub) remove(c *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, c)
	c.close()
	count := len(h.clients)
	h.clientsMu.Unlock()

	metrics.UpdateFeedClients(count)
	h.logger.WithFields(logrus.Fields{"client_id": c.ID, "clients": count}).Info("Feed client disconnected")
}

// fanOut sends each subscriber the part of the result its filter selects.
// Subscribers whose buffer is full are dropped.
func (h *Hub) fanOut(result *scan.Result) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		selected := c.Filter().Apply(result.Opportunities)
		if len(selected) == 0 {
			continue
		}
		msg := ServerMessage{
			Type: MessageTypeOpportunities,
			Payload: OpportunityBatch{
				RunID:         result.RunID,
				CompletedAt:   result.CompletedAt,
				Opportunities: selected,
			},
			Timestamp: time.Now().UTC(),
		}
		if !c.trySend(msg) {
			h.logger.WithField("client_id", c.ID).Warn("Feed client too slow, disconnecting")
			h.remove(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.cancel()

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	metrics.UpdateFeedClients(0)
	h.logger.Info("Feed hub stopped")
}
