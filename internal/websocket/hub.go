package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/fpl-optimizer/pkg/metrics"
)

const (
	EventRunStarted   = "run.started"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is a pipeline progress message pushed to subscribers.
type Event struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id"`
	Gameweek  int         `json:"gameweek"`
	Method    string      `json:"method,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Client is one subscriber. A zero Gameweek receives every event.
type Client struct {
	Gameweek int
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Entry
	mutex      sync.RWMutex
}

func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registration and fan-out until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			metrics.WebSocketClients.Set(0)
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			metrics.WebSocketClients.Set(float64(total))

			h.logger.WithFields(logrus.Fields{
				"gameweek":      client.Gameweek,
				"total_clients": total,
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			metrics.WebSocketClients.Set(float64(total))

			h.logger.WithField("total_clients", total).Info("WebSocket client disconnected")

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal WebSocket message")
				continue
			}
			h.mutex.Lock()
			for client := range h.clients {
				if client.Gameweek != 0 && client.Gameweek != event.Gameweek {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// Slow consumer
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues an event for delivery. It never blocks the caller; events are
// dropped when the queue is full.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", event.Type).Warn("WebSocket broadcast queue full, dropping event")
	}
}

// HandleWebSocket upgrades the request. An optional ?gameweek= narrows the feed.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	var gameweek int
	if raw := c.Query("gameweek"); raw != "" {
		gw, err := strconv.Atoi(raw)
		if err != nil || gw < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid gameweek"})
			return
		}
		gameweek = gw
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		Gameweek: gameweek,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump drains the connection so close frames are noticed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
