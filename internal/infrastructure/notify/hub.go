package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

const writeTimeout = 5 * time.Second

// Event is the wire format pushed to websocket subscribers.
type Event struct {
	Type       string                    `json:"type"` // progress, completed, failed
	TaskID     string                    `json:"task_id"`
	Percent    float64                   `json:"percent,omitempty"`
	Status     domain.TaskStatus         `json:"status,omitempty"`
	Error      string                    `json:"error,omitempty"`
	RetryCount int                       `json:"retry_count,omitempty"`
	Report     *domain.PerformanceReport `json:"report,omitempty"`
}

// Hub pushes task events to connected websocket clients. Delivery is
// best-effort: a client that cannot be written to is dropped, never waited
// on. Implements domain.Notifier.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The core does not do origin policy; the fronting proxy does.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades an HTTP request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", zap.Int("clients", count))

	// Reader drains (and discards) client frames so pings and closes are
	// processed; it unregisters on any error.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) OnProgress(taskID string, percent float64, status domain.TaskStatus) {
	h.broadcast(Event{Type: "progress", TaskID: taskID, Percent: percent, Status: status})
}

func (h *Hub) OnCompleted(taskID string, report *domain.PerformanceReport) {
	h.broadcast(Event{Type: "completed", TaskID: taskID, Status: domain.TaskCompleted, Report: report})
}

func (h *Hub) OnFailed(taskID string, errMsg string, retryCount int) {
	h.broadcast(Event{Type: "failed", TaskID: taskID, Error: errMsg, RetryCount: retryCount})
}

// broadcast writes under the lock: gorilla connections permit only one
// concurrent writer, and notifier callbacks arrive from many goroutines.
func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

var _ domain.Notifier = (*Hub)(nil)
