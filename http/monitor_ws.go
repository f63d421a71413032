package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PredictionEvent is pushed to monitor clients for every served
// prediction.
type PredictionEvent struct {
	Type           string  `json:"type"`
	Timestamp      string  `json:"timestamp"`
	PredictedPrice float64 `json:"predicted_price"`
	ModelVersion   string  `json:"model_version"`
	LatencyMs      float64 `json:"latency_ms"`
}

// MonitorHub fans prediction events out to connected websocket clients.
type MonitorHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan []byte
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewMonitorHub creates an empty hub.
func NewMonitorHub(logger *zap.SugaredLogger) *MonitorHub {
	return &MonitorHub{
		clients: make(map[*websocket.Conn]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// HandleWS upgrades the connection and keeps it registered until the
// peer goes away.
func (h *MonitorHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = send
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Infow("monitor client connected", "total", total)

	go h.writeLoop(conn, send)

	// Read loop only detects disconnects; clients do not send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *MonitorHub) writeLoop(conn *websocket.Conn, send chan []byte) {
	for message := range send {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *MonitorHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends the event to every connected client. Slow clients
// have the event dropped rather than blocking the prediction path.
func (h *MonitorHub) Broadcast(event PredictionEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, send := range h.clients {
		select {
		case send <- message:
		default:
		}
	}
}
