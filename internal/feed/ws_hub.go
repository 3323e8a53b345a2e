package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/valuation"
)

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type                string          `json:"type"`
	Pool                string          `json:"pool"`
	UnderlyingPrice     decimal.Decimal `json:"underlying_price"`
	UnderlyingPerShare  decimal.Decimal `json:"underlying_per_share"`
	StrikeAssetPerShare decimal.Decimal `json:"strike_asset_per_share"`
	NetValue            decimal.Decimal `json:"net_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
	Timestamp           uint64          `json:"timestamp"`
}

// WSHub manages WebSocket connections and broadcasts pool valuations to
// every connected client.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

var _ valuation.Listener = (*WSHub)(nil)

// NewWSHub creates a hub. Run must be started before clients connect.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run is the hub loop. It returns when done is closed.
func (h *WSHub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			slog.Info("ws client connected", "total", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PoolValued broadcasts a finished valuation pass. It never blocks the
// indexer: messages are dropped when the buffer is full.
func (h *WSHub) PoolValued(data *model.PoolDynamicData) {
	msg, err := json.Marshal(WSMessage{
		Type:                "pool_valued",
		Pool:                data.Pool,
		UnderlyingPrice:     data.UnderlyingPrice,
		UnderlyingPerShare:  data.UnderlyingPerShare,
		StrikeAssetPerShare: data.StrikeAssetPerShare,
		NetValue:            data.NetValue,
		TotalValue:          data.TotalValue,
		Timestamp:           data.Timestamp,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		slog.Debug("ws broadcast dropped", "pool", data.Pool)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS upgrades GET /api/v1/ws.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: detects disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}()
}
