package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Use the centralized origin checker
		if IsAllowedOrigin(origin) {
			return true
		}

		// Log rejected origin for security monitoring
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run owns the client map. Register, unregister and fan-out all funnel
// through here, so map mutation happens on one goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)

		case message := <-h.broadcast:
			h.mu.RLock()
			var dead []*websocket.Conn
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					dead = append(dead, conn)
				}
			}
			h.mu.RUnlock()

			for _, conn := range dead {
				h.drop(conn)
			}
			IncrementWSMessages()
		}
	}
}

// drop closes a connection, frees its per-IP slot and updates the gauge.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()
	log.Printf("📱 Client disconnected (%d remaining)", count)
	UpdateWSConnections(count)
}

// Broadcast fans an event out to every client. A full broadcast channel
// sheds the message rather than stalling the caller.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop starts broadcasting game state periodically
func (h *WebSocketHub) StartBroadcastLoop(engine EngineInterface) {
	ticker := time.NewTicker(100 * time.Millisecond) // 10 updates per second

	go func() {
		for range ticker.C {
			if h.ClientCount() == 0 {
				continue
			}

			// Lock-free snapshot; marbles include position, color and alpha
			snap := engine.GetSnapshot()

			h.Broadcast("game:state", map[string]interface{}{
				"tick":        snap.TickNumber,
				"marbles":     snap.Marbles,
				"shots":       snap.Shots,
				"bursts":      snap.Bursts,
				"pops":        snap.Pops,
				"launcher":    snap.Launcher,
				"chainLength": snap.ChainLength,
				"score":       snap.Score,
				"combo":       snap.Combo,
				"round":       snap.Round,
				"lives":       snap.Lives,
			})
		}
	}()
}

// wsCommand is the inbound message format. Commanders shoot and swap over
// the socket; everything else goes through the REST API.
type wsCommand struct {
	Action string   `json:"action"`
	Owner  string   `json:"owner"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Angle  *float64 `json:"angle"`
}

// handleCommand applies an inbound socket command to the engine.
func (h *WebSocketHub) handleCommand(engine EngineInterface, ip string, raw []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	owner := cmd.Owner
	if owner == "" {
		owner = ip
	}

	switch cmd.Action {
	case "shoot":
		switch {
		case cmd.X != nil && cmd.Y != nil:
			engine.FireAt(owner, *cmd.X, *cmd.Y)
		case cmd.Angle != nil:
			engine.FireAngle(owner, *cmd.Angle)
		}
	case "swap":
		engine.SwapMagazine(owner)
	default:
		log.Printf("📨 Unknown WebSocket action from %s: %q", ip, cmd.Action)
	}
}

// HandleWebSocket upgrades a spectator connection, enforcing both the
// global and the per-IP connection caps before the upgrade.
func (h *WebSocketHub) HandleWebSocket(engine EngineInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)

		if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
			log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
			RecordConnectionRejected("ws_total_limit")
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}

		if !h.wsLimiter.Allow(ip) {
			log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
			RecordConnectionRejected("ws_ip_limit")
			http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			h.wsLimiter.Release(ip) // slot was already claimed
			return
		}

		h.register <- &wsClient{conn: conn, ip: ip}

		// Read loop: shoot/swap commands until the client goes away
		go func() {
			defer func() { h.unregister <- conn }()

			for {
				_, message, err := conn.ReadMessage()
				if err != nil {
					return
				}
				h.handleCommand(engine, ip, message)
			}
		}()
	}
}
