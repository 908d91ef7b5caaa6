package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/deploydesk/deploydesk/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Allow requests without Origin header (same-origin or direct)
		}

		originURL, err := url.Parse(origin)
		if err != nil {
			return false
		}

		if originURL.Host == r.Host {
			return true
		}

		// Allow localhost connections (common for development)
		if originURL.Hostname() == "localhost" || originURL.Hostname() == "127.0.0.1" {
			return true
		}

		return false
	},
}

// WebSocketServer pushes every committed view state change to connected
// browsers. Unlike a polling transport there is no ticker: the app publishes
// and the hub fans out.
type WebSocketServer struct {
	api    DashboardAPI
	logger *slog.Logger

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	done chan struct{}
}

// NewWebSocketServer creates a new WebSocket hub.
func NewWebSocketServer(api DashboardAPI, logger *slog.Logger) *WebSocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketServer{
		api:     api,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
}

// Handler returns the WebSocket HTTP handler. Each new client receives the
// current state immediately, then every change.
func (ws *WebSocketServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			ws.logger.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		ws.clientsMu.Lock()
		ws.clients[conn] = true
		ws.clientsMu.Unlock()

		ws.logger.Debug("WebSocket client connected",
			slog.Int("total_clients", len(ws.clients)),
		)

		// Send the current state so the page renders without waiting for
		// the next change.
		if data, err := json.Marshal(ws.api.State()); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}

		defer func() {
			ws.clientsMu.Lock()
			delete(ws.clients, conn)
			ws.clientsMu.Unlock()
			conn.Close()

			ws.logger.Debug("WebSocket client disconnected",
				slog.Int("total_clients", len(ws.clients)),
			)
		}()

		// Read messages (mainly for ping/pong and disconnect detection)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					ws.logger.Debug("WebSocket read error", slog.String("error", err.Error()))
				}
				break
			}
		}
	}
}

// Start begins the broadcast goroutine.
func (ws *WebSocketServer) Start() {
	sub := ws.api.Subscribe()
	go ws.broadcastLoop(sub)
}

// Stop stops the WebSocket hub and closes all client connections.
func (ws *WebSocketServer) Stop() {
	close(ws.done)

	ws.clientsMu.Lock()
	for conn := range ws.clients {
		conn.Close()
	}
	ws.clients = make(map[*websocket.Conn]bool)
	ws.clientsMu.Unlock()
}

// broadcastLoop forwards published view states to all connected clients.
func (ws *WebSocketServer) broadcastLoop(sub <-chan types.ViewState) {
	for {
		select {
		case <-ws.done:
			return
		case st, ok := <-sub:
			if !ok {
				return
			}
			ws.broadcast(st)
		}
	}
}

// broadcast sends one state to all connected clients.
func (ws *WebSocketServer) broadcast(state types.ViewState) {
	data, err := json.Marshal(state)
	if err != nil {
		ws.logger.Error("Failed to marshal view state", slog.String("error", err.Error()))
		return
	}

	ws.clientsMu.RLock()
	defer ws.clientsMu.RUnlock()

	for conn := range ws.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			ws.logger.Debug("Failed to write to WebSocket",
				slog.String("error", err.Error()),
			)
		}
	}
}
