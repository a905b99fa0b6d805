// Package mcpws carries the same JSON-RPC traffic as the SSE transport
// over a single WebSocket, for clients that prefer one bidirectional
// socket to a stream-plus-post pair.
package mcpws

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cogtrail/backend/internal/mcp"
	"github.com/cogtrail/backend/internal/middleware"
	"github.com/cogtrail/backend/internal/service/session"
)

// Handler upgrades connections and binds each socket to one session. Live
// sockets are tracked by session id so eviction can tear the transport
// down along with the registry entry.
type Handler struct {
	registry *session.Registry
	server   *mcp.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	socks map[string]*websocket.Conn
}

// New creates the WebSocket handler. Origin checking shares the CORS
// allow-list so browser policy is consistent across transports.
func New(registry *session.Registry, server *mcp.Server, allowedOrigins []string) *Handler {
	return &Handler{
		registry: registry,
		server:   server,
		socks:    make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleSocket)
}

// sessionGreeting tells the client which session its socket is bound to.
type sessionGreeting struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	sess := h.registry.Create(r.Context())
	// A socket is the session's only transport; when it goes, so does
	// the session.
	defer h.registry.Terminate(r.Context(), sess.ID)

	h.mu.Lock()
	h.socks[sess.ID] = ws
	h.mu.Unlock()
	defer h.dropSock(sess.ID, ws)

	log.Printf("[ws] opened socket for session=%s", sess.ID)

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(v)
	}

	greeting := sessionGreeting{
		JSONRPC: "2.0",
		Method:  "notifications/session",
		Params:  map[string]any{"sessionId": sess.ID},
	}
	if err := writeJSON(greeting); err != nil {
		log.Printf("[ws] greeting failed for session=%s: %v", sess.ID, err)
		return
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed for session=%s: %v", sess.ID, err)
			}
			log.Printf("[ws] closed socket for session=%s", sess.ID)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		h.registry.Touch(sess.ID)

		resp := h.server.HandleMessage(r.Context(), sess.ID, data)
		if resp == nil {
			continue
		}
		if err := writeJSON(resp); err != nil {
			log.Printf("[ws] write failed for session=%s: %v", sess.ID, err)
			return
		}
	}
}

// CloseSession shuts the socket bound to a session. The reaper calls this
// after evicting the registry entry; the read loop then exits and cleans
// up. Closing an unknown or already-closed session is a no-op.
func (h *Handler) CloseSession(sessionID string) {
	h.mu.Lock()
	ws, ok := h.socks[sessionID]
	delete(h.socks, sessionID)
	h.mu.Unlock()

	if ok {
		ws.Close()
	}
}

// dropSock removes the socket entry unless a newer socket replaced it.
func (h *Handler) dropSock(sessionID string, ws *websocket.Conn) {
	h.mu.Lock()
	if h.socks[sessionID] == ws {
		delete(h.socks, sessionID)
	}
	h.mu.Unlock()
}
