// Package mcpsse serves the SSE flavor of the protocol: a long-lived
// event stream per session, paired with a message-post endpoint the
// client writes JSON-RPC frames to.
package mcpsse

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/cogtrail/backend/internal/mcp"
	"github.com/cogtrail/backend/internal/service/session"
	"github.com/cogtrail/backend/pkg/utils"
)

// Handler owns the sessionId-to-stream mapping. The session registry owns
// the ledgers; this map only tracks the transport side, and the two are
// torn down together on terminate or eviction.
type Handler struct {
	registry *session.Registry
	server   *mcp.Server

	mu    sync.Mutex
	conns map[string]*conn
}

type conn struct {
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

// New creates the SSE handler.
func New(registry *session.Registry, server *mcp.Server) *Handler {
	return &Handler{
		registry: registry,
		server:   server,
		conns:    make(map[string]*conn),
	}
}

// RegisterRoutes mounts the SSE endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sse", h.handleStream)
	r.Post("/messages", h.handleMessage)
	r.Delete("/messages", h.handleTerminate)
}

// handleStream opens the event stream. It creates a fresh session and
// announces the message-post endpoint carrying the new session id, then
// pumps JSON-RPC responses until the client goes away or the session is
// torn down.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess := h.registry.Create(r.Context())

	c := &conn{
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[sess.ID] = c
	h.mu.Unlock()
	defer h.dropConn(sess.ID, c)

	utils.SetupSSEHeaders(w)
	log.Printf("[sse] opened stream for session=%s", sess.ID)

	if err := utils.SendSSEEvent(w, flusher, "endpoint", []byte("/messages?sessionId="+sess.ID)); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client closed stream for session=%s", sess.ID)
			return
		case <-c.done:
			log.Printf("[sse] closing stream for session=%s", sess.ID)
			return
		case msg := <-c.out:
			if err := utils.SendSSEEvent(w, flusher, "message", msg); err != nil {
				log.Printf("[sse] write failed for session=%s: %v", sess.ID, err)
				return
			}
		}
	}
}

// handleMessage accepts one JSON-RPC frame for an existing session. The
// response is pushed over the session's event stream when one is open;
// without a stream it is returned inline so the endpoint stays usable on
// its own.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId query parameter is required")
		return
	}

	if !h.registry.Touch(sessionID) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp := h.server.HandleMessage(r.Context(), sessionID, body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	h.mu.Lock()
	c, ok := h.conns[sessionID]
	h.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	select {
	case c.out <- data:
		w.WriteHeader(http.StatusAccepted)
	case <-c.done:
		utils.RespondError(w, http.StatusGone, "session stream closed")
	default:
		log.Printf("[sse] dropping response for backpressured session=%s", sessionID)
		utils.RespondError(w, http.StatusServiceUnavailable, "session stream backpressured")
	}
}

// handleTerminate destroys a session on explicit client request.
func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId query parameter is required")
		return
	}

	if !h.registry.Touch(sessionID) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	h.registry.Terminate(r.Context(), sessionID)
	h.CloseSession(sessionID)
	log.Printf("[sse] terminated session=%s", sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

// CloseSession shuts the transport side of a session. The reaper calls
// this after evicting the registry entry; closing an unknown or
// already-closed session is a no-op.
func (h *Handler) CloseSession(sessionID string) {
	h.mu.Lock()
	c, ok := h.conns[sessionID]
	delete(h.conns, sessionID)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// dropConn removes the stream entry unless a newer stream replaced it.
func (h *Handler) dropConn(sessionID string, c *conn) {
	h.mu.Lock()
	if h.conns[sessionID] == c {
		delete(h.conns, sessionID)
	}
	h.mu.Unlock()
	c.close()
}
