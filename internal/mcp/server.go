package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/cogtrail/backend/internal/service/session"
	"github.com/cogtrail/backend/internal/service/thinking"
)

// ServerInfo identifies the server to clients during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server dispatches JSON-RPC messages for one or more transport sessions.
// It never lets an error escape as anything other than a structured
// response: every frame that carries an id gets exactly one answer.
type Server struct {
	registry *session.Registry
	info     ServerInfo
}

// NewServer builds a dispatcher over the given session registry.
func NewServer(registry *session.Registry) *Server {
	return &Server{
		registry: registry,
		info:     ServerInfo{Name: "cogtrail", Version: "0.3.0"},
	}
}

// HandleMessage processes one raw JSON-RPC frame on behalf of a session.
// A nil return means the frame was a notification and produced no
// response.
func (s *Server) HandleMessage(ctx context.Context, sessionID string, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeParseError, "parse error")
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid JSON-RPC version")
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": s.info,
		})
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return resultResponse(req.ID, map[string]any{
			"tools": []Tool{ThinkingTool()},
		})
	case "tools/call":
		return s.handleToolCall(ctx, sessionID, req)
	default:
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// handleToolCall runs the core flow: resolve the ledger, validate the
// payload, append, echo the summary. Every failure comes back as an
// in-band error result; the call itself always completes.
func (s *Server) handleToolCall(ctx context.Context, sessionID string, req Request) *Response {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid tools/call params")
	}

	// An unrecognized tool is rejected before the payload is even looked at.
	if params.Name != ToolName {
		return resultResponse(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	ledger, err := s.registry.Resolve(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return resultResponse(req.ID, errorResult("session not found"))
		}
		return resultResponse(req.ID, errorResult(err.Error()))
	}

	record, err := thinking.ParseRecord(params.Arguments)
	if err != nil {
		return resultResponse(req.ID, errorResult(err.Error()))
	}

	summary := ledger.Append(record)
	log.Printf("[mcp] session=%s thought=%d/%d history=%d", sessionID,
		summary.SequenceNumber, summary.TotalThoughts, summary.ThoughtHistoryLength)

	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return resultResponse(req.ID, errorResult(err.Error()))
	}

	return resultResponse(req.ID, CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(body)}},
	})
}

// errorResult wraps a core-detected failure as an error-flagged tool
// result with the fixed {error, status} body.
func errorResult(message string) CallToolResult {
	body, err := json.MarshalIndent(map[string]string{
		"error":  message,
		"status": "failed",
	}, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf(`{"error": %q, "status": "failed"}`, message))
	}
	return CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(body)}},
		IsError: true,
	}
}
