package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogtrail/backend/internal/service/session"
)

func newTestServer(t *testing.T) (*Server, *session.Registry, string) {
	t.Helper()
	registry := session.NewRegistry()
	sess := registry.Create(context.Background())
	return NewServer(registry), registry, sess.ID
}

func callFrame(id int, tool string, args map[string]any) []byte {
	frame := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	}
	data, _ := json.Marshal(frame)
	return data
}

func toolResult(t *testing.T, resp *Response) (CallToolResult, map[string]any) {
	t.Helper()
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(CallToolResult)
	require.True(t, ok, "result is %T", resp.Result)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
	return result, body
}

func TestHandleMessageInitialize(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])
	assert.Equal(t, ServerInfo{Name: "cogtrail", Version: "0.3.0"}, result["serverInfo"])
}

func TestHandleMessageInitializedNotification(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, resp)
}

func TestHandleMessageToolsList(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		[]byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	tools, ok := result["tools"].([]Tool)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, ToolName, tools[0].Name)

	required, ok := tools[0].InputSchema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"text", "sequenceNumber", "estimatedTotal", "continuationNeeded"}, required)
}

func TestHandleMessageToolCallSuccess(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID, callFrame(1, ToolName, map[string]any{
		"text":               "A",
		"sequenceNumber":     1,
		"estimatedTotal":     3,
		"continuationNeeded": true,
	}))

	result, body := toolResult(t, resp)
	assert.False(t, result.IsError)
	assert.Equal(t, float64(1), body["sequenceNumber"])
	assert.Equal(t, float64(3), body["totalThoughts"])
	assert.Equal(t, true, body["nextThoughtNeeded"])
	assert.Equal(t, []any{}, body["branches"])
	assert.Equal(t, float64(1), body["thoughtHistoryLength"])
}

func TestHandleMessageToolCallAutoRaisesEstimate(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	srv.HandleMessage(context.Background(), sessionID, callFrame(1, ToolName, map[string]any{
		"text": "A", "sequenceNumber": 1, "estimatedTotal": 3, "continuationNeeded": true,
	}))
	resp := srv.HandleMessage(context.Background(), sessionID, callFrame(2, ToolName, map[string]any{
		"text": "B", "sequenceNumber": 5, "estimatedTotal": 3, "continuationNeeded": false,
	}))

	result, body := toolResult(t, resp)
	assert.False(t, result.IsError)
	assert.Equal(t, float64(5), body["sequenceNumber"])
	assert.Equal(t, float64(5), body["totalThoughts"])
	assert.Equal(t, false, body["nextThoughtNeeded"])
	assert.Equal(t, float64(2), body["thoughtHistoryLength"])
}

func TestHandleMessageToolCallValidationFailure(t *testing.T) {
	srv, registry, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID, callFrame(1, ToolName, map[string]any{
		"sequenceNumber": 1, "estimatedTotal": 3, "continuationNeeded": true,
	}))

	result, body := toolResult(t, resp)
	assert.True(t, result.IsError)
	assert.Contains(t, body["error"], "must be a string")
	assert.Equal(t, "failed", body["status"])

	// A failed call leaves the ledger untouched.
	ledger, err := registry.Resolve(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.HistoryLength())
}

func TestHandleMessageFailuresDoNotTerminateSession(t *testing.T) {
	srv, _, sessionID := newTestServer(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		good := srv.HandleMessage(ctx, sessionID, callFrame(i, ToolName, map[string]any{
			"text": "ok", "sequenceNumber": i, "estimatedTotal": 3, "continuationNeeded": true,
		}))
		_, body := toolResult(t, good)
		assert.Equal(t, float64(i), body["thoughtHistoryLength"])

		bad := srv.HandleMessage(ctx, sessionID, callFrame(i+100, ToolName, map[string]any{
			"text": "broken", "continuationNeeded": true,
		}))
		result, _ := toolResult(t, bad)
		assert.True(t, result.IsError)
	}
}

func TestHandleMessageUnknownTool(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		callFrame(1, "mindreading", map[string]any{"text": "A"}))

	result, body := toolResult(t, resp)
	assert.True(t, result.IsError)
	assert.Equal(t, "unknown tool: mindreading", body["error"])
	assert.Equal(t, "failed", body["status"])
}

func TestHandleMessageUnknownSession(t *testing.T) {
	registry := session.NewRegistry()
	srv := NewServer(registry)

	resp := srv.HandleMessage(context.Background(), "gone", callFrame(1, ToolName, map[string]any{
		"text": "A", "sequenceNumber": 1, "estimatedTotal": 1, "continuationNeeded": false,
	}))

	result, body := toolResult(t, resp)
	assert.True(t, result.IsError)
	assert.Equal(t, "session not found", body["error"])
}

func TestHandleMessageMethodNotFound(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		[]byte(`{"jsonrpc":"2.0","id":9,"method":"resources/list"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageParseError(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID, []byte(`{not json`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestHandleMessageInvalidVersion(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID,
		[]byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestHandleMessageResponseRoundTrips(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	resp := srv.HandleMessage(context.Background(), sessionID, callFrame(7, ToolName, map[string]any{
		"text": "A", "sequenceNumber": 1, "estimatedTotal": 1, "continuationNeeded": false,
	}))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf(`"id":%d`, 7))
	assert.Contains(t, string(data), `"jsonrpc":"2.0"`)
}
