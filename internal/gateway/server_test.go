package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/engine"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
	"github.com/colinrozzi/git-chat-assistant/internal/proxy"
)

// stubHandle is a canned chat-state engine for gateway tests.
type stubHandle struct {
	id  string
	ack engine.Ack
}

func (h *stubHandle) ID() string { return h.id }
func (h *stubHandle) AddMessage(context.Context, engine.Message) (engine.Ack, error) {
	return h.ack, nil
}
func (h *stubHandle) GenerateCompletion(context.Context) (engine.Ack, error) {
	return h.ack, nil
}
func (h *stubHandle) History(context.Context) ([]engine.Message, error) {
	return []engine.Message{{Role: "user", Content: "hello"}}, nil
}
func (h *stubHandle) Close() error { return nil }

type stubLauncher struct{ handle *stubHandle }

func (l *stubLauncher) Spawn(context.Context, config.Config) (engine.Handle, error) {
	return l.handle, nil
}

func testProxy(t *testing.T, started bool) *proxy.Proxy {
	t.Helper()
	launcher := &stubLauncher{handle: &stubHandle{id: "child-77", ack: engine.Ack(`{"type":"success"}`)}}
	p, err := proxy.New(config.PartialConfig{}, launcher, logging.New(nil, "silent"))
	require.NoError(t, err)
	if started {
		require.NoError(t, p.Start(context.Background()))
	}
	return p
}

func testServer(t *testing.T, prx *proxy.Proxy) (*Server, *httptest.Server) {
	t.Helper()
	settings := config.DefaultSettings()
	settings.Gateway.Token = "test-token-123"

	srv := New(settings, prx, logging.New(nil, "silent"))

	mux := http.NewServeMux()
	srv.registerHTTPRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

// dialAndConnect completes the handshake and returns an authenticated conn.
func dialAndConnect(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))
	require.Equal(t, "connect.challenge", challenge.Event)

	connectReq, err := NewRequest("req-connect", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client", Version: "1.0.0"},
		Auth:   &ConnectAuth{Token: token},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(connectReq))

	var hello Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.NotNil(t, hello.OK)
	require.True(t, *hello.OK, "handshake must succeed")

	return conn
}

// rpc sends a request and returns the matching response frame.
func rpc(t *testing.T, conn *websocket.Conn, id, method string, params any) Frame {
	t.Helper()
	req, err := NewRequest(id, method, params)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, id, resp.ID)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	// Public endpoint only returns status.
	assert.Empty(t, health.Version)
	assert.Empty(t, health.ProxyID)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandshakeWrongToken(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))

	connectReq, _ := NewRequest("req-1", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client"},
		Auth:   &ConnectAuth{Token: "wrong-token"},
	})
	require.NoError(t, conn.WriteJSON(connectReq))

	var errResp Frame
	require.NoError(t, conn.ReadJSON(&errResp))
	require.NotNil(t, errResp.OK)
	assert.False(t, *errResp.OK)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, "unauthorized", errResp.Error.Code)
}

func TestRPCChildID(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "proxy.childId", nil)
	require.True(t, *resp.OK)

	var out map[string]string
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	assert.Equal(t, "child-77", out["childId"])
}

func TestRPCChatSend(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "chat.send", map[string]string{"message": "git status"})
	require.True(t, *resp.OK)

	var out struct {
		Ack json.RawMessage `json:"ack"`
	}
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	assert.JSONEq(t, `{"type":"success"}`, string(out.Ack))
}

func TestRPCChatSendEmptyMessage(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "chat.send", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestRPCNotReadyBeforeStart(t *testing.T) {
	_, ts := testServer(t, testProxy(t, false))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "chat.send", map[string]string{"message": "git status"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_ready", resp.Error.Code)

	resp = rpc(t, conn, "req-2", "proxy.childId", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_ready", resp.Error.Code)
}

func TestRPCWorkflowStatus(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "workflow.status", nil)
	require.True(t, *resp.OK)

	var out map[string]string
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	assert.Equal(t, "idle", out["state"])
	assert.Empty(t, out["workflow"])
}

func TestRPCConfigShow(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "config.show", nil)
	require.True(t, *resp.OK)

	var out struct {
		Merged config.Config `json:"merged"`
	}
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	assert.Equal(t, config.DefaultModel, out.Merged.ModelConfig.Model)
	assert.Equal(t, config.DefaultTitle, out.Merged.Title)
}

func TestRPCMethodNotFound(t *testing.T) {
	_, ts := testServer(t, testProxy(t, true))
	conn := dialAndConnect(t, ts, "test-token-123")

	resp := rpc(t, conn, "req-1", "bogus.method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "method_not_found", resp.Error.Code)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		name string
		gw   config.GatewaySettings
		want string
	}{
		{"loopback", config.GatewaySettings{Bind: "loopback", Port: 18790}, "127.0.0.1:18790"},
		{"lan", config.GatewaySettings{Bind: "lan", Port: 18790}, "0.0.0.0:18790"},
		{"custom with host", config.GatewaySettings{Bind: "custom", Host: "10.0.0.5", Port: 9000}, "10.0.0.5:9000"},
		{"custom without host", config.GatewaySettings{Bind: "custom", Port: 9000}, "0.0.0.0:9000"},
		{"unknown defaults to loopback", config.GatewaySettings{Bind: "", Port: 1}, "127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveBindAddr(tt.gw))
		})
	}
}
