package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestDial_CallsRPC(t *testing.T) {
	srv, ts := testServer(t)

	conn, err := Dial(context.Background(), wsURL(ts), DialOptions{Auth: &ConnectAuth{Token: "test-token-123"}})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, ProtocolVersion, conn.Hello().Protocol)
	assert.Equal(t, srv.Methods(), conn.Hello().Features.Methods)

	raw, err := conn.Call(context.Background(), "config.get", configGetParams{Key: "gateway.port"})
	require.NoError(t, err)
	var got struct {
		Value float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, float64(18789), got.Value)

	raw, err = conn.Call(context.Background(), "health", nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"ok"`)
}

func TestDial_RPCError(t *testing.T) {
	_, ts := testServer(t)

	conn, err := Dial(context.Background(), wsURL(ts), DialOptions{Auth: &ConnectAuth{Token: "test-token-123"}})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Call(context.Background(), "nonexistent.method", nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "method_not_found", rpcErr.Code)
}

func TestDial_WrongToken(t *testing.T) {
	_, ts := testServer(t)

	_, err := Dial(context.Background(), wsURL(ts), DialOptions{Auth: &ConnectAuth{Token: "wrong"}})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "unauthorized", rpcErr.Code)
}

func TestDial_NoChallenge(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteJSON(Frame{Type: FrameTypeEvent, Event: "something.else"})
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	_, err := Dial(context.Background(), wsURL(ts), DialOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected connect.challenge")
}

func TestDial_ContextCancelUnblocksCall(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		challenge, _ := NewEvent(EventConnectChallenge, map[string]any{"nonce": "n"}, 0)
		c.WriteJSON(challenge)
		var req Frame
		if c.ReadJSON(&req) != nil {
			return
		}
		resp, _ := NewResponse(req.ID, HelloOK{Protocol: ProtocolVersion})
		c.WriteJSON(resp)
		// Never answer anything else.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	conn, err := Dial(context.Background(), wsURL(ts), DialOptions{})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = conn.Call(ctx, "health", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
