package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/attachkit/internal/version"
)

// handshakeTimeout bounds Dial when ctx has no deadline.
const handshakeTimeout = 10 * time.Second

// RPCError is a failed response returned by a gateway.
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	return "gateway: " + e.Code + ": " + e.Message
}

// DialOptions configures Dial.
type DialOptions struct {
	Auth   *ConnectAuth
	Client ClientInfo // zero value identifies the attachkit CLI
	Header http.Header
}

// Conn is an authenticated connection to a running gateway. Calls are
// serialized; events that arrive while waiting for a response are dropped.
type Conn struct {
	ws    *websocket.Conn
	hello HelloOK

	mu     sync.Mutex
	nextID int64
}

// Dial opens the WebSocket at url and completes the challenge, connect and
// hello exchange.
func Dial(ctx context.Context, url string, opts DialOptions) (*Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dialing gateway: %w", err)
	}
	ws.SetReadLimit(maxFrameBytes)

	c := &Conn{ws: ws}
	if err := c.handshake(ctx, opts); err != nil {
		ws.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) handshake(ctx context.Context, opts DialOptions) error {
	stop := c.watch(ctx)
	defer stop()

	var challenge Frame
	if err := c.ws.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("reading challenge: %w", err)
	}
	if challenge.Type != FrameTypeEvent || challenge.Event != EventConnectChallenge {
		return fmt.Errorf("expected %s, got type=%s event=%s", EventConnectChallenge, challenge.Type, challenge.Event)
	}

	client := opts.Client
	if client.ID == "" {
		client = ClientInfo{
			ID:       "attachkit-cli",
			Version:  version.Version,
			Platform: runtime.GOOS,
			Mode:     "cli",
		}
	}
	req, err := NewRequest(MethodConnect, MethodConnect, ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client:      client,
		Auth:        opts.Auth,
	})
	if err != nil {
		return err
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return fmt.Errorf("sending connect: %w", err)
	}

	payload, err := c.awaitResponse(MethodConnect)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, &c.hello); err != nil {
		return fmt.Errorf("parsing hello: %w", err)
	}
	if c.hello.Protocol != ProtocolVersion {
		return fmt.Errorf("gateway speaks protocol %d, want %d", c.hello.Protocol, ProtocolVersion)
	}
	return nil
}

// Hello returns the server's hello payload.
func (c *Conn) Hello() HelloOK { return c.hello }

// Call sends one request and returns the payload of its response. A failed
// response is returned as *RPCError.
func (c *Conn) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := "req-" + strconv.FormatInt(c.nextID, 10)
	req, err := NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s params: %w", method, err)
	}

	stop := c.watch(ctx)
	defer stop()

	if err := c.ws.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}
	return c.awaitResponse(id)
}

func (c *Conn) awaitResponse(id string) (json.RawMessage, error) {
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if f.Type != FrameTypeResponse || f.ID != id {
			continue
		}
		if f.OK == nil || !*f.OK {
			if f.Error == nil {
				return nil, &RPCError{Code: "unknown", Message: "request failed"}
			}
			return nil, &RPCError{Code: f.Error.Code, Message: f.Error.Message}
		}
		return f.Payload, nil
	}
}

// watch applies the deadline of ctx to the socket and unblocks pending reads
// when ctx is cancelled. The returned func clears both.
func (c *Conn) watch(ctx context.Context) func() {
	if dl, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(dl)
		c.ws.SetWriteDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(time.Now())
	})
	return func() {
		stop()
		c.ws.SetReadDeadline(time.Time{})
		c.ws.SetWriteDeadline(time.Time{})
	}
}

// Close says goodbye and closes the socket.
func (c *Conn) Close() error {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
