// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	mcptransport "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/semaphore"

	rpcmsg "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/jsonrpc"
)

// BridgeSessionID is reported by every connection of an [InMemoryTransport].
const BridgeSessionID = "eap-radius-diag-in-memory"

// maxInFlight bounds the requests a bridge serves at once. A login can run
// for minutes, so calls are not serialized.
const maxInFlight = 32

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

var (
	// ErrTransportConnected is returned when a server is connected to a
	// transport a second time.
	ErrTransportConnected = errors.New("mcpserver: transport already connected")

	errInvalidParams = errors.New("invalid params")
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// bridgeMethod serves one MCP method through the in-process client.
type bridgeMethod func(ctx context.Context, params map[string]any) (any, error)

// InMemoryTransport serves a [server.MCPServer] to clients of the official
// [MCP Go SDK], such as the [Google ADK] MCP toolset, inside one process.
// Requests are decoded, replayed through a mark3labs in-process client and
// answered on the same transport. Server notifications are forwarded.
//
// [MCP Go SDK]: https://pkg.go.dev/github.com/modelcontextprotocol/go-sdk
// [Google ADK]: https://pkg.go.dev/google.golang.org/adk
type InMemoryTransport struct {
	mu      sync.Mutex
	client  *client.Client
	started bool
	methods map[string]bridgeMethod

	in  chan []byte // requests from the SDK client
	out chan []byte // responses and notifications for it

	ctx    context.Context
	cancel context.CancelFunc

	sem   *semaphore.Weighted
	loop  sync.WaitGroup
	calls sync.WaitGroup
}

// NewInMemoryTransport creates an unconnected transport living until ctx is
// done or [InMemoryTransport.Close] is called.
func NewInMemoryTransport(ctx context.Context) *InMemoryTransport {
	ctx, cancel := context.WithCancel(ctx)
	t := &InMemoryTransport{
		in:     make(chan []byte, 1),
		out:    make(chan []byte, 1),
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(maxInFlight),
	}
	t.methods = map[string]bridgeMethod{
		string(mcp.MethodInitialize):    t.initialize,
		string(mcp.MethodPing):          t.ping,
		string(mcp.MethodToolsList):     t.listTools,
		string(mcp.MethodToolsCall):     t.callTool,
		string(mcp.MethodResourcesList): t.listResources,
		string(mcp.MethodResourcesRead): t.readResource,
		string(mcp.MethodPromptsList):   t.listPrompts,
		string(mcp.MethodPromptsGet):    t.getPrompt,
	}
	return t
}

// ConnectServer attaches srv through an in-process client and starts
// serving requests.
func (t *InMemoryTransport) ConnectServer(_ context.Context, srv *server.MCPServer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrTransportConnected
	}

	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return fmt.Errorf("failed to create in-process client: %w", err)
	}
	c.OnNotification(func(n mcp.JSONRPCNotification) {
		t.send(map[string]any{
			"jsonrpc": mcp.JSONRPC_VERSION,
			"method":  n.Method,
			"params":  n.Params,
		})
	})
	if err := c.Start(t.ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	t.client = c
	t.started = true
	t.loop.Add(1)
	go t.serveLoop()
	return nil
}

// Connect implements [mcptransport.Transport].
func (t *InMemoryTransport) Connect(context.Context) (mcptransport.Connection, error) {
	return &bridgeConnection{t: t}, nil
}

// ReadMessage returns the next response or notification. It returns
// [io.EOF] once the transport is closed.
func (t *InMemoryTransport) ReadMessage() ([]byte, error) {
	return t.read(context.Background())
}

func (t *InMemoryTransport) read(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-t.out:
		return msg, nil
	case <-t.ctx.Done():
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteMessage queues one encoded JSON-RPC message for the server.
func (t *InMemoryTransport) WriteMessage(data []byte) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	select {
	case t.in <- data:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

// Close stops the transport and waits for calls in flight to return.
func (t *InMemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancel()
	t.loop.Wait()
	t.calls.Wait()

	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
	t.started = false
	return nil
}

func (t *InMemoryTransport) serveLoop() {
	defer t.loop.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case data := <-t.in:
			if err := t.sem.Acquire(t.ctx, 1); err != nil {
				return
			}
			t.calls.Add(1)
			go func() {
				defer t.calls.Done()
				defer t.sem.Release(1)
				t.serve(data)
			}()
		}
	}
}

// serve answers one message. Notifications get no answer.
func (t *InMemoryTransport) serve(data []byte) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.reply(nil, nil, &rpcError{Code: codeParseError, Message: "parse error"})
		return
	}

	msg := rpcmsg.Normalize(raw)
	id := msg["id"]
	method, ok := msg["method"].(string)
	if !ok {
		if id != nil {
			t.reply(id, nil, &rpcError{
				Code:    codeInvalidRequest,
				Message: fmt.Sprintf("invalid method: expected string, got %T", msg["method"]),
			})
		}
		return
	}
	if id == nil {
		return
	}

	handle, ok := t.methods[method]
	if !ok {
		t.reply(id, nil, &rpcError{Code: codeMethodNotFound, Message: "method not supported: " + method})
		return
	}

	params, _ := msg["params"].(map[string]any)
	result, err := handle(t.ctx, params)
	if err != nil {
		code := codeInternalError
		if errors.Is(err, errInvalidParams) {
			code = codeInvalidParams
		}
		t.reply(id, nil, &rpcError{Code: code, Message: err.Error()})
		return
	}
	t.reply(id, result, nil)
}

func (t *InMemoryTransport) reply(id, result any, rpcErr *rpcError) {
	t.send(rpcResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Result:  result,
		Error:   rpcErr,
	})
}

// send drops v once the transport is closed.
func (t *InMemoryTransport) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case t.out <- data:
	case <-t.ctx.Done():
	}
}

// decodeParams decodes params into dest. required names the members that
// must be present.
func decodeParams(method string, params map[string]any, dest any, required ...string) error {
	for _, name := range required {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: %s requires %q", errInvalidParams, method, name)
		}
	}
	if params == nil {
		return nil
	}
	if err := rpcmsg.Decode(params, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", errInvalidParams, method, err)
	}
	return nil
}

func (t *InMemoryTransport) initialize(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.InitializeRequest
	if err := decodeParams(string(mcp.MethodInitialize), params, &req.Params, "protocolVersion"); err != nil {
		return nil, err
	}
	result, err := t.client.Initialize(ctx, req)
	if err != nil && mcp.IsUnsupportedProtocolVersion(err) {
		return nil, fmt.Errorf("unsupported protocol version: %w", err)
	}
	return result, err
}

func (t *InMemoryTransport) ping(ctx context.Context, _ map[string]any) (any, error) {
	if err := t.client.Ping(ctx); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (t *InMemoryTransport) listTools(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.ListToolsRequest
	if err := decodeParams(string(mcp.MethodToolsList), params, &req.Params); err != nil {
		return nil, err
	}
	return t.client.ListTools(ctx, req)
}

func (t *InMemoryTransport) callTool(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.CallToolRequest
	if err := decodeParams(string(mcp.MethodToolsCall), params, &req.Params, "name"); err != nil {
		return nil, err
	}
	return t.client.CallTool(ctx, req)
}

func (t *InMemoryTransport) listResources(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.ListResourcesRequest
	if err := decodeParams(string(mcp.MethodResourcesList), params, &req.Params); err != nil {
		return nil, err
	}
	return t.client.ListResources(ctx, req)
}

func (t *InMemoryTransport) readResource(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.ReadResourceRequest
	if err := decodeParams(string(mcp.MethodResourcesRead), params, &req.Params, "uri"); err != nil {
		return nil, err
	}
	return t.client.ReadResource(ctx, req)
}

func (t *InMemoryTransport) listPrompts(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.ListPromptsRequest
	if err := decodeParams(string(mcp.MethodPromptsList), params, &req.Params); err != nil {
		return nil, err
	}
	return t.client.ListPrompts(ctx, req)
}

func (t *InMemoryTransport) getPrompt(ctx context.Context, params map[string]any) (any, error) {
	var req mcp.GetPromptRequest
	if err := decodeParams(string(mcp.MethodPromptsGet), params, &req.Params, "name"); err != nil {
		return nil, err
	}
	return t.client.GetPrompt(ctx, req)
}

// bridgeConnection is the [mcptransport.Connection] of an [InMemoryTransport].
type bridgeConnection struct{ t *InMemoryTransport }

// Read implements [mcptransport.Connection].
func (c *bridgeConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	data, err := c.t.read(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON-RPC message: %w", err)
	}
	return msg, nil
}

// Write implements [mcptransport.Connection].
func (c *bridgeConnection) Write(_ context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return c.t.WriteMessage(data)
}

// Close implements [mcptransport.Connection].
func (c *bridgeConnection) Close() error { return c.t.Close() }

// SessionID implements [mcptransport.Connection].
func (c *bridgeConnection) SessionID() string { return BridgeSessionID }

// BuildInMemoryTransport builds the server and connects it to a new
// [InMemoryTransport], ready for [mcptransport.Client.Connect] or the ADK
// MCP toolset.
func (b *ServerBuilder) BuildInMemoryTransport(ctx context.Context) (*InMemoryTransport, error) {
	srv, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build server: %w", err)
	}

	t := NewInMemoryTransport(ctx)
	if err := t.ConnectServer(ctx, srv); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to connect server to transport: %w", err)
	}
	return t, nil
}
