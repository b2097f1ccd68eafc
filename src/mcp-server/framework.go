// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"errors"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// ServerName is announced to MCP clients.
const ServerName = "EAP/RADIUS Diagnostics"

var (
	// ErrNoDiagnostics indicates that [ServerBuilder.Build] was called without
	// [ServerBuilder.WithDiagnostics].
	ErrNoDiagnostics = errors.New("mcpserver: diagnostics not configured")

	// ErrRealmRequired indicates a reachability probe without a realm from
	// the call or the profile.
	ErrRealmRequired = errors.New("mcpserver: realm required")
)

// SessionFactory builds the session a tool call runs in.
type SessionFactory func(ctx context.Context, cfg *config.Config, run config.Run) (*session.Session, error)

// Diagnostics holds what tool handlers run against.
//
// Fields:
//   - Config: The loaded diagnostics configuration
//   - Profile: Institution profile enabling trust and hostname checks (may be nil)
//   - Version: Version string for the User-Agent of CRL downloads
//   - Logger: Receives probe traces; keep it off stdout when serving stdio
//   - NewSession: Session constructor, defaults to [config.Config.NewSession]
//   - CRLCache: CRLs shared by every call; nil gives each call a private cache
type Diagnostics struct {
	Config     *config.Config
	Profile    *diag.Profile
	Version    string
	Logger     logger.Logger
	NewSession SessionFactory
	CRLCache   *x509chain.CRLCache
}

// session builds a session for one call. realm overrides the profile realm;
// serverNames, when given, replace the profile's expected names.
func (d *Diagnostics) session(ctx context.Context, realm string, needRealm bool, serverNames []string) (*session.Session, error) {
	profile := d.Profile
	if len(serverNames) > 0 {
		p := diag.Profile{}
		if profile != nil {
			p = *profile
		}
		p.ServerNames = slices.Clone(serverNames)
		profile = &p
	}

	if realm == "" && profile != nil {
		realm = profile.Realm
	}
	if needRealm && realm == "" {
		return nil, ErrRealmRequired
	}

	newSession := d.NewSession
	if newSession == nil {
		newSession = func(ctx context.Context, cfg *config.Config, run config.Run) (*session.Session, error) {
			return cfg.NewSession(ctx, run)
		}
	}
	return newSession(ctx, d.Config, config.Run{
		Realm:    realm,
		Profile:  profile,
		Logger:   d.Logger,
		Version:  d.Version,
		CRLCache: d.CRLCache,
	})
}

// ToolHandler defines the signature for tool handlers that matches [MCP]
// server expectations.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ToolHandlerWithDiagnostics is a tool handler that runs checks.
type ToolHandlerWithDiagnostics func(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error)

// ResourceHandler defines the signature for resource handlers.
type ResourceHandler = func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)

// ToolDefinition pairs a tool with its handler. Role names the tool in the
// instructions template.
type ToolDefinition struct {
	Tool    mcp.Tool
	Handler ToolHandlerWithDiagnostics
	Role    string
}

// ServerDependencies holds everything [ServerBuilder.Build] wires.
type ServerDependencies struct {
	Version      string
	Diagnostics  *Diagnostics
	Tools        []ToolDefinition
	Resources    []server.ServerResource
	Prompts      []server.ServerPrompt
	Instructions string
}

// ServerBuilder constructs the [MCP] server using a fluent interface.
//
// Example:
//
//	s, err := NewServerBuilder().
//	    WithVersion("1.0.0").
//	    WithDiagnostics(d).
//	    WithDefaultTools().
//	    WithResources(createResources()...).
//	    WithPrompts(createPrompts(createTools())...).
//	    Build()
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type ServerBuilder struct{ deps ServerDependencies }

// NewServerBuilder creates a new server builder with empty dependencies.
func NewServerBuilder() *ServerBuilder { return &ServerBuilder{} }

// WithVersion sets the version announced to clients.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.deps.Version = version
	return b
}

// WithDiagnostics sets what the tools run against.
func (b *ServerBuilder) WithDiagnostics(d *Diagnostics) *ServerBuilder {
	b.deps.Diagnostics = d
	return b
}

// WithTools adds tool definitions.
func (b *ServerBuilder) WithTools(tools ...ToolDefinition) *ServerBuilder {
	b.deps.Tools = append(b.deps.Tools, tools...)
	return b
}

// WithDefaultTools adds every diagnostics tool from createTools.
func (b *ServerBuilder) WithDefaultTools() *ServerBuilder {
	return b.WithTools(createTools()...)
}

// WithResources adds resources, read by clients through URIs such as
// "config://template".
func (b *ServerBuilder) WithResources(resources ...server.ServerResource) *ServerBuilder {
	b.deps.Resources = append(b.deps.Resources, resources...)
	return b
}

// WithPrompts adds guided workflows that clients fetch by name.
func (b *ServerBuilder) WithPrompts(prompts ...server.ServerPrompt) *ServerBuilder {
	b.deps.Prompts = append(b.deps.Prompts, prompts...)
	return b
}

// WithInstructions sets the instructions sent on initialization.
func (b *ServerBuilder) WithInstructions(instructions string) *ServerBuilder {
	b.deps.Instructions = instructions
	return b
}

// Build creates the [MCP] server. Tool handlers receive the configured
// [Diagnostics].
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
func (b *ServerBuilder) Build() (*server.MCPServer, error) {
	if b.deps.Diagnostics == nil || b.deps.Diagnostics.Config == nil {
		return nil, ErrNoDiagnostics
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithRecovery(),
	}
	if len(b.deps.Prompts) > 0 {
		opts = append(opts, server.WithPromptCapabilities(true))
	}
	if b.deps.Instructions != "" {
		opts = append(opts, server.WithInstructions(b.deps.Instructions))
	}
	s := server.NewMCPServer(ServerName, b.deps.Version, opts...)

	for _, tool := range b.serverTools() {
		s.AddTool(tool.Tool, tool.Handler)
	}
	for _, resource := range b.deps.Resources {
		s.AddResource(resource.Resource, resource.Handler)
	}
	if len(b.deps.Prompts) > 0 {
		s.AddPrompts(b.deps.Prompts...)
	}

	return s, nil
}

// serverTools binds the tool handlers to the diagnostics.
func (b *ServerBuilder) serverTools() []server.ServerTool {
	d := b.deps.Diagnostics
	tools := make([]server.ServerTool, 0, len(b.deps.Tools))
	for _, tool := range b.deps.Tools {
		handler := tool.Handler
		tools = append(tools, server.ServerTool{
			Tool: tool.Tool,
			Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handler(ctx, request, d)
			},
		})
	}
	return tools
}
