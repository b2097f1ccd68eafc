// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	ToolReachability = "udp_reachability"
	ToolLogin        = "udp_login"
	ToolCAPath       = "tls_ca_check"
	ToolClientCerts  = "tls_client_check"
	ToolAnalyzeChain = "analyze_server_chain"
	ToolCRLCache     = "crl_cache_status"
)

// createTools returns every diagnostics tool with its handler.
//
// The function defines the following tools:
//   - udp_reachability: Probes one or all configured RADIUS servers with throwaway credentials
//   - udp_login: Runs an EAP login with real credentials against one server
//   - tls_ca_check: Verifies a RADIUS/TLS server certificate against the CA path
//   - tls_client_check: Checks which configured client certificates a RADIUS/TLS server accepts
//   - analyze_server_chain: Analyses a PEM server chain without a probe
//   - crl_cache_status: Reports the CRLs downloaded so far and the cache hit rate
func createTools() []ToolDefinition {
	probeOptions := []mcp.ToolOption{
		mcp.WithBoolean("operator_name",
			mcp.Description("Send the Operator-Name attribute (default: true)"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("fragment",
			mcp.Description("Pad the first request to force IP fragmentation (default: true)"),
			mcp.DefaultBool(true),
		),
	}

	return []ToolDefinition{
		{
			Tool: mcp.NewTool(ToolReachability, append([]mcp.ToolOption{
				mcp.WithDescription("Check that configured RADIUS servers answer EAP. A reject proves the server is alive."),
				mcp.WithNumber("index",
					mcp.Description("Index of the configured server; omit to probe all servers"),
				),
				mcp.WithString("realm",
					mcp.Description("Realm under test; defaults to the profile realm"),
				),
			}, probeOptions...)...),
			Handler: handleReachability,
			Role:    "reachability",
		},
		{
			Tool: mcp.NewTool(ToolLogin, append([]mcp.ToolOption{
				mcp.WithDescription("Run an EAP login with real credentials and inspect the server certificate chain"),
				mcp.WithNumber("index",
					mcp.Description("Index of the configured server (default: 0)"),
					mcp.DefaultNumber(0),
				),
				mcp.WithString("eap",
					mcp.Required(),
					mcp.Description("EAP method, e.g. 'EAP-TLS', 'PEAP-MSCHAPv2', 'TTLS-PAP', 'EAP-pwd'"),
				),
				mcp.WithString("inner",
					mcp.Required(),
					mcp.Description("Inner (real) identity"),
				),
				mcp.WithString("outer",
					mcp.Description("Outer identity or realm; derived from the inner identity when empty"),
				),
				mcp.WithString("password",
					mcp.Description("Password of the inner identity"),
				),
				mcp.WithString("client_cert",
					mcp.Description("Path of a PKCS#12 or PEM client certificate with key"),
				),
				mcp.WithString("client_cert_password",
					mcp.Description("Password of the client certificate key"),
				),
				mcp.WithString("realm",
					mcp.Description("Realm under test; defaults to the profile realm"),
				),
			}, probeOptions...)...),
			Handler: handleLogin,
			Role:    "login",
		},
		{
			Tool: mcp.NewTool(ToolCAPath,
				mcp.WithDescription("Verify the certificate of a RADIUS/TLS server against the configured CA path"),
				mcp.WithString("host",
					mcp.Required(),
					mcp.Description("Server as host:port"),
				),
			),
			Handler: handleCAPath,
			Role:    "caPath",
		},
		{
			Tool: mcp.NewTool(ToolClientCerts,
				mcp.WithDescription("Check which configured client certificates a RADIUS/TLS server accepts"),
				mcp.WithString("host",
					mcp.Required(),
					mcp.Description("Server as host:port"),
				),
			),
			Handler: handleClientCerts,
			Role:    "clientCerts",
		},
		{
			Tool: mcp.NewTool(ToolAnalyzeChain,
				mcp.WithDescription("Analyse a server certificate chain for trust, hostname and certificate findings"),
				mcp.WithString("chain",
					mcp.Required(),
					mcp.Description("PEM bundle as the server presents it, or the path of a PEM file"),
				),
				mcp.WithArray("server_names",
					mcp.Description("Expected server names; replace those of the profile"),
					mcp.WithStringItems(),
				),
			),
			Handler: handleAnalyzeChain,
			Role:    "analyzer",
		},
		{
			Tool: mcp.NewTool(ToolCRLCache,
				mcp.WithDescription("Report the CRLs kept between calls and the cache hit rate"),
			),
			Handler: handleCRLCache,
			Role:    "crlCache",
		},
	}
}
