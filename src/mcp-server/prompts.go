// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server/templates"
)

// Prompt names.
const (
	PromptDiagnoseRealm = "diagnose-realm"
	PromptRadSecPeer    = "audit-radsec-peer"
)

// createPrompts returns the guided workflows. Steps name tools by role, so
// tools must be the set the server registers.
func createPrompts(tools []ToolDefinition) []server.ServerPrompt {
	roles := toolRoles(tools)
	return []server.ServerPrompt{
		{
			Prompt: mcp.NewPrompt(PromptDiagnoseRealm,
				mcp.WithPromptDescription("Find out why users of a realm cannot authenticate"),
				mcp.WithArgument("realm",
					mcp.ArgumentDescription("Realm to diagnose, e.g. example.edu"),
					mcp.RequiredArgument(),
				),
				mcp.WithArgument("username",
					mcp.ArgumentDescription("Test account for the login step"),
				),
			),
			Handler: promptHandler(templates.DiagnoseRealm, "Realm Diagnosis", roles, "realm"),
		},
		{
			Prompt: mcp.NewPrompt(PromptRadSecPeer,
				mcp.WithPromptDescription("Audit the certificates of a RADIUS/TLS peer"),
				mcp.WithArgument("host",
					mcp.ArgumentDescription("Peer as host:port"),
					mcp.RequiredArgument(),
				),
			),
			Handler: promptHandler(templates.RadSecPeer, "RADIUS/TLS Peer Audit", roles, "host"),
		},
	}
}
