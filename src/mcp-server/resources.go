// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	ResourceConfigTemplate = "config://template"
	ResourceConfigSchema   = "config://schema"
	ResourceVersion        = "info://version"
	ResourceOutcomes       = "docs://outcomes"
)

// createResources returns the static resources of the server.
func createResources() []server.ServerResource {
	return []server.ServerResource{
		{
			Resource: mcp.NewResource(ResourceConfigTemplate, "Configuration Template",
				mcp.WithResourceDescription("Annotated diagnostics configuration to start from"),
				mcp.WithMIMEType("application/yaml"),
			),
			Handler: handleConfigTemplateResource,
		},
		{
			Resource: mcp.NewResource(ResourceConfigSchema, "Configuration Schema",
				mcp.WithResourceDescription("JSON Schema every configuration file is checked against"),
				mcp.WithMIMEType("application/schema+json"),
			),
			Handler: handleConfigSchemaResource,
		},
		{
			Resource: mcp.NewResource(ResourceVersion, "Server Version",
				mcp.WithResourceDescription("Server version, tools and supported EAP methods"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: handleVersionResource,
		},
		{
			Resource: mcp.NewResource(ResourceOutcomes, "Outcomes and Findings",
				mcp.WithResourceDescription("What probe outcomes, certificate findings and trust tiers mean"),
				mcp.WithMIMEType("text/markdown"),
			),
			Handler: handleOutcomesResource,
		},
	}
}
