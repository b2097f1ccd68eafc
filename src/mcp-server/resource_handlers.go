// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server/templates"
)

// handleConfigTemplateResource serves the annotated YAML configuration.
func handleConfigTemplateResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ResourceConfigTemplate,
			MIMEType: "application/yaml",
			Text:     string(config.Template()),
		},
	}, nil
}

// handleConfigSchemaResource serves the configuration JSON Schema.
func handleConfigSchemaResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ResourceConfigSchema,
			MIMEType: "application/schema+json",
			Text:     string(config.Schema()),
		},
	}, nil
}

// handleVersionResource describes the server: version, tools, resources and
// the EAP methods udp_login accepts.
func handleVersionResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var tools []string
	for _, t := range createTools() {
		tools = append(tools, t.Tool.Name)
	}
	var resources []string
	for _, r := range createResources() {
		resources = append(resources, r.Resource.URI)
	}
	var methods []string
	for _, m := range eap.Methods {
		methods = append(methods, m.Name)
	}

	info := map[string]any{
		"name":    ServerName,
		"version": GetVersion(),
		"capabilities": map[string]any{
			"tools":     tools,
			"resources": resources,
		},
		"eapMethods": methods,
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal version info: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ResourceVersion,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleOutcomesResource serves the outcome and findings reference.
func handleOutcomesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content, err := templates.MagicEmbed.ReadFile(templates.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome reference: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ResourceOutcomes,
			MIMEType: "text/markdown",
			Text:     string(content),
		},
	}, nil
}
