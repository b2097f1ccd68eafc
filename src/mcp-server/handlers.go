// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server/templates"
)

// instructionData holds the data used to populate the server instructions template.
type instructionData struct {
	Tools []toolInfo
	// ToolRoles maps tool roles to tool names.
	ToolRoles map[string]string
}

// toolInfo represents information about an MCP tool for template rendering.
type toolInfo struct {
	Name        string
	Description string
}

// loadInstructions renders the embedded instructions template for tools.
func loadInstructions(tools []ToolDefinition) (string, error) {
	templateBytes, err := templates.MagicEmbed.ReadFile(templates.Instructions)
	if err != nil {
		return "", fmt.Errorf("failed to load MCP server instructions template: %w", err)
	}

	data := instructionData{ToolRoles: toolRoles(tools)}
	for _, tool := range tools {
		data.Tools = append(data.Tools, toolInfo{
			Name:        tool.Tool.Name,
			Description: tool.Tool.Description,
		})
	}

	tmpl, err := template.New("instructions").Parse(string(templateBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse instructions template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute instructions template: %w", err)
	}

	return buf.String(), nil
}

// toolRoles maps the role of each tool to its name.
func toolRoles(tools []ToolDefinition) map[string]string {
	roles := make(map[string]string, len(tools))
	for _, tool := range tools {
		if tool.Role != "" {
			roles[tool.Role] = tool.Tool.Name
		}
	}
	return roles
}
