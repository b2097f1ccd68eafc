// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package templates provides embedded filesystem access for the markdown
// served by the diagnostics [MCP] server: the server instructions template,
// the outcome reference and the prompt workflows.
//
// Example usage:
//
//	import "github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server/templates"
//
//	content, err := templates.MagicEmbed.ReadFile("outcomes.md")
//	if err != nil {
//		return fmt.Errorf("failed to read outcome reference: %w", err)
//	}
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
package templates
