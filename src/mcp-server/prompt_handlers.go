// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/mcp-server/templates"
)

// promptTemplateData holds the data used to populate prompt templates.
type promptTemplateData struct {
	Realm    string
	Username string
	Host     string
	// ToolRoles maps tool roles to tool names.
	ToolRoles map[string]string
}

// promptHandler renders templateName with the request arguments. Missing
// required arguments fail the request.
func promptHandler(templateName, title string, roles map[string]string, required ...string) server.PromptHandlerFunc {
	return func(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := request.Params.Arguments
		for _, name := range required {
			if strings.TrimSpace(args[name]) == "" {
				return nil, fmt.Errorf("prompt %s: missing argument %q", request.Params.Name, name)
			}
		}

		messages, err := parsePromptTemplate(templateName, promptTemplateData{
			Realm:     strings.TrimSpace(args["realm"]),
			Username:  strings.TrimSpace(args["username"]),
			Host:      strings.TrimSpace(args["host"]),
			ToolRoles: roles,
		})
		if err != nil {
			return nil, err
		}
		return mcp.NewGetPromptResult(title, messages), nil
	}
}

// parsePromptTemplate executes an embedded prompt template and splits the
// output into messages. "### User:" and "### Assistant:" lines start a message
// of that role; other headings and blank lines are dropped.
func parsePromptTemplate(templateName string, data promptTemplateData) ([]mcp.PromptMessage, error) {
	content, err := templates.MagicEmbed.ReadFile(templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", templateName, err)
	}

	tmpl, err := template.New(templateName).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	var (
		messages []mcp.PromptMessage
		role     mcp.Role
		text     strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			messages = append(messages, mcp.NewPromptMessage(role, mcp.NewTextContent(text.String())))
			text.Reset()
		}
	}

	for line := range strings.SplitSeq(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "### Assistant:"):
			flush()
			role = mcp.RoleAssistant
		case strings.HasPrefix(line, "### User:"):
			flush()
			role = mcp.RoleUser
		case line == "", strings.HasPrefix(line, "#"), role == "":
		default:
			if text.Len() > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(line)
		}
	}
	flush()

	return messages, nil
}
