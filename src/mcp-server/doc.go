// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package mcpserver exposes the EAP/RADIUS diagnostics over the Model Context
// Protocol ([MCP]). Each tool runs one check of a fresh diagnostics session
// and answers with the JSON rendering of its result, so an assistant can probe
// RADIUS servers, check RADIUS/TLS peers and review certificate findings.
//
// The server is assembled with [ServerBuilder] and served over stdio by [Run].
// Configuration comes from the file named by EAP_DIAG_CONFIG_FILE and an
// optional institution profile named by EAP_DIAG_PROFILE.
//
// Two prompts, diagnose-realm and audit-radsec-peer, walk a client through
// the tools in order.
//
// Agents built with the [Google ADK] reach the same server without a
// subprocess: [ADKTransportBuilder] connects it to an [InMemoryTransport],
// which speaks the transport interface of the official MCP Go SDK.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
// [Google ADK]: https://pkg.go.dev/google.golang.org/adk
package mcpserver
