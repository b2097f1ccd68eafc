// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package jsonrpc normalizes decoded [JSON-RPC 2.0] messages for the
// in-memory MCP bridge. Member names are folded to lower case, whole-number
// IDs become int64 and a missing version is filled in, so that requests from
// loosely written clients reach the server in canonical form.
//
// [JSON-RPC 2.0]: https://www.jsonrpc.org/specification
package jsonrpc
