// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/jsonrpc"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
	}{
		{
			name:  "Canonical Request",
			input: `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`,
			expected: map[string]any{
				"jsonrpc": "2.0",
				"id":      int64(7),
				"method":  "tools/list",
			},
		},
		{
			name:  "Capitalized Members",
			input: `{"JSONRPC":"2.0","ID":1,"Method":"ping","Params":{"Cursor":"a"}}`,
			expected: map[string]any{
				"jsonrpc": "2.0",
				"id":      int64(1),
				"method":  "ping",
				"params":  map[string]any{"Cursor": "a"},
			},
		},
		{
			name:  "Missing Version",
			input: `{"id":"abc","method":"ping"}`,
			expected: map[string]any{
				"jsonrpc": mcp.JSONRPC_VERSION,
				"id":      "abc",
				"method":  "ping",
			},
		},
		{
			name:  "Empty Object ID",
			input: `{"jsonrpc":"2.0","id":{},"method":"notifications/initialized"}`,
			expected: map[string]any{
				"jsonrpc": "2.0",
				"id":      nil,
				"method":  "notifications/initialized",
			},
		},
		{
			name:  "Fractional ID",
			input: `{"jsonrpc":"2.0","id":1.5,"method":"ping"}`,
			expected: map[string]any{
				"jsonrpc": "2.0",
				"id":      1.5,
				"method":  "ping",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, jsonrpc.Normalize(decode(t, tt.input)))
		})
	}
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, int64(42), jsonrpc.NormalizeID(float64(42)))
	assert.Equal(t, int64(-1), jsonrpc.NormalizeID(float64(-1)))
	assert.Equal(t, 0.25, jsonrpc.NormalizeID(0.25))
	assert.Equal(t, "42", jsonrpc.NormalizeID("42"))
	assert.Nil(t, jsonrpc.NormalizeID(nil))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Call Params",
			testFunc: func(t *testing.T) {
				params := decode(t, `{"name":"udp_login","arguments":{"index":0,"inner":"alice@example.edu"}}`)

				var p mcp.CallToolParams
				require.NoError(t, jsonrpc.Decode(params, &p))
				assert.Equal(t, "udp_login", p.Name)
				assert.Equal(t, map[string]any{"index": float64(0), "inner": "alice@example.edu"}, p.Arguments)
			},
		},
		{
			name: "Prompt Arguments Must Be Strings",
			testFunc: func(t *testing.T) {
				var p mcp.GetPromptParams
				err := jsonrpc.Decode(decode(t, `{"name":"diagnose-realm","arguments":{"realm":7}}`), &p)
				assert.Error(t, err)
			},
		},
		{
			name: "Unencodable Source",
			testFunc: func(t *testing.T) {
				var p mcp.PaginatedParams
				assert.Error(t, jsonrpc.Decode(map[string]any{"cursor": make(chan int)}, &p))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
