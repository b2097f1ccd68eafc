// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package jsonrpc

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Normalize returns msg with lower-case top-level member names. The ID goes
// through [NormalizeID] and an empty object ID becomes null. A message
// without "jsonrpc" gets version 2.0.
//
// Only top-level names are folded; params are passed on untouched.
func Normalize(msg map[string]any) map[string]any {
	out := make(map[string]any, len(msg)+1)
	for k, v := range msg {
		key := strings.ToLower(k)
		if key == "id" {
			if obj, ok := v.(map[string]any); ok && len(obj) == 0 {
				v = nil
			}
			v = NormalizeID(v)
		}
		out[key] = v
	}
	if _, ok := out["jsonrpc"]; !ok {
		out["jsonrpc"] = mcp.JSONRPC_VERSION
	}
	return out
}

// NormalizeID turns a whole-number float64, as produced by encoding/json,
// into int64. Other values are returned unchanged.
func NormalizeID(id any) any {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return id
}

// Decode converts a decoded JSON value, typically a params object, into
// dest by a JSON round trip.
func Decode(src, dest any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
