// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/report"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
)

// jsonResult renders v as the text of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var b strings.Builder
	if err := report.JSON(&b, v); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render result: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleReachability probes one server, or all of them when no index is given.
func handleReachability(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	index := request.GetInt("index", -1)
	operatorName := request.GetBool("operator_name", true)
	fragment := request.GetBool("fragment", true)

	s, err := d.session(ctx, request.GetString("realm", ""), true, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to prepare session: %v", err)), nil
	}

	var results []*diag.Result
	if index < 0 {
		results, err = s.ReachabilityAll(ctx, operatorName, fragment)
	} else {
		var res *diag.Result
		res, err = s.Reachability(ctx, index, operatorName, fragment)
		results = append(results, res)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reachability probe failed: %v", err)), nil
	}
	return jsonResult(results)
}

// handleLogin runs one EAP login with the given credentials.
func handleLogin(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	method, err := request.RequireString("eap")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("eap parameter required: %v", err)), nil
	}
	inner, err := request.RequireString("inner")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inner parameter required: %v", err)), nil
	}

	m, err := eap.Lookup(method)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to select EAP method %q: %v", method, err)), nil
	}

	l := session.Login{
		Index:              request.GetInt("index", 0),
		Method:             m,
		Inner:              inner,
		Outer:              request.GetString("outer", ""),
		Password:           request.GetString("password", ""),
		ClientCertPassword: request.GetString("client_cert_password", ""),
		OperatorName:       request.GetBool("operator_name", true),
		Fragment:           request.GetBool("fragment", true),
	}
	if path := request.GetString("client_cert", ""); path != "" {
		if l.ClientCert, err = os.ReadFile(path); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read client certificate: %v", err)), nil
		}
	}

	s, err := d.session(ctx, request.GetString("realm", ""), false, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to prepare session: %v", err)), nil
	}
	res, err := s.UDPLogin(ctx, l)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("login probe failed: %v", err)), nil
	}
	return jsonResult(res)
}

// handleCAPath verifies a RADIUS/TLS server certificate.
func handleCAPath(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	host, err := request.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("host parameter required: %v", err)), nil
	}

	s, err := d.session(ctx, "", false, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to prepare session: %v", err)), nil
	}
	res, err := s.CAPathCheck(ctx, host)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("CA path check failed: %v", err)), nil
	}
	return jsonResult(res)
}

// handleClientCerts presents every configured client certificate to a
// RADIUS/TLS server.
func handleClientCerts(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	host, err := request.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("host parameter required: %v", err)), nil
	}

	s, err := d.session(ctx, "", false, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to prepare session: %v", err)), nil
	}
	res, err := s.ClientCertCheck(ctx, host)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("client certificate check failed: %v", err)), nil
	}
	return jsonResult(res)
}

// handleAnalyzeChain runs the chain checks over a PEM bundle given inline or
// as a file path.
func handleAnalyzeChain(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("chain")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chain parameter required: %v", err)), nil
	}

	bundle := []byte(input)
	if !strings.Contains(input, "-----BEGIN") {
		if bundle, err = os.ReadFile(input); err != nil {
			return mcp.NewToolResultError("failed to read chain: not PEM data or a readable file path"), nil
		}
	}

	s, err := d.session(ctx, "", false, request.GetStringSlice("server_names", nil))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to prepare session: %v", err)), nil
	}
	as, err := s.AnalyzeChain(ctx, bundle)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chain analysis failed: %v", err)), nil
	}
	return jsonResult(report.NewAssessmentView(as))
}

// crlCacheStatus is the result of crl_cache_status.
type crlCacheStatus struct {
	Entries     int64    `json:"entries"`
	MaxSize     int      `json:"maxSize"`
	Hits        int64    `json:"hits"`
	Misses      int64    `json:"misses"`
	Evictions   int64    `json:"evictions"`
	Cleanups    int64    `json:"cleanups"`
	MemoryBytes int64    `json:"memoryBytes"`
	URLs        []string `json:"urls"`
	Summary     string   `json:"summary"`
}

// handleCRLCache reports the CRL cache shared by the calls of this server.
func handleCRLCache(ctx context.Context, request mcp.CallToolRequest, d *Diagnostics) (*mcp.CallToolResult, error) {
	if d.CRLCache == nil {
		return mcp.NewToolResultError("no CRL cache is shared between calls"), nil
	}

	m := d.CRLCache.Metrics()
	urls := d.CRLCache.Order()
	if urls == nil {
		urls = []string{}
	}
	return jsonResult(crlCacheStatus{
		Entries:     m.Size,
		MaxSize:     d.CRLCache.Config().MaxSize,
		Hits:        m.Hits,
		Misses:      m.Misses,
		Evictions:   m.Evictions,
		Cleanups:    m.Cleanups,
		MemoryBytes: m.TotalMemory,
		URLs:        urls,
		Summary:     d.CRLCache.Stats(),
	})
}
