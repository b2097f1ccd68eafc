// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/mcptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/testpki"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

var rejectTrace = []string{
	"RADIUS message: code=1 (Access-Request) identifier=0 length=120",
	"RADIUS message: code=3 (Access-Reject) identifier=0 length=20",
}

type replayRunner struct{ lines []string }

func (r replayRunner) Run(context.Context, *probe.Request) (*probe.Capture, error) {
	return &probe.Capture{Lines: r.lines}, nil
}

type refusedTLS struct{}

func (refusedTLS) Connect(context.Context, string, *tlscheck.Client) (*tlscheck.Transcript, error) {
	return &tlscheck.Transcript{Lines: []string{tlscheck.SigConnectionRefused}, ReturnCode: 1}, nil
}

// fakeDiagnostics runs against two targets that reject every attempt.
func fakeDiagnostics(t *testing.T) *Diagnostics {
	t.Helper()
	return &Diagnostics{
		Config:  config.Default(),
		Version: "1.3.3.7-testing",
		Logger:  logger.NewJSONLogger(nil, true),
		NewSession: func(_ context.Context, _ *config.Config, run config.Run) (*session.Session, error) {
			return session.New(session.Options{
				Realm:   run.Realm,
				Profile: run.Profile,
				Targets: []probe.Target{
					{Index: 0, Address: "192.0.2.1", Secret: "s", Timeout: time.Second},
					{Index: 1, Address: "192.0.2.2", Secret: "s", Timeout: time.Second},
				},
				Driver:       probe.NewDriver(replayRunner{lines: rejectTrace}, "test", nil),
				TLS:          tlscheck.NewChecker(refusedTLS{}, nil),
				Reachability: session.Credential{ClientCert: []byte("p12")},
				ScratchDir:   t.TempDir(),
				Logger:       run.Logger,
			}), nil
		},
	}
}

// startServer serves the default tools, resources and prompts against d.
func startServer(t *testing.T, d *Diagnostics) *client.Client {
	t.Helper()

	b := NewServerBuilder().WithDiagnostics(d).WithDefaultTools()

	srv := mcptest.NewUnstartedServer(t)
	srv.AddTools(b.serverTools()...)
	srv.AddResources(createResources()...)
	srv.AddPrompts(createPrompts(createTools())...)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Close)

	return srv.Client()
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()

	result, err := c.CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)

	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	return text.String(), result.IsError
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Without Diagnostics",
			testFunc: func(t *testing.T) {
				_, err := NewServerBuilder().WithDefaultTools().Build()
				assert.ErrorIs(t, err, ErrNoDiagnostics)

				_, err = NewServerBuilder().WithDiagnostics(&Diagnostics{}).Build()
				assert.ErrorIs(t, err, ErrNoDiagnostics)
			},
		},
		{
			name: "Complete",
			testFunc: func(t *testing.T) {
				instructions, err := loadInstructions(createTools())
				require.NoError(t, err)

				s, err := NewServerBuilder().
					WithVersion("1.3.3.7-testing").
					WithDiagnostics(fakeDiagnostics(t)).
					WithDefaultTools().
					WithResources(createResources()...).
					WithPrompts(createPrompts(createTools())...).
					WithInstructions(instructions).
					Build()
				require.NoError(t, err)
				assert.NotNil(t, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestToolHandlers(t *testing.T) {
	c := startServer(t, fakeDiagnostics(t))

	tests := []struct {
		name           string
		toolName       string
		args           map[string]any
		expectError    bool
		expectContains []string
		testFunc       func(t *testing.T, text string)
	}{
		{
			name:        "Reachability Needs Realm",
			toolName:    ToolReachability,
			args:        map[string]any{},
			expectError: true,
			expectContains: []string{
				"realm required",
			},
		},
		{
			name:     "Reachability All",
			toolName: ToolReachability,
			args:     map[string]any{"realm": "example.org"},
			testFunc: func(t *testing.T, text string) {
				var results []map[string]any
				require.NoError(t, json.Unmarshal([]byte(text), &results))
				require.Len(t, results, 2)
				for _, r := range results {
					assert.Equal(t, "IMMEDIATE_REJECT", r["outcome"])
					assert.Equal(t, eap.Any.Name, r["eapMethod"])
				}
			},
		},
		{
			name:     "Reachability One",
			toolName: ToolReachability,
			args:     map[string]any{"realm": "example.org", "index": 1, "fragment": false},
			testFunc: func(t *testing.T, text string) {
				var results []map[string]any
				require.NoError(t, json.Unmarshal([]byte(text), &results))
				require.Len(t, results, 1)
				assert.EqualValues(t, 1, results[0]["probeIndex"])
			},
		},
		{
			name:           "Login",
			toolName:       ToolLogin,
			args:           map[string]any{"eap": "ttls-pap", "inner": "alice@example.org", "password": "pw"},
			expectContains: []string{`"outcome": "IMMEDIATE_REJECT"`, `"eapMethod": "TTLS-PAP"`},
		},
		{
			name:           "Login Unknown Method",
			toolName:       ToolLogin,
			args:           map[string]any{"eap": "EAP-SIM", "inner": "alice@example.org"},
			expectError:    true,
			expectContains: []string{"unknown method"},
		},
		{
			name:           "Login Missing Inner",
			toolName:       ToolLogin,
			args:           map[string]any{"eap": "TTLS-PAP"},
			expectError:    true,
			expectContains: []string{"inner parameter required"},
		},
		{
			name:     "Login Missing Client Certificate",
			toolName: ToolLogin,
			args: map[string]any{
				"eap":         "EAP-TLS",
				"inner":       "alice@example.org",
				"client_cert": filepath.Join(t.TempDir(), "none.p12"),
			},
			expectError:    true,
			expectContains: []string{"failed to read client certificate"},
		},
		{
			name:           "CA Path",
			toolName:       ToolCAPath,
			args:           map[string]any{"host": "192.0.2.1:2083"},
			expectContains: []string{`"status": "CONNECTION_REFUSED"`},
		},
		{
			name:           "CA Path Missing Host",
			toolName:       ToolCAPath,
			args:           map[string]any{},
			expectError:    true,
			expectContains: []string{"host parameter required"},
		},
		{
			name:           "Client Certificates",
			toolName:       ToolClientCerts,
			args:           map[string]any{"host": "192.0.2.1:2083"},
			expectContains: []string{`"SKIPPED"`},
		},
		{
			name:           "Analyze Unreadable Chain",
			toolName:       ToolAnalyzeChain,
			args:           map[string]any{"chain": filepath.Join(t.TempDir(), "none.pem")},
			expectError:    true,
			expectContains: []string{"failed to read chain"},
		},
		{
			name:           "Analyze Without Analyzer",
			toolName:       ToolAnalyzeChain,
			args:           map[string]any{"chain": "-----BEGIN CERTIFICATE-----\n-----END CERTIFICATE-----\n"},
			expectError:    true,
			expectContains: []string{"chain analysis failed"},
		},
		{
			name:           "CRL Cache Not Shared",
			toolName:       ToolCRLCache,
			args:           map[string]any{},
			expectError:    true,
			expectContains: []string{"no CRL cache"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := callTool(t, c, tt.toolName, tt.args)
			assert.Equal(t, tt.expectError, isError, text)
			for _, want := range tt.expectContains {
				assert.Contains(t, text, want)
			}
			if tt.testFunc != nil {
				tt.testFunc(t, text)
			}
		})
	}
}

func TestAnalyzeChainTool(t *testing.T) {
	dir := t.TempDir()
	root := testpki.Root(t, "MCP Root")
	inter := root.Intermediate(t, "MCP Intermediate")
	server := inter.Server(t, "radius.example.org")

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}
	chainFile := write("chain.pem", testpki.Bundle(server, inter))
	write("root.pem", root.PEM)
	profilePath := write("profile.yaml", []byte("realm: example.org\ncaFiles: [root.pem]\nserverNames: [radius.example.org]\n"))
	cfgPath := write("diag.yaml", []byte("radiusTests:\n  validator: native\n"))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	profile, err := config.LoadProfile(profilePath)
	require.NoError(t, err)

	c := startServer(t, &Diagnostics{
		Config:  cfg,
		Profile: profile,
		Version: "1.3.3.7-testing",
		Logger:  logger.NewJSONLogger(nil, true),
	})

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Inline PEM",
			testFunc: func(t *testing.T) {
				text, isError := callTool(t, c, ToolAnalyzeChain, map[string]any{
					"chain": string(testpki.Bundle(server, inter)),
				})
				require.False(t, isError, text)

				var view map[string]any
				require.NoError(t, json.Unmarshal([]byte(text), &view))
				assert.Equal(t, diag.TrustOK.String(), view["trustTier"])
				assert.Equal(t, string(diag.HostnameTotal), view["hostnameMatch"])
				assert.Len(t, view["certificates"], 2)
			},
		},
		{
			name: "File With Server Names",
			testFunc: func(t *testing.T) {
				text, isError := callTool(t, c, ToolAnalyzeChain, map[string]any{
					"chain":        chainFile,
					"server_names": []string{"other.example.org"},
				})
				require.False(t, isError, text)
				assert.Contains(t, text, string(diag.OddityServerNameMismatch))
			},
		},
		{
			name: "Profile Left Untouched",
			testFunc: func(t *testing.T) {
				assert.Equal(t, []string{"radius.example.org"}, profile.ServerNames)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestSharedCRLCache(t *testing.T) {
	root := testpki.Root(t, "Cache Root")
	inter := root.Intermediate(t, "Cache Intermediate")

	var downloads atomic.Int32
	var crl []byte
	crlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = w.Write(crl)
	}))
	t.Cleanup(crlServer.Close)
	crl = inter.CRL(t)

	server := inter.Server(t, "radius.example.org", crlServer.URL+"/inter.crl")
	chain := string(testpki.Bundle(server, inter))

	cfg := config.Default()
	cfg.RadiusTests.Validator = config.RunnerNative
	d := &Diagnostics{
		Config:   cfg,
		Profile:  &diag.Profile{Realm: "example.org", ServerNames: []string{"radius.example.org"}},
		Version:  "1.3.3.7-testing",
		Logger:   logger.NewJSONLogger(nil, true),
		CRLCache: cfg.NewCRLCache(),
	}
	c := startServer(t, d)

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Reused Across Calls",
			testFunc: func(t *testing.T) {
				for range 3 {
					text, isError := callTool(t, c, ToolAnalyzeChain, map[string]any{"chain": chain})
					require.False(t, isError, text)
				}
				assert.EqualValues(t, 1, downloads.Load())
			},
		},
		{
			name: "Status",
			testFunc: func(t *testing.T) {
				text, isError := callTool(t, c, ToolCRLCache, map[string]any{})
				require.False(t, isError, text)

				var status crlCacheStatus
				require.NoError(t, json.Unmarshal([]byte(text), &status))
				assert.EqualValues(t, 1, status.Entries)
				assert.Equal(t, config.DefaultCRLCacheSize, status.MaxSize)
				assert.EqualValues(t, 2, status.Hits)
				assert.Equal(t, []string{crlServer.URL + "/inter.crl"}, status.URLs)
				assert.Contains(t, status.Summary, "CRL Cache Statistics")
			},
		},
		{
			name: "Sessions Start No Goroutines",
			testFunc: func(t *testing.T) {
				before := runtime.NumGoroutine()
				for range 50 {
					_, err := d.session(context.Background(), "example.org", true, nil)
					require.NoError(t, err)
				}
				assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestResourceHandlers(t *testing.T) {
	c := startServer(t, fakeDiagnostics(t))

	tests := []struct {
		name           string
		uri            string
		expectError    bool
		expectContains []string
		expectMIMEType string
	}{
		{
			name:           "Config Template",
			uri:            ResourceConfigTemplate,
			expectContains: []string{"radiusTests:", "udpHosts:"},
			expectMIMEType: "application/yaml",
		},
		{
			name:           "Config Schema",
			uri:            ResourceConfigSchema,
			expectContains: []string{`"$schema"`, `"radiusTests"`},
			expectMIMEType: "application/schema+json",
		},
		{
			name:           "Version",
			uri:            ResourceVersion,
			expectContains: []string{`"name"`, `"version"`, ToolLogin, "EAP-pwd"},
			expectMIMEType: "application/json",
		},
		{
			name:           "Outcomes",
			uri:            ResourceOutcomes,
			expectContains: []string{"IMMEDIATE_REJECT", "out-of-band"},
			expectMIMEType: "text/markdown",
		},
		{
			name:        "Unknown",
			uri:         "nonexistent://resource",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.ReadResource(context.Background(), mcp.ReadResourceRequest{
				Params: mcp.ReadResourceParams{URI: tt.uri},
			})
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, result.Contents, 1)

			text, ok := result.Contents[0].(mcp.TextResourceContents)
			require.True(t, ok)
			assert.Equal(t, tt.expectMIMEType, text.MIMEType)
			for _, want := range tt.expectContains {
				assert.Contains(t, text.Text, want)
			}
		})
	}
}

func TestLoadInstructions(t *testing.T) {
	instructions, err := loadInstructions(createTools())
	require.NoError(t, err)

	for _, tool := range createTools() {
		assert.Contains(t, instructions, "`"+tool.Tool.Name+"`")
	}
	assert.Contains(t, instructions, "Start with `udp_reachability`")
	assert.NotContains(t, instructions, "{{")
}

func TestNewDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Defaults",
			testFunc: func(t *testing.T) {
				t.Setenv(config.EnvConfigFile, "")
				t.Setenv(EnvProfile, "")

				d, err := newDiagnostics("1.0.0", nil)
				require.NoError(t, err)
				assert.Nil(t, d.Profile)
				assert.Equal(t, config.RunnerEapolTest, d.Config.RadiusTests.Runner)
				assert.Equal(t, "1.0.0", d.Version)
				require.NotNil(t, d.CRLCache)
				assert.Equal(t, config.DefaultCRLCacheSize, d.CRLCache.Config().MaxSize)
			},
		},
		{
			name: "From Environment",
			testFunc: func(t *testing.T) {
				dir := t.TempDir()
				cfgPath := filepath.Join(dir, "diag.json")
				require.NoError(t, os.WriteFile(cfgPath, []byte(`{"radiusTests":{"runner":"native"}}`), 0o600))
				profilePath := filepath.Join(dir, "profile.yaml")
				require.NoError(t, os.WriteFile(profilePath, []byte("realm: example.org\n"), 0o600))

				t.Setenv(config.EnvConfigFile, cfgPath)
				t.Setenv(EnvProfile, profilePath)

				d, err := newDiagnostics("1.0.0", nil)
				require.NoError(t, err)
				assert.Equal(t, config.RunnerNative, d.Config.RadiusTests.Runner)
				require.NotNil(t, d.Profile)
				assert.Equal(t, "example.org", d.Profile.Realm)
			},
		},
		{
			name: "Missing Profile",
			testFunc: func(t *testing.T) {
				t.Setenv(config.EnvConfigFile, "")
				t.Setenv(EnvProfile, filepath.Join(t.TempDir(), "none.yaml"))

				_, err := newDiagnostics("1.0.0", nil)
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
