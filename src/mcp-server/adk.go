// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/version"
)

// ADKTransportBuilder assembles the complete diagnostics server behind an
// [InMemoryTransport] for agents built with the [Google ADK].
//
// Example:
//
//	transport, err := NewADKTransportBuilder().WithVersion("1.0.0").BuildTransport(ctx)
//	if err != nil {
//		return err
//	}
//	toolset, err := mcptoolset.New(mcptoolset.Config{Transport: transport})
//
// [Google ADK]: https://pkg.go.dev/google.golang.org/adk
type ADKTransportBuilder struct {
	configFile  string
	profileFile string
	version     string
	logger      logger.Logger
}

// NewADKTransportBuilder reads the configuration and profile paths from the
// same environment variables as [Run]. Logging is off.
func NewADKTransportBuilder() *ADKTransportBuilder {
	return &ADKTransportBuilder{
		configFile:  os.Getenv(config.EnvConfigFile),
		profileFile: os.Getenv(EnvProfile),
		version:     version.Version,
		logger:      logger.NewJSONLogger(nil, true),
	}
}

// WithConfigFile sets the configuration file. Empty leaves the choice to
// [config.Load].
func (b *ADKTransportBuilder) WithConfigFile(path string) *ADKTransportBuilder {
	b.configFile = path
	return b
}

// WithProfile sets the institution profile file. Empty means none.
func (b *ADKTransportBuilder) WithProfile(path string) *ADKTransportBuilder {
	b.profileFile = path
	return b
}

// WithVersion sets the version announced to the agent.
func (b *ADKTransportBuilder) WithVersion(v string) *ADKTransportBuilder {
	b.version = v
	return b
}

// WithLogger sets where check traces go.
func (b *ADKTransportBuilder) WithLogger(log logger.Logger) *ADKTransportBuilder {
	b.logger = log
	return b
}

// BuildTransport loads the configuration, starts the shared CRL cache
// cleanup for the life of ctx and connects the server. Close the transport
// when done.
func (b *ADKTransportBuilder) BuildTransport(ctx context.Context) (*InMemoryTransport, error) {
	d, err := loadDiagnostics(b.configFile, b.profileFile, b.version, b.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load MCP config: %w", err)
	}

	builder, err := defaultServer(d, b.version)
	if err != nil {
		return nil, err
	}

	t, err := builder.BuildInMemoryTransport(ctx)
	if err != nil {
		return nil, err
	}
	d.CRLCache.StartCleanup(t.ctx)
	return t, nil
}
