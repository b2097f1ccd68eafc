// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/config"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/metrics"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/version"
)

// Environment variables consulted by [Run] besides those of [config.Load].
const (
	EnvProfile = "EAP_DIAG_PROFILE"
	// EnvLogFile names a file receiving JSON log lines. Without it the
	// server logs nothing, as stdout carries the protocol.
	EnvLogFile = "EAP_DIAG_LOG_FILE"
)

var appVersion = version.Version

// GetVersion returns the version set by [Run], or the build version before.
func GetVersion() string {
	return appVersion
}

// newDiagnostics loads the configuration and the optional profile named by
// the environment.
func newDiagnostics(version string, log logger.Logger) (*Diagnostics, error) {
	return loadDiagnostics(os.Getenv(config.EnvConfigFile), os.Getenv(EnvProfile), version, log)
}

// loadDiagnostics loads configFile, defaults when empty, and profileFile
// when given.
func loadDiagnostics(configFile, profileFile, version string, log logger.Logger) (*Diagnostics, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	var profile *diag.Profile
	if profileFile != "" {
		if profile, err = config.LoadProfile(profileFile); err != nil {
			return nil, err
		}
	}

	return &Diagnostics{
		Config:   cfg,
		Profile:  profile,
		Version:  version,
		Logger:   log,
		CRLCache: cfg.NewCRLCache(),
	}, nil
}

// defaultServer configures every tool, resource and prompt against d.
func defaultServer(d *Diagnostics, version string) (*ServerBuilder, error) {
	tools := createTools()
	instructions, err := loadInstructions(tools)
	if err != nil {
		return nil, fmt.Errorf("failed to load instructions: %w", err)
	}

	return NewServerBuilder().
		WithVersion(version).
		WithDiagnostics(d).
		WithTools(tools...).
		WithResources(createResources()...).
		WithPrompts(createPrompts(tools)...).
		WithInstructions(instructions), nil
}

// Run serves the diagnostics tools over stdio until stdin closes or the
// process receives SIGINT or SIGTERM.
//
// Server Lifecycle:
//  1. Load configuration and profile from the environment
//  2. Start the shared CRL cache cleanup and, when enabled, the metrics listener
//  3. Build the MCP server using [ServerBuilder]
//  4. Serve stdio until an error or a shutdown signal
//
// A signal-triggered shutdown returns an error wrapping [context.Canceled].
func Run(version string) error {
	appVersion = version

	var (
		logOut io.Writer
		silent = true
	)
	if path := os.Getenv(EnvLogFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut, silent = f, false
	}
	log := logger.NewJSONLogger(logOut, silent)

	d, err := newDiagnostics(version, log)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	builder, err := defaultServer(d, version)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d.CRLCache.StartCleanup(ctx)

	if d.Config.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, d.Config.Metrics.Listen); err != nil {
				log.Printf("metrics listener stopped: %v", err)
			}
		}()
	}

	s, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	stdioServer := server.NewStdioServer(s)

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdioServer.Listen(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("server shutdown: %w", ctx.Err())
	}
}
