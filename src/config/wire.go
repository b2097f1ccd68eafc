// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/metrics"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// Targets returns the configured RADIUS servers, indexed in file order.
func (c *Config) Targets() []probe.Target {
	targets := make([]probe.Target, 0, len(c.RadiusTests.UDPHosts))
	for i, h := range c.RadiusTests.UDPHosts {
		targets = append(targets, probe.Target{
			Index:   i,
			Address: h.Address,
			Secret:  h.Secret,
			Timeout: time.Duration(h.TimeoutSeconds) * time.Second,
			Display: h.Display,
		})
	}
	return targets
}

// HandshakeRunner returns the runner selected by radiusTests.runner.
func (c *Config) HandshakeRunner() probe.HandshakeRunner {
	if c.RadiusTests.Runner == RunnerNative {
		return probe.NewNativeRunner()
	}
	return &probe.EapolTestRunner{Path: c.Paths.EapolTest}
}

// PathValidator returns the validator selected by radiusTests.validator.
func (c *Config) PathValidator() x509chain.PathValidator {
	if c.RadiusTests.Validator == RunnerNative {
		return &x509chain.NativeValidator{}
	}
	return &x509chain.OpenSSLValidator{Path: c.Paths.OpenSSL}
}

// TLSRunner returns the runner selected by radiusTests.tlsRunner.
func (c *Config) TLSRunner() tlscheck.Runner {
	caPath := c.Resolve(c.RadiusTests.TLSCAPath)
	if c.RadiusTests.TLSRunner == RunnerNative {
		return &tlscheck.NativeRunner{CAPath: caPath}
	}
	return &tlscheck.OpenSSLRunner{
		Path:         c.Paths.OpenSSL,
		CAPath:       caPath,
		ProtocolArgs: c.RadiusTests.TLSProtocolArgs,
	}
}

// ClientCertGroups returns the client certificate sets ordered by name.
func (c *Config) ClientCertGroups() []tlscheck.ClientCertGroup {
	names := make([]string, 0, len(c.RadiusTests.TLSClientCerts))
	for name := range c.RadiusTests.TLSClientCerts {
		names = append(names, name)
	}
	slices.Sort(names)

	groups := make([]tlscheck.ClientCertGroup, 0, len(names))
	for _, name := range names {
		set := c.RadiusTests.TLSClientCerts[name]
		group := tlscheck.ClientCertGroup{Name: name, Status: set.Status, IssuerCA: set.IssuerCA}
		for _, cert := range set.Certificates {
			group.Certs = append(group.Certs, tlscheck.ClientCertSpec{
				Status:   cert.Status,
				Expected: cert.Expected,
				Public:   cert.Public,
				Private:  cert.Private,
				Password: cert.Password,
			})
		}
		groups = append(groups, group)
	}
	return groups
}

// NewCRLCache returns an empty cache sized by the crlCache section. Callers
// that keep the cache beyond one session run [x509chain.CRLCache.StartCleanup]
// themselves.
func (c *Config) NewCRLCache() *x509chain.CRLCache {
	return x509chain.NewCRLCache(&x509chain.CRLCacheConfig{
		MaxSize:         c.CRLCache.MaxSize,
		CleanupInterval: time.Duration(c.CRLCache.CleanupInterval) * time.Second,
	})
}

// HTTPConfig returns the CRL download settings of the http section.
func (c *Config) HTTPConfig(version string) *x509chain.HTTPConfig {
	cfg := x509chain.NewHTTPConfig(version)
	cfg.Timeout = time.Duration(c.HTTP.Timeout) * time.Second
	cfg.UserAgent = c.HTTP.UserAgent
	return cfg
}

// Reachability reads the reachability client certificate, if configured.
func (c *Config) Reachability() (session.Credential, error) {
	cred := session.Credential{
		ClientCertPassword: c.RadiusTests.Reachability.ClientCertPassword,
		Password:           c.RadiusTests.Reachability.Password,
	}
	if c.RadiusTests.Reachability.ClientCert == "" {
		return cred, nil
	}

	data, err := os.ReadFile(c.Resolve(c.RadiusTests.Reachability.ClientCert))
	if err != nil {
		return session.Credential{}, fmt.Errorf("failed to read reachability client certificate: %w", err)
	}
	cred.ClientCert = data
	return cred, nil
}

// Run describes one diagnostics run.
type Run struct {
	Realm   string
	Profile *diag.Profile
	Logger  logger.Logger
	Version string
	// CRLCache is shared by sessions of a long-running process. When nil the
	// session gets a private cache that is dropped with it.
	CRLCache *x509chain.CRLCache
}

// NewSession wires a [session.Session] from the configuration. It starts no
// goroutines, so building many sessions is safe.
func (c *Config) NewSession(_ context.Context, run Run) (*session.Session, error) {
	cred, err := c.Reachability()
	if err != nil {
		return nil, err
	}

	if c.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	cache := run.CRLCache
	if cache == nil {
		cache = c.NewCRLCache()
	}

	inspector := x509chain.NewInspector(x509chain.NewHTTPFetcher(c.HTTPConfig(run.Version), cache), run.Logger)

	checker := tlscheck.NewChecker(c.TLSRunner(), run.Logger)
	checker.AcceptableOIDs = c.RadiusTests.TLSAcceptableOIDs
	checker.ClientCertSets = c.ClientCertGroups()
	checker.CertDir = c.dir

	return session.New(session.Options{
		Realm:        run.Realm,
		Profile:      run.Profile,
		Targets:      c.Targets(),
		Driver:       probe.NewDriver(c.HandshakeRunner(), c.RadiusTests.ProductName, run.Logger),
		Analyzer:     x509chain.NewAnalyzer(inspector, c.PathValidator()),
		TLS:          checker,
		Reachability: cred,
		OperatorName: c.RadiusTests.OperatorName,
		ScratchDir:   c.RadiusTests.ScratchDir,
		KeepScratch:  c.RadiusTests.KeepScratch,
		Concurrency:  c.RadiusTests.Concurrency,
		Logger:       run.Logger,
	}), nil
}
