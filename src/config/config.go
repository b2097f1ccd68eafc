// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
)

// Environment variables consulted by [Load].
const (
	EnvConfigFile = "EAP_DIAG_CONFIG_FILE"
	EnvOpenSSL    = "EAP_DIAG_OPENSSL"
	EnvEapolTest  = "EAP_DIAG_EAPOL_TEST"
)

// Runner and validator selections.
const (
	RunnerEapolTest = "eapol_test"
	RunnerNative    = "native"
	RunnerOpenSSL   = "openssl"
)

// Defaults applied by [Default] and for zero values after loading.
const (
	DefaultProductName      = "eduroam CAT"
	DefaultUDPTimeout       = 5
	DefaultHTTPTimeout      = 10
	DefaultCRLCacheSize     = 100
	DefaultCRLCacheInterval = 3600
	DefaultMetricsListen    = "127.0.0.1:9464"
)

// ErrInvalidConfig is wrapped by every semantic validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// format is the encoding of a configuration document.
type format int

const (
	formatJSON format = iota
	formatYAML
)

// Config is the complete diagnostics configuration.
//
// It is loaded from a JSON or YAML file; see [Load] for the lookup order.
type Config struct {
	Paths       Paths       `json:"paths" yaml:"paths"`
	RadiusTests RadiusTests `json:"radiusTests" yaml:"radiusTests"`

	HTTP struct {
		// Timeout bounds a CRL download, in seconds.
		Timeout   int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
		UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	} `json:"http" yaml:"http"`

	CRLCache struct {
		MaxSize         int `json:"maxSize" yaml:"maxSize"`
		CleanupInterval int `json:"cleanupIntervalSeconds" yaml:"cleanupIntervalSeconds"`
	} `json:"crlCache" yaml:"crlCache"`

	Metrics struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Listen  string `json:"listen,omitempty" yaml:"listen,omitempty"`
	} `json:"metrics" yaml:"metrics"`

	// dir resolves relative file references; it is the directory of the
	// loaded file.
	dir string
}

// Paths locates the external tools.
type Paths struct {
	EapolTest string `json:"eapolTest" yaml:"eapolTest"`
	OpenSSL   string `json:"openssl" yaml:"openssl"`
}

// RadiusTests configures the probes.
type RadiusTests struct {
	ProductName  string `json:"productName" yaml:"productName"`
	OperatorName string `json:"operatorName" yaml:"operatorName"`

	// Runner is "eapol_test" or "native".
	Runner string `json:"runner" yaml:"runner"`
	// Validator is "openssl" or "native".
	Validator string `json:"validator" yaml:"validator"`
	// TLSRunner is "openssl" or "native".
	TLSRunner string `json:"tlsRunner" yaml:"tlsRunner"`
	// TLSProtocolArgs are passed to openssl s_client. Unset selects
	// [tlscheck.DefaultProtocolArgs]; an empty list passes none.
	TLSProtocolArgs []string `json:"tlsProtocolArgs,omitempty" yaml:"tlsProtocolArgs,omitempty"`

	ScratchDir  string `json:"scratchDir,omitempty" yaml:"scratchDir,omitempty"`
	KeepScratch bool   `json:"keepScratch" yaml:"keepScratch"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`

	Reachability Reachability `json:"reachability" yaml:"reachability"`
	UDPHosts     []UDPHost    `json:"udpHosts" yaml:"udpHosts"`

	TLSCAPath         string                   `json:"tlsCAPath,omitempty" yaml:"tlsCAPath,omitempty"`
	TLSAcceptableOIDs map[string]string        `json:"tlsAcceptableOIDs,omitempty" yaml:"tlsAcceptableOIDs,omitempty"`
	TLSClientCerts    map[string]ClientCertSet `json:"tlsClientCerts,omitempty" yaml:"tlsClientCerts,omitempty"`
}

// Reachability is the throwaway credential of reachability probes.
type Reachability struct {
	ClientCert         string `json:"clientCert,omitempty" yaml:"clientCert,omitempty"`
	ClientCertPassword string `json:"clientCertPassword,omitempty" yaml:"clientCertPassword,omitempty"`
	Password           string `json:"password,omitempty" yaml:"password,omitempty"`
}

// UDPHost is one RADIUS server under test.
type UDPHost struct {
	Address        string `json:"address" yaml:"address"`
	Secret         string `json:"secret" yaml:"secret"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	Display        string `json:"display,omitempty" yaml:"display,omitempty"`
}

// ClientCertSet is a group of client certificates issued by one CA.
type ClientCertSet struct {
	Status       string       `json:"status" yaml:"status"`
	IssuerCA     string       `json:"issuerCA" yaml:"issuerCA"`
	Certificates []ClientCert `json:"certificates" yaml:"certificates"`
}

// ClientCert is one client certificate of a [ClientCertSet].
type ClientCert struct {
	Status   string `json:"status" yaml:"status"`
	Expected string `json:"expected" yaml:"expected"`
	Public   string `json:"public" yaml:"public"`
	Private  string `json:"private" yaml:"private"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Paths.EapolTest == "" {
		c.Paths.EapolTest = "eapol_test"
	}
	if c.Paths.OpenSSL == "" {
		c.Paths.OpenSSL = "openssl"
	}

	rt := &c.RadiusTests
	if rt.ProductName == "" {
		rt.ProductName = DefaultProductName
	}
	if rt.OperatorName == "" {
		rt.OperatorName = probe.DefaultOperatorName
	}
	if rt.Runner == "" {
		rt.Runner = RunnerEapolTest
	}
	if rt.Validator == "" {
		rt.Validator = RunnerOpenSSL
	}
	if rt.TLSRunner == "" {
		rt.TLSRunner = RunnerOpenSSL
	}
	if rt.Concurrency <= 0 {
		rt.Concurrency = 4
	}
	for i := range rt.UDPHosts {
		if rt.UDPHosts[i].TimeoutSeconds <= 0 {
			rt.UDPHosts[i].TimeoutSeconds = DefaultUDPTimeout
		}
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.CRLCache.MaxSize <= 0 {
		c.CRLCache.MaxSize = DefaultCRLCacheSize
	}
	if c.CRLCache.CleanupInterval <= 0 {
		c.CRLCache.CleanupInterval = DefaultCRLCacheInterval
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvOpenSSL); v != "" {
		c.Paths.OpenSSL = v
	}
	if v := os.Getenv(EnvEapolTest); v != "" {
		c.Paths.EapolTest = v
	}
}

// detectFormat picks the decoder by file extension; anything but .yaml and
// .yml is read as JSON.
func detectFormat(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func unmarshal(data []byte, v any, f format) error {
	switch f {
	case formatYAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// Load reads the configuration.
//
// Configuration Priority:
//  1. path, or the EAP_DIAG_CONFIG_FILE environment variable when path is empty
//  2. built-in defaults for anything the file leaves unset
//  3. EAP_DIAG_OPENSSL and EAP_DIAG_EAPOL_TEST override the tool paths
//
// Without a file the built-in defaults are returned. A file is checked
// against the embedded JSON Schema before decoding and by
// [Config.Validate] after.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		f := detectFormat(path)
		if err := validateSchema(data, f); err != nil {
			return nil, err
		}
		if err := unmarshal(data, cfg, f); err != nil {
			return nil, err
		}
		cfg.dir = filepath.Dir(path)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every semantic problem of the configuration, each
// wrapping [ErrInvalidConfig].
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	rt := c.RadiusTests
	if !slices.Contains([]string{RunnerEapolTest, RunnerNative}, rt.Runner) {
		invalid("radiusTests.runner %q is not one of eapol_test, native", rt.Runner)
	}
	if !slices.Contains([]string{RunnerOpenSSL, RunnerNative}, rt.Validator) {
		invalid("radiusTests.validator %q is not one of openssl, native", rt.Validator)
	}
	if !slices.Contains([]string{RunnerOpenSSL, RunnerNative}, rt.TLSRunner) {
		invalid("radiusTests.tlsRunner %q is not one of openssl, native", rt.TLSRunner)
	}

	for i, h := range rt.UDPHosts {
		if h.Address == "" {
			invalid("radiusTests.udpHosts[%d] has no address", i)
		}
		if h.Secret == "" {
			invalid("radiusTests.udpHosts[%d] has no secret", i)
		}
	}

	for name, set := range rt.TLSClientCerts {
		if set.Status != tlscheck.StatusAccredited && set.Status != tlscheck.StatusNonAccredited {
			invalid("radiusTests.tlsClientCerts.%s.status %q", name, set.Status)
		}
		for i, cert := range set.Certificates {
			switch cert.Status {
			case tlscheck.CertCorrect, tlscheck.CertWrongPolicy, tlscheck.CertExpired, tlscheck.CertRevoked:
			default:
				invalid("radiusTests.tlsClientCerts.%s.certificates[%d].status %q", name, i, cert.Status)
			}
			if cert.Expected != tlscheck.ExpectPass && cert.Expected != tlscheck.ExpectFail {
				invalid("radiusTests.tlsClientCerts.%s.certificates[%d].expected %q", name, i, cert.Expected)
			}
			if cert.Public == "" {
				invalid("radiusTests.tlsClientCerts.%s.certificates[%d] has no public file", name, i)
			}
		}
	}

	return errors.Join(errs...)
}

// Resolve returns name relative to the directory of the loaded file.
// Absolute names and names of a default configuration are returned as is.
func (c *Config) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || c.dir == "" {
		return name
	}
	return filepath.Join(c.dir, name)
}
