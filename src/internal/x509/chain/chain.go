// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// HTTPConfig holds HTTP client configuration for CRL downloads.
type HTTPConfig struct {
	Timeout   time.Duration // HTTP request timeout
	Version   string        // Application version for User-Agent
	UserAgent string        // Custom User-Agent string, if empty will be constructed from Version

	mu     sync.Mutex
	client *http.Client
}

// NewHTTPConfig creates a new HTTP configuration with default values.
//
// It initializes the configuration with a default timeout of 10 seconds
// and the provided application version.
//
// Parameters:
//   - version: Application version string
//
// Returns:
//   - *HTTPConfig: New HTTP configuration
func NewHTTPConfig(version string) *HTTPConfig {
	return &HTTPConfig{
		Timeout: 10 * time.Second,
		Version: version,
	}
}

// GetUserAgent returns the User-Agent string, constructing it if not set.
func (c *HTTPConfig) GetUserAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return fmt.Sprintf("EAP-RADIUS-Diagnostics/%s (+https://github.com/H0llyW00dzZ/eap-radius-diag)", c.Version)
}

// Client returns an HTTP client configured with the current timeout.
//
// It creates or reuses an http.Client, ensuring it uses the configured timeout.
//
// Thread Safety: Safe for concurrent use.
func (c *HTTPConfig) Client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.client = &http.Client{Timeout: c.Timeout}
		return c.client
	}

	if c.client.Timeout != c.Timeout {
		c.client.Timeout = c.Timeout
	}

	return c.client
}

// Role is the position a certificate takes in a server-presented chain.
type Role string

const (
	RoleServer           Role = "server"
	RoleIntermediate     Role = "intermediate"
	RoleRoot             Role = "root"
	RoleSelfSignedServer Role = "self-signed-server"
)

// IsServer reports whether the role is analysed as the server certificate.
func (r Role) IsServer() bool { return r == RoleServer || r == RoleSelfSignedServer }

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// Record is one certificate of a chain together with what the checks
// learned about it. Role, PEM and Cert are fixed by the extractor; the
// checks only attach names and the CRL, and append oddities.
type Record struct {
	PEM  []byte
	Cert *x509.Certificate
	Role Role

	Oddities *diag.OdditySet

	// CRL is the PEM armored CRL downloaded from the first HTTP CDP, if any.
	CRL []byte

	CommonNames []string
	DNSNames    []string
}

// NewRecord returns a record with an empty oddity set.
func NewRecord(pemData []byte, cert *x509.Certificate, role Role) *Record {
	return &Record{
		PEM:      pemData,
		Cert:     cert,
		Role:     role,
		Oddities: &diag.OdditySet{},
	}
}

// ServerNames returns the union of common names and SAN DNS names, in that
// order and without duplicates.
func (r *Record) ServerNames() []string {
	names := make([]string, 0, len(r.CommonNames)+len(r.DNSNames))
	for _, n := range slices.Concat(r.CommonNames, r.DNSNames) {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// Detail returns the presentation view of the record.
func (r *Record) Detail() diag.CertificateDetail {
	c := r.Cert
	return diag.CertificateDetail{
		Role:                  string(r.Role),
		Subject:               c.Subject.String(),
		Issuer:                c.Issuer.String(),
		SerialNumber:          c.SerialNumber.String(),
		SignatureAlgorithm:    c.SignatureAlgorithm.String(),
		KeyBits:               KeyBits(c),
		NotBefore:             c.NotBefore,
		NotAfter:              c.NotAfter,
		CommonNames:           CommonNames(c),
		DNSNames:              c.DNSNames,
		CRLDistributionPoints: c.CRLDistributionPoints,
		CRLAttached:           len(r.CRL) > 0,
		Oddities:              r.Oddities.List(),
	}
}

// IsSelfSigned reports whether cert names itself as issuer and its
// signature verifies with its own key.
func IsSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawSubject, cert.RawIssuer) {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}

// KeyBits returns the public key size in bits, or 0 for unknown key types.
func KeyBits(cert *x509.Certificate) int {
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return key.N.BitLen()
	case *ecdsa.PublicKey:
		return key.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	}
	return 0
}

// CommonNames returns every CN attribute of the subject. Unlike
// [pkix.Name.CommonName] this does not stop at the first.
func CommonNames(cert *x509.Certificate) []string {
	var names []string
	for _, atv := range cert.Subject.Names {
		if !atv.Type.Equal(oidCommonName) {
			continue
		}
		if s, ok := atv.Value.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

// Chain is the classified form of a server-presented certificate bundle.
type Chain struct {
	Records []*Record

	// Server is the first server record, nil if there is none.
	Server *Record

	// Entries counts split PEM entries including unparsable ones.
	Entries           int
	Servers           int
	Roots             int
	Intermediates     int
	TotallySelfSigned bool

	// Oddities holds chain shape findings followed by the server findings.
	Oddities *diag.OdditySet
	// IntermediateOddities holds the findings of the observed intermediates.
	IntermediateOddities *diag.OdditySet
}

// ByRole returns the records of the given role in chain order.
func (ch *Chain) ByRole(role Role) []*Record {
	var out []*Record
	for _, r := range ch.Records {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

// Details returns the presentation view of every record.
func (ch *Chain) Details() []diag.CertificateDetail {
	out := make([]diag.CertificateDetail, 0, len(ch.Records))
	for _, r := range ch.Records {
		out = append(out, r.Detail())
	}
	return out
}
