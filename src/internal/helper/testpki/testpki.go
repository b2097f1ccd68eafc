// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package testpki issues throwaway certificate hierarchies and CRLs for tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"sync/atomic"
	"testing"
	"time"
)

var (
	serial        atomic.Int64
	oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}
)

// Options shapes an issued certificate.
type Options struct {
	CommonName string
	// ExtraCommonNames adds further CN attributes to the subject.
	ExtraCommonNames []string
	DNSNames         []string
	IsCA             bool
	// NoBasicConstraints omits the basicConstraints extension.
	NoBasicConstraints bool
	NotBefore          time.Time
	NotAfter           time.Time
	CRLURLs            []string
	OCSPServers        []string
	IssuingURLs        []string
	ExtKeyUsage        []x509.ExtKeyUsage
	PolicyOIDs         []asn1.ObjectIdentifier
}

// Cert is an issued certificate with its key.
type Cert struct {
	Cert *x509.Certificate
	Key  crypto.Signer
	DER  []byte
	PEM  []byte
}

// Root issues a self-signed CA.
func Root(tb testing.TB, cn string) *Cert {
	tb.Helper()
	return issue(tb, nil, Options{CommonName: cn, IsCA: true})
}

// SelfSigned issues a self-signed certificate shaped by opts.
func SelfSigned(tb testing.TB, opts Options) *Cert {
	tb.Helper()
	return issue(tb, nil, opts)
}

// Issue signs a certificate shaped by opts with c.
func (c *Cert) Issue(tb testing.TB, opts Options) *Cert {
	tb.Helper()
	return issue(tb, c, opts)
}

// Intermediate issues a CA certificate below c.
func (c *Cert) Intermediate(tb testing.TB, cn string, crlURLs ...string) *Cert {
	tb.Helper()
	return issue(tb, c, Options{CommonName: cn, IsCA: true, CRLURLs: crlURLs})
}

// Server issues a TLS server certificate below c.
func (c *Cert) Server(tb testing.TB, cn string, crlURLs ...string) *Cert {
	tb.Helper()
	return issue(tb, c, Options{
		CommonName:  cn,
		DNSNames:    []string{cn},
		CRLURLs:     crlURLs,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
}

// CRL returns a DER encoded CRL of c revoking the given certificates.
func (c *Cert) CRL(tb testing.TB, revoked ...*Cert) []byte {
	tb.Helper()

	entries := make([]x509.RevocationListEntry, 0, len(revoked))
	for _, r := range revoked {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   r.Cert.SerialNumber,
			RevocationTime: time.Now().Add(-time.Hour),
		})
	}

	der, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:                    big.NewInt(serial.Add(1)),
		ThisUpdate:                time.Now().Add(-time.Hour),
		NextUpdate:                time.Now().Add(24 * time.Hour),
		RevokedCertificateEntries: entries,
	}, c.Cert, c.Key)
	if err != nil {
		tb.Fatalf("create CRL: %v", err)
	}
	return der
}

// Bundle concatenates the PEM encodings of certs.
func Bundle(certs ...*Cert) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, c.PEM...)
	}
	return out
}

// KeyPEM returns the PKCS#8 PEM encoding of the private key.
func (c *Cert) KeyPEM(tb testing.TB) []byte {
	tb.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(c.Key)
	if err != nil {
		tb.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func issue(tb testing.TB, parent *Cert, opts Options) *Cert {
	tb.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		tb.Fatalf("generate key: %v", err)
	}

	notBefore, notAfter := opts.NotBefore, opts.NotAfter
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	if notAfter.IsZero() {
		notAfter = time.Now().Add(365 * 24 * time.Hour)
	}

	subject := pkix.Name{CommonName: opts.CommonName, Organization: []string{"Diagnostics Test"}}
	if len(opts.ExtraCommonNames) > 0 {
		// A CN in ExtraNames replaces CommonName, so every CN goes there.
		for _, cn := range append([]string{opts.CommonName}, opts.ExtraCommonNames...) {
			subject.ExtraNames = append(subject.ExtraNames, pkix.AttributeTypeAndValue{Type: oidCommonName, Value: cn})
		}
	}

	policies := make([]x509.OID, 0, len(opts.PolicyOIDs))
	for _, id := range opts.PolicyOIDs {
		ints := make([]uint64, 0, len(id))
		for _, n := range id {
			ints = append(ints, uint64(n))
		}
		oid, err := x509.OIDFromInts(ints)
		if err != nil {
			tb.Fatalf("policy %v: %v", id, err)
		}
		policies = append(policies, oid)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial.Add(1)),
		Subject:               subject,
		DNSNames:              opts.DNSNames,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		BasicConstraintsValid: !opts.NoBasicConstraints,
		IsCA:                  opts.IsCA,
		CRLDistributionPoints: opts.CRLURLs,
		OCSPServer:            opts.OCSPServers,
		IssuingCertificateURL: opts.IssuingURLs,
		ExtKeyUsage:           opts.ExtKeyUsage,
		Policies:              policies,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if opts.IsCA {
		tmpl.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}

	signerCert, signerKey := tmpl, crypto.Signer(key)
	if parent != nil {
		signerCert, signerKey = parent.Cert, parent.Key
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, signerCert, key.Public(), signerKey)
	if err != nil {
		tb.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("parse certificate: %v", err)
	}

	return &Cert{
		Cert: cert,
		Key:  key,
		DER:  der,
		PEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}
}
