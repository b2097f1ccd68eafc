// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"slices"
	"strings"

	"golang.org/x/net/idna"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// minRSABits is the smallest RSA modulus not reported as LOW_KEY_LENGTH.
const minRSABits = 1024

// CheckCA applies the rules shared by CA and server certificates and
// attaches the CRL. CRL attachment problems are only reported when server
// is true. The findings are appended to rec and returned.
func (in *Inspector) CheckCA(ctx context.Context, rec *Record, server bool) []diag.Oddity {
	cert := rec.Cert
	var found []diag.Oddity

	sigAlg := strings.ToLower(cert.SignatureAlgorithm.String())
	if strings.Contains(sigAlg, "md5") {
		found = append(found, diag.OdditySignatureMD5)
	}
	if strings.Contains(sigAlg, "sha1") {
		found = append(found, diag.OdditySignatureSHA1)
	}

	if !cert.BasicConstraintsValid {
		found = append(found, diag.OddityNoBasicConstraints)
	}

	if key, ok := cert.PublicKey.(*rsa.PublicKey); ok && key.N.BitLen() < minRSABits {
		found = append(found, diag.OddityLowKeyLength)
	}

	now := in.now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		found = append(found, diag.OddityOutsideValidityPeriod)
	}

	if o := in.AttachCRL(ctx, rec); o != "" && server {
		found = append(found, o)
	}

	rec.Oddities.Add(found...)
	return found
}

// CheckServer applies [Inspector.CheckCA] plus the server-only rules and
// fills in the record's common and DNS names.
func (in *Inspector) CheckServer(ctx context.Context, rec *Record) []diag.Oddity {
	found := in.CheckCA(ctx, rec, true)
	cert := rec.Cert

	if len(cert.Extensions) == 0 {
		found = append(found, diag.OddityNoTLSWebServerOID, diag.OddityNoCDPHTTP)
	} else if !slices.Contains(cert.ExtKeyUsage, x509.ExtKeyUsageServerAuth) {
		found = append(found, diag.OddityNoTLSWebServerOID)
	}

	rec.CommonNames = CommonNames(cert)
	rec.DNSNames = slices.Clone(cert.DNSNames)
	names := rec.ServerNames()

	if slices.ContainsFunc(names, func(n string) bool { return strings.Contains(n, "*") }) {
		found = append(found, diag.OddityWildcardInName)
	}

	if len(rec.CommonNames) > 1 {
		found = append(found, diag.OddityMultipleCN)
	}

	var bad []string
	for _, n := range names {
		if n != "" && !PlausibleHostname(n) {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		in.log().Printf("server certificate names that are not hostnames: %s", strings.Join(bad, ", "))
		found = append(found, diag.OddityNotAHostname)
	}

	rec.Oddities.Add(found...)
	return found
}

// PlausibleHostname reports whether name could be the domain part of a mail
// address: after IDNA conversion it needs at least two dot separated labels
// of letters, digits and inner hyphens, and a top label starting with a
// letter.
func PlausibleHostname(name string) bool {
	ascii, err := idna.ToASCII(name)
	if err != nil || ascii == "" || len(ascii) > 253 {
		return false
	}

	labels := strings.Split(strings.ToLower(ascii), ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if !validLabel(label) {
			return false
		}
	}

	top := labels[len(labels)-1]
	return strings.HasPrefix(top, "xn--") || (top[0] >= 'a' && top[0] <= 'z')
}

func validLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}
