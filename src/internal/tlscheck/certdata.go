// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package tlscheck

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"maps"
	"slices"
	"strings"

	x509certs "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/certs"
)

const (
	pemBegin = "-----BEGIN CERTIFICATE-----"
	pemEnd   = "-----END CERTIFICATE-----"
)

// CertData summarises the certificate a server presented.
type CertData struct {
	Subject        string   `json:"subject"`
	Issuer         string   `json:"issuer"`
	SubjectAltName string   `json:"subjectAltName,omitempty"`
	PolicyOIDs     []string `json:"policyOIDs,omitempty"`
	// CRLDistributionPoints lists the CDP URIs.
	CRLDistributionPoints []string `json:"crlDistributionPoints,omitempty"`
	// AuthorityInfoAccess lists OCSP and CA issuer URIs, openssl style.
	AuthorityInfoAccess []string `json:"authorityInfoAccess,omitempty"`
}

var attributeNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "street",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.17":                   "postalCode",
	"0.9.2342.19200300.100.1.25": "DC",
	"1.2.840.113549.1.9.1":       "emailAddress",
}

// slashName renders attributes as "/C=PL/O=Example/CN=radius".
func slashName(names []pkix.AttributeTypeAndValue) string {
	var b strings.Builder
	for _, atv := range names {
		key, ok := attributeNames[atv.Type.String()]
		if !ok {
			key = atv.Type.String()
		}
		fmt.Fprintf(&b, "/%s=%v", key, atv.Value)
	}
	return b.String()
}

// ServerCertificate returns the first PEM certificate embedded in a
// transcript.
func ServerCertificate(lines []string) (*x509.Certificate, error) {
	start := slices.Index(lines, pemBegin)
	if start < 0 {
		return nil, ErrNoCertificate
	}
	end := slices.Index(lines[start:], pemEnd)
	if end < 0 {
		return nil, ErrNoCertificate
	}

	block := strings.Join(lines[start:start+end+1], "\n") + "\n"
	return x509certs.New().Decode([]byte(block))
}

// NewCertData summarises cert. acceptable maps a label to a policy OID; the
// matching ones are listed as "OID (label)".
func NewCertData(cert *x509.Certificate, acceptable map[string]string) *CertData {
	d := &CertData{
		Subject:               slashName(cert.Subject.Names),
		Issuer:                slashName(cert.Issuer.Names),
		SubjectAltName:        subjectAltName(cert),
		CRLDistributionPoints: cert.CRLDistributionPoints,
	}

	policies := make([]string, 0, len(cert.Policies))
	for _, oid := range cert.Policies {
		policies = append(policies, oid.String())
	}
	for _, label := range slices.Sorted(maps.Keys(acceptable)) {
		if slices.Contains(policies, acceptable[label]) {
			d.PolicyOIDs = append(d.PolicyOIDs, fmt.Sprintf("%s (%s)", acceptable[label], label))
		}
	}

	for _, u := range cert.OCSPServer {
		d.AuthorityInfoAccess = append(d.AuthorityInfoAccess, "OCSP - URI:"+u)
	}
	for _, u := range cert.IssuingCertificateURL {
		d.AuthorityInfoAccess = append(d.AuthorityInfoAccess, "CA Issuers - URI:"+u)
	}
	return d
}

func subjectAltName(cert *x509.Certificate) string {
	var parts []string
	for _, n := range cert.DNSNames {
		parts = append(parts, "DNS:"+n)
	}
	for _, ip := range cert.IPAddresses {
		parts = append(parts, "IP Address:"+ip.String())
	}
	for _, e := range cert.EmailAddresses {
		parts = append(parts, "email:"+e)
	}
	for _, u := range cert.URIs {
		parts = append(parts, "URI:"+u.String())
	}
	return strings.Join(parts, ", ")
}
