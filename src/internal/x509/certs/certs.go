// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
)

var (
	// ErrInvalidPEMBlock indicates that the provided data does not contain a valid PEM block.
	ErrInvalidPEMBlock = errors.New("x509certs: invalid PEM block")

	// ErrInvalidBlockType indicates that the PEM block type is not the expected certificate type.
	ErrInvalidBlockType = errors.New("x509certs: invalid block type")

	// ErrParseCertificate indicates a failure to parse the certificate from the provided data.
	ErrParseCertificate = errors.New("x509certs: failed to parse certificate")

	// ErrParsePKCS7 indicates a failure to parse PKCS7 formatted data.
	ErrParsePKCS7 = errors.New("x509certs: failed to parse PKCS7 data")

	// ErrNoCertificatesInPKCS indicates that no certificates were found in the PKCS7 data.
	ErrNoCertificatesInPKCS = errors.New("x509certs: no certificates found in PKCS7 data")
)

const (
	certBlockType = "CERTIFICATE"
	crlBlockType  = "X509 CRL"
)

// Certificate provides methods to decode and encode [X.509] certificates.
// It maintains internal configuration such as the certificate block type.
//
// [X.509]: https://en.wikipedia.org/wiki/X.509
type Certificate struct {
	certBlockType string
}

// New creates a new Certificate with default settings.
func New() *Certificate {
	return &Certificate{
		certBlockType: certBlockType,
	}
}

// IsPEM checks if the data is in PEM format.
func (c *Certificate) IsPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}

// decodePEMBlock decodes a PEM block and checks its type.
func (c *Certificate) decodePEMBlock(data []byte) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMBlock
	}
	if block.Type != c.certBlockType {
		return nil, ErrInvalidBlockType
	}
	return block, nil
}

// SplitPEM returns the text of every certificate block of bundle, from its
// BEGIN line through its END line. Blocks are found by their markers alone,
// so an entry whose body is garbled is still returned; callers count what
// the peer sent and skip what they cannot decode. Blocks of other types and
// text between blocks are ignored.
func (c *Certificate) SplitPEM(bundle []byte) [][]byte {
	begin := []byte("-----BEGIN " + c.certBlockType + "-----")
	end := []byte("-----END " + c.certBlockType + "-----")

	var entries [][]byte
	rest := bundle
	for {
		i := bytes.Index(rest, begin)
		if i < 0 {
			break
		}
		rest = rest[i:]

		j := bytes.Index(rest, end)
		if j < 0 {
			break
		}
		j += len(end)

		entry := make([]byte, 0, j+1)
		entry = append(append(entry, rest[:j]...), '\n')
		entries = append(entries, entry)
		rest = rest[j:]
	}

	return entries
}

// DecodeBundle decodes every certificate of a configured CA file, which may
// be a PEM bundle, concatenated DER, or a PKCS7 container.
func (c *Certificate) DecodeBundle(data []byte) ([]*x509.Certificate, error) {
	if c.IsPEM(data) {
		var certs []*x509.Certificate
		for _, entry := range c.SplitPEM(data) {
			cert, err := c.Decode(entry)
			if err != nil {
				return nil, err
			}
			certs = append(certs, cert)
		}
		if len(certs) == 0 {
			return nil, ErrInvalidBlockType
		}
		return certs, nil
	}

	if certs, err := x509.ParseCertificates(data); err == nil && len(certs) > 0 {
		return certs, nil
	}

	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, ErrParsePKCS7
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificatesInPKCS
	}

	return p.Content.SignedData.Certificates, nil
}

// Decode decodes a single certificate from data.
func (c *Certificate) Decode(data []byte) (*x509.Certificate, error) {
	if c.IsPEM(data) {
		block, err := c.decodePEMBlock(data)
		if err != nil {
			return nil, err
		}

		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err == nil {
		return cert, nil
	}

	// Attempt to parse as PKCS7 using Cloudflare's library
	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, ErrParsePKCS7
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificatesInPKCS
	}

	return p.Content.SignedData.Certificates[0], nil
}

// EncodePEM encodes a certificate to PEM format.
func (c *Certificate) EncodePEM(cert *x509.Certificate) []byte {
	block := pem.Block{
		Type:  c.certBlockType,
		Bytes: cert.Raw,
	}
	return pem.EncodeToMemory(&block)
}

// IsCRLPEM reports whether data starts with an armored CRL.
func IsCRLPEM(data []byte) bool {
	block, _ := pem.Decode(bytes.TrimSpace(data))
	return block != nil && block.Type == crlBlockType
}

// NormalizeCRL returns data armored as an X509 CRL PEM block. Data that is
// already armored is returned unchanged.
func NormalizeCRL(data []byte) []byte {
	if IsCRLPEM(data) {
		return data
	}
	return pem.EncodeToMemory(&pem.Block{Type: crlBlockType, Bytes: data})
}

// DecodeCRL parses a CRL given either as PEM or DER.
func DecodeCRL(data []byte) (*x509.RevocationList, error) {
	if block, _ := pem.Decode(bytes.TrimSpace(data)); block != nil {
		if block.Type != crlBlockType {
			return nil, ErrInvalidBlockType
		}
		data = block.Bytes
	}
	return x509.ParseRevocationList(data)
}
