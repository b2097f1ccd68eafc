// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package credential loads client certificates for the native handshake
// runners. A credential is either a PKCS#12 container or PEM data holding
// certificates and one private key, which may be an encrypted PKCS#8 key.
package credential

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"slices"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"
)

var (
	// ErrNoCertificate indicates that the credential holds no certificate.
	ErrNoCertificate = errors.New("credential: no certificate found")

	// ErrNoPrivateKey indicates that the credential holds no usable private key.
	ErrNoPrivateKey = errors.New("credential: no private key found")
)

// Load decodes data as PEM when it carries a PEM block and as PKCS#12
// otherwise. password unlocks the container or the encrypted key.
func Load(data []byte, password string) (tls.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		return LoadPEM(data, data, password)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("credential: decode PKCS#12: %w", err)
	}

	var buf []byte
	for _, b := range blocks {
		// bag attributes end up as headers; drop them
		buf = append(buf, pem.EncodeToMemory(&pem.Block{Type: b.Type, Bytes: b.Bytes})...)
	}
	return LoadPEM(buf, buf, password)
}

// LoadPEM builds a certificate from the CERTIFICATE blocks of certPEM and
// the first private key block of keyPEM. The certificate matching the key
// becomes the leaf.
func LoadPEM(certPEM, keyPEM []byte, password string) (tls.Certificate, error) {
	var certs []*x509.Certificate
	for rest := certPEM; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("credential: parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return tls.Certificate{}, ErrNoCertificate
	}

	key, err := privateKey(keyPEM, password)
	if err != nil {
		return tls.Certificate{}, err
	}

	if signer, ok := key.(crypto.Signer); ok {
		if i := slices.IndexFunc(certs, func(c *x509.Certificate) bool { return publicKeyEqual(c.PublicKey, signer.Public()) }); i > 0 {
			certs[0], certs[i] = certs[i], certs[0]
		}
	}

	out := tls.Certificate{PrivateKey: key, Leaf: certs[0]}
	for _, c := range certs {
		out.Certificate = append(out.Certificate, c.Raw)
	}
	return out, nil
}

func privateKey(keyPEM []byte, password string) (crypto.PrivateKey, error) {
	for rest := keyPEM; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		var (
			key any
			err error
		)
		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
		case "PRIVATE KEY":
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			key, err = x509.ParseECPrivateKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("credential: parse %s: %w", block.Type, err)
		}
		return key, nil
	}
	return nil, ErrNoPrivateKey
}

func publicKeyEqual(a, b crypto.PublicKey) bool {
	k, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(b)
}
