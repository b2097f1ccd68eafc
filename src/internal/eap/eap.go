// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package eap describes the EAP methods the diagnostics can attempt.
package eap

import (
	"errors"
	"strings"
)

// ErrUnknownMethod is returned by [Lookup] for names it does not know.
var ErrUnknownMethod = errors.New("eap: unknown method")

// IANA EAP type numbers used on the wire.
const (
	TypeIdentity = 1
	TypeNAK      = 3
	TypeTLS      = 13
	TypeTTLS     = 21
	TypePEAP     = 25
	TypeFAST     = 43
	TypePWD      = 52
)

// Method is one EAP method as configured in the supplicant.
type Method struct {
	// Name is the display name, e.g. "PEAP-MSCHAPv2".
	Name string
	// Outer is the supplicant "eap=" value. ANY lists several methods.
	Outer string
	// Inner is the phase 2 method, empty for untunnelled methods.
	Inner string
	// Type is the IANA number of the outer method, zero for ANY.
	Type uint8
}

var (
	TLS          = Method{Name: "EAP-TLS", Outer: "TLS", Type: TypeTLS}
	PEAPMSCHAPv2 = Method{Name: "PEAP-MSCHAPv2", Outer: "PEAP", Inner: "MSCHAPV2", Type: TypePEAP}
	TTLSPAP      = Method{Name: "TTLS-PAP", Outer: "TTLS", Inner: "PAP", Type: TypeTTLS}
	TTLSMSCHAPv2 = Method{Name: "TTLS-MSCHAPv2", Outer: "TTLS", Inner: "MSCHAPV2", Type: TypeTTLS}
	TTLSGTC      = Method{Name: "TTLS-GTC", Outer: "TTLS", Inner: "GTC", Type: TypeTTLS}
	FASTGTC      = Method{Name: "EAP-FAST-GTC", Outer: "FAST", Inner: "GTC", Type: TypeFAST}
	PWD          = Method{Name: "EAP-pwd", Outer: "PWD", Type: TypePWD}
	Any          = Method{Name: "ANY", Outer: "PEAP TTLS TLS"}
)

// Methods lists every known method.
var Methods = []Method{TLS, PEAPMSCHAPv2, TTLSPAP, TTLSMSCHAPv2, TTLSGTC, FASTGTC, PWD, Any}

// Lookup finds a method by display name, case-insensitively.
func Lookup(name string) (Method, error) {
	for _, m := range Methods {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Method{}, ErrUnknownMethod
}

// CertificateOnly reports whether the method authenticates with a client
// certificate and no password.
func (m Method) CertificateOnly() bool { return m.Name == TLS.Name }

// UsesClientCert reports whether the method needs client certificate data.
func (m Method) UsesClientCert() bool { return m.Name == TLS.Name || m.Name == Any.Name }

// PresentsServerChain reports whether a server certificate chain is
// exchanged, which is the case for every TLS-based method.
func (m Method) PresentsServerChain() bool { return m.Name != PWD.Name }

// Configured reports whether the method has an outer method name.
func (m Method) Configured() bool { return m.Outer != "" }

// String returns the display name.
func (m Method) String() string { return m.Name }
