// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package diag

import (
	"encoding/json"
	"slices"
	"sync"
)

// Oddity is a stable, enumerated problem code found during a probe.
type Oddity string

const (
	OddityNoCommonEAPMethod      Oddity = "NO_COMMON_EAP_METHOD"
	OddityRootIncluded           Oddity = "ROOT_INCLUDED"
	OddityTooManyServerCerts     Oddity = "TOO_MANY_SERVER_CERTS"
	OddityNoServerCert           Oddity = "NO_SERVER_CERT"
	OdditySignatureMD5           Oddity = "CERT_SIGNATURE_MD5"
	OdditySignatureSHA1          Oddity = "CERT_SIGNATURE_SHA1"
	OddityNoBasicConstraints     Oddity = "NO_BASICCONSTRAINTS"
	OddityLowKeyLength           Oddity = "LOW_KEY_LENGTH"
	OddityOutsideValidityPeriod  Oddity = "OUTSIDE_VALIDITY_PERIOD"
	OddityOutsideValidityWarn    Oddity = "OUTSIDE_VALIDITY_PERIOD_WARN"
	OddityNoCDP                  Oddity = "NO_CDP"
	OddityNoCDPHTTP              Oddity = "NO_CDP_HTTP"
	OddityNoCRLAtCDPURL          Oddity = "NO_CRL_AT_CDP_URL"
	OddityNoTLSWebServerOID      Oddity = "NO_TLS_WEBSERVER_OID"
	OddityWildcardInName         Oddity = "WILDCARD_IN_NAME"
	OddityMultipleCN             Oddity = "MULTIPLE_CN"
	OddityNotAHostname           Oddity = "NOT_A_HOSTNAME"
	OddityServerCertRevoked      Oddity = "SERVER_CERT_REVOKED"
	OddityUnableToGetCRL         Oddity = "UNABLE_TO_GET_CRL"
	OddityTrustRootNotReached    Oddity = "TRUST_ROOT_NOT_REACHED"
	OddityTrustRootOnlyOOB       Oddity = "TRUST_ROOT_REACHED_ONLY_WITH_OOB_INTERMEDIATES"
	OddityServerNameMismatch     Oddity = "SERVER_NAME_MISMATCH"
	OddityServerNamePartialMatch Oddity = "SERVER_NAME_PARTIAL_MATCH"
	OddityUnknownCA              Oddity = "UNKNOWN_CA"
	OddityNotAccepted            Oddity = "NOT_ACCEPTED"
	OddityWronglyAccepted        Oddity = "WRONGLY_ACCEPTED"
)

// Severity grades an oddity for presentation.
type Severity int

const (
	SeverityRemark Severity = iota + 1
	SeverityWarning
	SeverityError
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "remark"
	}
}

var severities = map[Oddity]Severity{
	OddityNoCommonEAPMethod:      SeverityError,
	OddityRootIncluded:           SeverityWarning,
	OddityTooManyServerCerts:     SeverityWarning,
	OddityNoServerCert:           SeverityError,
	OdditySignatureMD5:           SeverityError,
	OdditySignatureSHA1:          SeverityWarning,
	OddityNoBasicConstraints:     SeverityError,
	OddityLowKeyLength:           SeverityError,
	OddityOutsideValidityPeriod:  SeverityError,
	OddityOutsideValidityWarn:    SeverityWarning,
	OddityNoCDP:                  SeverityRemark,
	OddityNoCDPHTTP:              SeverityWarning,
	OddityNoCRLAtCDPURL:          SeverityWarning,
	OddityNoTLSWebServerOID:      SeverityWarning,
	OddityWildcardInName:         SeverityWarning,
	OddityMultipleCN:             SeverityWarning,
	OddityNotAHostname:           SeverityWarning,
	OddityServerCertRevoked:      SeverityError,
	OddityUnableToGetCRL:         SeverityWarning,
	OddityTrustRootNotReached:    SeverityError,
	OddityTrustRootOnlyOOB:       SeverityWarning,
	OddityServerNameMismatch:     SeverityError,
	OddityServerNamePartialMatch: SeverityWarning,
	OddityUnknownCA:              SeverityError,
	OddityNotAccepted:            SeverityError,
	OddityWronglyAccepted:        SeverityError,
}

// Severity returns the severity of o. Unknown codes are remarks.
func (o Oddity) Severity() Severity {
	if s, ok := severities[o]; ok {
		return s
	}
	return SeverityRemark
}

// Known reports whether o is one of the enumerated codes.
func (o Oddity) Known() bool {
	_, ok := severities[o]
	return ok
}

// OdditySet is an append-only set of oddities that keeps insertion order.
//
// The zero value is ready to use. OdditySet is safe for concurrent use by
// multiple goroutines.
type OdditySet struct {
	mu    sync.RWMutex
	items []Oddity
}

// Add appends each oddity that is not yet present.
func (s *OdditySet) Add(o ...Oddity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range o {
		if !slices.Contains(s.items, v) {
			s.items = append(s.items, v)
		}
	}
}

// Merge appends every oddity of other.
func (s *OdditySet) Merge(other *OdditySet) {
	if other == nil || other == s {
		return
	}
	s.Add(other.List()...)
}

// Has reports whether o has been added.
func (s *OdditySet) Has(o Oddity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Contains(s.items, o)
}

// Len returns the number of distinct oddities.
func (s *OdditySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// List returns a copy of the oddities in insertion order.
func (s *OdditySet) List() []Oddity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.items)
}

// KnownList returns the enumerated codes of the set in insertion order.
// Metrics are labelled with these only.
func (s *OdditySet) KnownList() []Oddity {
	var known []Oddity
	for _, o := range s.List() {
		if o.Known() {
			known = append(known, o)
		}
	}
	return known
}

// Worst returns the highest severity in the set, or zero for an empty set.
func (s *OdditySet) Worst() Severity {
	var worst Severity
	for _, o := range s.List() {
		worst = max(worst, o.Severity())
	}
	return worst
}

// MarshalJSON encodes the set as a JSON array of codes.
func (s *OdditySet) MarshalJSON() ([]byte, error) {
	items := s.List()
	if items == nil {
		items = []Oddity{}
	}
	return json.Marshal(items)
}
