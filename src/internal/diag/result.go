// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package diag

import "time"

// PacketCount tallies the RADIUS message types of a packet flow.
type PacketCount struct {
	Requests   int `json:"requests"`
	Accepts    int `json:"accepts"`
	Rejects    int `json:"rejects"`
	Challenges int `json:"challenges"`
}

// CertificateDetail is the presentation view of one certificate of a
// returned chain.
type CertificateDetail struct {
	Role                  string    `json:"role"`
	Subject               string    `json:"subject"`
	Issuer                string    `json:"issuer"`
	SerialNumber          string    `json:"serialNumber"`
	SignatureAlgorithm    string    `json:"signatureAlgorithm"`
	KeyBits               int       `json:"keyBits,omitempty"`
	NotBefore             time.Time `json:"notBefore"`
	NotAfter              time.Time `json:"notAfter"`
	CommonNames           []string  `json:"commonNames,omitempty"`
	DNSNames              []string  `json:"dnsNames,omitempty"`
	CRLDistributionPoints []string  `json:"crlDistributionPoints,omitempty"`
	CRLAttached           bool      `json:"crlAttached"`
	Oddities              []Oddity  `json:"oddities,omitempty"`
}

// Result is the record of one EAP login or reachability probe.
//
// A Result is always fully populated for the stages that ran; stages that
// did not run leave their fields at the zero value.
type Result struct {
	RunID          string              `json:"runId"`
	ProbeIndex     int                 `json:"probeIndex"`
	Method         string              `json:"eapMethod,omitempty"`
	Outcome        Outcome             `json:"outcome"`
	TimeMillisec   int64               `json:"timeMillisec"`
	PacketFlow     []PacketCode        `json:"packetflow,omitempty"`
	PacketCount    PacketCount         `json:"packetCount"`
	PacketFlowSane bool                `json:"packetflowSane"`
	Oddities       *OdditySet          `json:"oddities"`
	Certificates   []CertificateDetail `json:"certificates,omitempty"`
	ServerNames    []string            `json:"incomingServerNames,omitempty"`
	HostnameMatch  HostnameVerdict     `json:"hostnameMatch,omitempty"`
	TrustTier      TrustTier           `json:"trustTier"`
}

// NewResult returns a Result for the given probe with an empty oddity set.
func NewResult(runID string, index int, outcome Outcome) *Result {
	return &Result{
		RunID:      runID,
		ProbeIndex: index,
		Outcome:    outcome,
		Oddities:   &OdditySet{},
	}
}
