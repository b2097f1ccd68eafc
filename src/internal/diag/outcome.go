// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package diag

import "fmt"

// Outcome is the stable identifier of how a probe or check ended.
type Outcome string

const (
	OutcomeOK                   Outcome = "OK"
	OutcomeInvalid              Outcome = "INVALID"
	OutcomeNotConfigured        Outcome = "NOT_CONFIGURED"
	OutcomeIncompleteData       Outcome = "INCOMPLETE_DATA"
	OutcomeNoResponse           Outcome = "NO_RESPONSE"
	OutcomeImmediateReject      Outcome = "IMMEDIATE_REJECT"
	OutcomeConversationReject   Outcome = "CONVERSATION_REJECT"
	OutcomeServerUnfinishedComm Outcome = "SERVER_UNFINISHED_COMM"
	OutcomeConnectionRefused    Outcome = "CONNECTION_REFUSED"
	OutcomeSkipped              Outcome = "SKIPPED"
)

// String returns the identifier.
func (o Outcome) String() string { return string(o) }

// PacketCode is a RADIUS message type code as reported in a handshake trace.
type PacketCode uint8

const (
	PacketAccessRequest   PacketCode = 1
	PacketAccessAccept    PacketCode = 2
	PacketAccessReject    PacketCode = 3
	PacketAccessChallenge PacketCode = 11
)

// String returns the RFC 2865 name of the code.
func (c PacketCode) String() string {
	switch c {
	case PacketAccessRequest:
		return "Access-Request"
	case PacketAccessAccept:
		return "Access-Accept"
	case PacketAccessReject:
		return "Access-Reject"
	case PacketAccessChallenge:
		return "Access-Challenge"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// HostnameVerdict is the result of matching expected server names against
// the server certificate.
type HostnameVerdict string

const (
	HostnameNotChecked HostnameVerdict = ""
	HostnameTotal      HostnameVerdict = "TOTAL"
	HostnamePartial    HostnameVerdict = "PARTIAL"
	HostnameUnhappy    HostnameVerdict = "UNHAPPY"
)

// TrustTier records how far path validation of the server certificate got.
type TrustTier int

const (
	// TrustNotChecked means validation did not run (no profile, no server certificate).
	TrustNotChecked TrustTier = iota
	// TrustRootNotReached means validation failed even with configured anchors.
	TrustRootNotReached
	// TrustOutOfBand means only the configured anchors made validation succeed.
	TrustOutOfBand
	// TrustOK means validation succeeded with the observed chain alone.
	TrustOK
)

// String returns a short label for the tier.
func (t TrustTier) String() string {
	switch t {
	case TrustRootNotReached:
		return "root-not-reached"
	case TrustOutOfBand:
		return "out-of-band"
	case TrustOK:
		return "ok"
	default:
		return "not-checked"
	}
}
