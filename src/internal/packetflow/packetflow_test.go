// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package packetflow_test

import (
	"fmt"
	"testing"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/packetflow"
	"github.com/stretchr/testify/assert"
)

// radiusLine renders a trace line the way eapol_test reports a RADIUS message.
func radiusLine(code diag.PacketCode) string {
	return fmt.Sprintf("RADIUS message: code=%d (%s) identifier=0 length=120", code, code)
}

func trace(codes ...diag.PacketCode) []string {
	lines := []string{"Reading configuration file './udp_login_test.conf'"}
	for _, c := range codes {
		lines = append(lines, "Sending RADIUS message", radiusLine(c))
	}
	return lines
}

const (
	req  = diag.PacketAccessRequest
	acc  = diag.PacketAccessAccept
	rej  = diag.PacketAccessReject
	chal = diag.PacketAccessChallenge
)

func TestExtract(t *testing.T) {
	lines := append(trace(req, chal, req, acc), "RADIUS message: code=abc", "unrelated")
	assert.Equal(t, packetflow.Flow{req, chal, req, acc}, packetflow.Extract(lines))
	assert.Empty(t, packetflow.Extract(nil))
	assert.Equal(t, diag.PacketCode(0), packetflow.Flow{}.Last())
}

func TestSane(t *testing.T) {
	for reqs := 0; reqs <= 4; reqs++ {
		for accepts := 0; accepts <= 2; accepts++ {
			for rejects := 0; rejects <= 2; rejects++ {
				for challenges := 0; challenges <= 3; challenges++ {
					c := diag.PacketCount{Requests: reqs, Accepts: accepts, Rejects: rejects, Challenges: challenges}
					expected := reqs == accepts+rejects+challenges && accepts <= 1 && rejects <= 1
					assert.Equal(t, expected, packetflow.Sane(c), "%+v", c)
				}
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		count    diag.PacketCount
		expected diag.Outcome
	}{
		{"nothing answered", diag.PacketCount{Requests: 3}, diag.OutcomeNoResponse},
		{"empty flow", diag.PacketCount{}, diag.OutcomeNoResponse},
		{"challenges only", diag.PacketCount{Requests: 3, Challenges: 2}, diag.OutcomeServerUnfinishedComm},
		{"reject without challenge", diag.PacketCount{Requests: 1, Rejects: 1}, diag.OutcomeImmediateReject},
		{"reject after challenges", diag.PacketCount{Requests: 5, Challenges: 4, Rejects: 1}, diag.OutcomeConversationReject},
		{"accept", diag.PacketCount{Requests: 5, Challenges: 4, Accepts: 1}, diag.OutcomeOK},
		{"reject wins over accept", diag.PacketCount{Requests: 2, Accepts: 1, Rejects: 1}, diag.OutcomeImmediateReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, packetflow.Classify(tt.count))
		})
	}
}

func TestCorrectQuirks(t *testing.T) {
	tests := []struct {
		name     string
		trace    []string
		expected packetflow.Flow
	}{
		{
			name: "691 retry rewrites trailing challenge",
			trace: append(trace(req, chal, req, chal),
				"EAP-MSCHAPV2: Received failure",
				"MSCHAPV2: error 691",
				"MSCHAPV2: retry is allowed"),
			expected: packetflow.Flow{req, chal, req, rej},
		},
		{
			name: "691 without retry on the next line is left alone",
			trace: append(trace(req, chal, req, chal),
				"MSCHAPV2: error 691",
				"something else",
				"MSCHAPV2: retry is allowed"),
			expected: packetflow.Flow{req, chal, req, chal},
		},
		{
			name: "relay reject is dropped",
			trace: append(trace(req, rej),
				"Attribute 18 (Reply-Message) length=50",
				"    Value: 'Reject instead of Ignore at eduroam.org'"),
			expected: packetflow.Flow{req},
		},
		{
			name: "691 rewrite then relay drop",
			trace: append(trace(req, chal),
				"MSCHAPV2: error 691",
				"MSCHAPV2: retry is allowed",
				"Attribute 18 (Reply-Message) length=50",
				"    Value: 'Reject instead of Ignore at eduroam.org'"),
			expected: packetflow.Flow{req},
		},
		{
			name:     "plain reject untouched",
			trace:    trace(req, chal, req, rej),
			expected: packetflow.Flow{req, chal, req, rej},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := packetflow.Extract(tt.trace)
			before := append(packetflow.Flow(nil), original...)

			assert.Equal(t, tt.expected, packetflow.CorrectQuirks(original, tt.trace))
			assert.Equal(t, before, original, "input flow must not be modified")
		})
	}
}

func TestMethodAcknowledged(t *testing.T) {
	tests := []struct {
		name     string
		trace    []string
		expected bool
	}{
		{"accepted method", []string{"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=25"}, true},
		{"nak only", []string{"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=13 -> NAK"}, false},
		{"nak then accepted", []string{
			"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=13 -> NAK",
			"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=21",
		}, true},
		{"no proposal", []string{"EAP: EAP entering state IDLE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, packetflow.MethodAcknowledged(tt.trace))
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name         string
		trace        []string
		outcome      diag.Outcome
		sane         bool
		certAnalysis bool
	}{
		{
			name:         "successful conversation",
			trace:        append(trace(req, chal, req, chal, req, acc), "CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=25"),
			outcome:      diag.OutcomeOK,
			sane:         true,
			certAnalysis: true,
		},
		{
			name:         "conversation reject with acknowledged method",
			trace:        append(trace(req, chal, req, rej), "CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=21"),
			outcome:      diag.OutcomeConversationReject,
			sane:         true,
			certAnalysis: true,
		},
		{
			name:    "conversation reject without common method",
			trace:   append(trace(req, chal, req, rej), "CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=13 -> NAK"),
			outcome: diag.OutcomeConversationReject,
			sane:    true,
		},
		{
			name:    "timeout",
			trace:   trace(req, req, req),
			outcome: diag.OutcomeNoResponse,
			sane:    false,
		},
		{
			name:         "double accept is not sane",
			trace:        trace(req, acc, req, acc),
			outcome:      diag.OutcomeOK,
			sane:         false,
			certAnalysis: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := packetflow.Analyze(tt.trace)
			assert.Equal(t, tt.outcome, a.Outcome)
			assert.Equal(t, tt.sane, a.Sane)
			assert.Equal(t, tt.certAnalysis, a.NeedsCertificateAnalysis())
		})
	}
}
