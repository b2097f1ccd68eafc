// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package packetflow turns the text trace of an EAP handshake into the
// sequence of RADIUS message codes that was exchanged and classifies how the
// conversation ended.
//
// The trace vocabulary is the one printed by eapol_test; the native runner
// in the probe package prints the same lines.
package packetflow

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// Flow is the ordered sequence of RADIUS codes of one attempt.
type Flow []diag.PacketCode

var (
	radiusMessage = regexp.MustCompile(`RADIUS message: code=(\d+)`)

	mschapError691   = regexp.MustCompile(`MSCHAPV2: error 691`)
	mschapRetry      = regexp.MustCompile(`MSCHAPV2: retry is allowed`)
	replyMessage     = regexp.MustCompile(`Attribute 18 \(Reply-Message\)`)
	rejectNotIgnored = regexp.MustCompile(`Reject instead of Ignore at eduroam\.org`)
)

const proposedMethod = "CTRL-EVENT-EAP-PROPOSED-METHOD"

// Extract returns the RADIUS codes reported by trace, in order.
func Extract(trace []string) Flow {
	var flow Flow
	for _, line := range trace {
		m := radiusMessage.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code, err := strconv.ParseUint(m[1], 10, 8)
		if err != nil {
			continue
		}
		flow = append(flow, diag.PacketCode(code))
	}
	return flow
}

// Last returns the trailing code, or zero for an empty flow.
func (f Flow) Last() diag.PacketCode {
	if len(f) == 0 {
		return 0
	}
	return f[len(f)-1]
}

// consecutive reports whether some line matches first and the next line matches second.
func consecutive(trace []string, first, second *regexp.Regexp) bool {
	for i := 0; i+1 < len(trace); i++ {
		if first.MatchString(trace[i]) && second.MatchString(trace[i+1]) {
			return true
		}
	}
	return false
}

// HasMSCHAPv2Retry reports an MS-CHAPv2 failure 691 with retry allowed.
// Some servers then leave the conversation hanging on a Challenge instead
// of rejecting it.
func HasMSCHAPv2Retry(trace []string) bool {
	return consecutive(trace, mschapError691, mschapRetry)
}

// HasRejectInsteadOfIgnore reports a Reject synthesised by the top-level
// relay on behalf of a server that did not answer.
func HasRejectInsteadOfIgnore(trace []string) bool {
	return consecutive(trace, replyMessage, rejectNotIgnored)
}

// CorrectQuirks applies the known server and relay quirks to flow and
// returns the corrected flow. flow itself is not modified.
func CorrectQuirks(flow Flow, trace []string) Flow {
	out := slices.Clone(flow)

	if out.Last() == diag.PacketAccessChallenge && HasMSCHAPv2Retry(trace) {
		out[len(out)-1] = diag.PacketAccessReject
	}
	if out.Last() == diag.PacketAccessReject && HasRejectInsteadOfIgnore(trace) {
		out = out[:len(out)-1]
	}

	return out
}

// MethodAcknowledged reports whether the client accepted an EAP method the
// server proposed.
func MethodAcknowledged(trace []string) bool {
	for _, line := range trace {
		if strings.Contains(line, proposedMethod) && !strings.HasSuffix(strings.TrimSpace(line), "NAK") {
			return true
		}
	}
	return false
}

// Count tallies the message types of flow.
func Count(flow Flow) diag.PacketCount {
	var c diag.PacketCount
	for _, code := range flow {
		switch code {
		case diag.PacketAccessRequest:
			c.Requests++
		case diag.PacketAccessAccept:
			c.Accepts++
		case diag.PacketAccessReject:
			c.Rejects++
		case diag.PacketAccessChallenge:
			c.Challenges++
		}
	}
	return c
}

// Sane reports whether every request got exactly one answer and the
// conversation ended at most once.
func Sane(c diag.PacketCount) bool {
	return c.Requests-c.Accepts-c.Rejects-c.Challenges == 0 && c.Accepts <= 1 && c.Rejects <= 1
}

// Classify maps packet counts to an outcome.
func Classify(c diag.PacketCount) diag.Outcome {
	switch {
	case c.Accepts+c.Rejects == 0 && c.Challenges > 0:
		return diag.OutcomeServerUnfinishedComm
	case c.Accepts+c.Rejects == 0:
		return diag.OutcomeNoResponse
	case c.Rejects > 0 && c.Challenges == 0:
		return diag.OutcomeImmediateReject
	case c.Rejects > 0:
		return diag.OutcomeConversationReject
	case c.Accepts > 0:
		return diag.OutcomeOK
	default:
		return diag.OutcomeInvalid
	}
}

// Analysis is everything the classifier derives from one trace.
type Analysis struct {
	Flow               Flow
	Count              diag.PacketCount
	Sane               bool
	Outcome            diag.Outcome
	MethodAcknowledged bool
}

// Analyze extracts, corrects, counts and classifies trace.
func Analyze(trace []string) Analysis {
	flow := CorrectQuirks(Extract(trace), trace)
	count := Count(flow)

	return Analysis{
		Flow:               flow,
		Count:              count,
		Sane:               Sane(count),
		Outcome:            Classify(count),
		MethodAcknowledged: MethodAcknowledged(trace),
	}
}

// NeedsCertificateAnalysis reports whether the returned chain is worth
// inspecting: after a success, or after a conversation reject in which the
// client acknowledged a method.
func (a Analysis) NeedsCertificateAnalysis() bool {
	return a.Outcome == diag.OutcomeOK ||
		(a.Outcome == diag.OutcomeConversationReject && a.MethodAcknowledged)
}
