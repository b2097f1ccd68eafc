// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
)

var (
	// ErrNoOutput indicates that the handshake runner produced no trace at
	// all. This is a tooling fault, unlike an attempt that got no answer.
	ErrNoOutput = errors.New("probe: no output from handshake runner")

	// ErrUnsupportedMethod indicates that a runner cannot perform the
	// requested EAP method.
	ErrUnsupportedMethod = errors.New("probe: EAP method not supported by runner")
)

const (
	// ServerChainFile receives the certificate chain the server presented.
	ServerChainFile = "serverchain.pem"

	// DefaultOperatorName is sent in the Operator-Name attribute.
	DefaultOperatorName = "1cat.eduroam.org"

	// RedactedLine replaces trace lines that contain the password.
	RedactedLine = "LINE CONTAINING PASSWORD REDACTED"

	// RedactedHex replaces the hex dump of the password.
	RedactedHex = " HEX ENCODED PASSWORD REDACTED "

	// FragmentAttributes is how many oversized attributes force IP
	// fragmentation of the first Access-Request.
	FragmentAttributes = 6
)

// fragmentVSA is a 253 byte Vendor-Specific value: vendor 25178, type 11,
// filled with 'a'.
var fragmentVSA = append([]byte{0x00, 0x00, 0x62, 0x5a, 0x0b, 0xf9}, []byte(strings.Repeat("a", 247))...)

// FragmentVSA returns the Vendor-Specific attribute value used to force
// fragmentation.
func FragmentVSA() []byte { return slices.Clone(fragmentVSA) }

// Target is a configured RADIUS server.
type Target struct {
	// Index is the position of the target in the configuration.
	Index int
	// Address is "host" or "host:port".
	Address string
	Secret  string
	Timeout time.Duration
	// Display is a human label for output.
	Display string
}

// HostPort splits Address into host and port. port is empty when Address
// carries none.
func (t Target) HostPort() (host, port string) {
	if h, p, err := net.SplitHostPort(t.Address); err == nil {
		return h, p
	}
	return strings.Trim(t.Address, "[]"), ""
}

// Attempt describes one authentication attempt. Inner and Outer are the
// final identities.
type Attempt struct {
	Method             eap.Method
	Inner              string
	Outer              string
	Password           string
	ClientCert         []byte
	ClientCertPassword string
	// OperatorName is sent as Operator-Name when not empty.
	OperatorName string
	// Fragment pads the request so that it needs IP fragmentation.
	Fragment bool
}

// Request is what a [HandshakeRunner] receives.
type Request struct {
	Target  Target
	Attempt Attempt
	// Dir is the scratch directory holding the supplicant configuration
	// and client credential.
	Dir string
}

// Capture is the raw outcome of one attempt.
type Capture struct {
	Lines []string
	// Chain is the PEM encoded chain the server presented, if any.
	Chain    []byte
	Duration time.Duration
}

// HandshakeRunner performs one authentication attempt.
//
// Runners report protocol failures through the trace and only return an
// error when they could not run at all.
type HandshakeRunner interface {
	Run(ctx context.Context, req *Request) (*Capture, error)
}

// Redact replaces every line containing secret and every hex dump of it.
// lines is not modified.
func Redact(lines []string, secret string) []string {
	out := slices.Clone(lines)
	if secret == "" {
		return out
	}

	spaced := hexSpaced(secret)
	for i, line := range out {
		if strings.Contains(line, secret) {
			out[i] = RedactedLine
			continue
		}
		out[i] = replaceFold(line, spaced, RedactedHex)
	}
	return out
}

// hexSpaced renders s the way hex dumps in traces do: "73 33 63".
func hexSpaced(s string) string {
	h := hex.EncodeToString([]byte(s))
	var b strings.Builder
	for i := 0; i < len(h); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(h[i : i+2])
	}
	return b.String()
}

func replaceFold(s, old, repl string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	for {
		i := strings.Index(lower, old)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s, lower = s[i+len(old):], lower[i+len(old):]
	}
}
