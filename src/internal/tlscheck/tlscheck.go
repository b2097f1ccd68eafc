// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package tlscheck

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCertificate indicates that a successful transcript carried no
	// server certificate.
	ErrNoCertificate = errors.New("tlscheck: no server certificate in transcript")
)

// Output signatures shared by all runners.
const (
	SigConnectionRefused = "connect: Connection refused"
	SigVerifyOK          = "verify return:1"
	SigUnknownIssuer     = "verify error:num=20:unable to get local issuer certificate"
	SigSelfSignedInChain = "verify error:num=19:self signed certificate in certificate chain"
	SigAlertExpired      = "sslv3 alert certificate expired"
	SigAlertRevoked      = "sslv3 alert certificate revoked"
	SigAlertBadPolicy    = "SSL alert number 46"
	SigAlertUnknownCA    = "tlsv1 alert unknown ca"
)

// Client is a client certificate presented during the handshake.
type Client struct {
	// CertFile and KeyFile are PEM files.
	CertFile string
	KeyFile  string
	// Password decrypts an encrypted KeyFile.
	Password string
}

// Transcript is the output of one connection attempt.
type Transcript struct {
	Lines []string
	// ReturnCode is 0 when the handshake completed.
	ReturnCode int
	Duration   time.Duration
}

// Runner opens one TLS connection to hostPort.
//
// Handshake failures are reported through the transcript; an error means
// the runner could not run at all.
type Runner interface {
	Connect(ctx context.Context, hostPort string, client *Client) (*Transcript, error)
}
