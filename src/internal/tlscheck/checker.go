// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package tlscheck

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/metrics"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// Issuer and certificate states of a client certificate test set.
const (
	StatusAccredited    = "ACCREDITED"
	StatusNonAccredited = "NONACCREDITED"

	CertCorrect     = "CORRECT"
	CertWrongPolicy = "WRONGPOLICY"
	CertExpired     = "EXPIRED"
	CertRevoked     = "REVOKED"

	ExpectPass = "PASS"
	ExpectFail = "FAIL"
)

var statusMessages = map[string]string{
	StatusAccredited:    "accredited",
	StatusNonAccredited: "non-accredited",
	CertCorrect:         "correct certificate",
	CertWrongPolicy:     "certificate with wrong policy OID",
	CertExpired:         "expired certificate",
	CertRevoked:         "revoked certificate",
	ExpectPass:          "pass",
	ExpectFail:          "fail",
}

// StatusMessage returns the human description of a status keyword.
func StatusMessage(status string) string {
	if m, ok := statusMessages[status]; ok {
		return m
	}
	return status
}

// Failure comments for rejected client certificates.
const (
	CommentRefused     = "No TLS connection established: Connection refused"
	CommentExpired     = "certificate expired"
	CommentRevoked     = "certificate was revoked"
	CommentBadPolicy   = "bad policy"
	CommentUnknownCA   = "unknown authority"
	CommentUnspecified = "unknown authority or no certificate policy or another problem"
)

// ClientCertGroup is a set of client certificates from one issuer.
type ClientCertGroup struct {
	Name string
	// Status is [StatusAccredited] or [StatusNonAccredited].
	Status   string
	IssuerCA string
	Certs    []ClientCertSpec
}

// ClientCertSpec is one client certificate and the expected server
// reaction.
type ClientCertSpec struct {
	// Status is one of the Cert* states.
	Status string
	// Expected is [ExpectPass] or [ExpectFail].
	Expected string
	// Public and Private are PEM files, relative to [Checker.CertDir]
	// unless absolute.
	Public   string
	Private  string
	Password string
}

// CAPathResult is the outcome of [Checker.CAPath].
type CAPathResult struct {
	Host string `json:"host"`
	// Outcome is OK unless the connection was refused or the server
	// certificate did not chain to a known root.
	Outcome diag.Outcome `json:"outcome"`
	Status  diag.Outcome `json:"status"`
	Oddity  diag.Oddity  `json:"certOddity,omitempty"`

	ReturnCode   int       `json:"returnCode"`
	TimeMillisec int64     `json:"timeMillisec"`
	Cert         *CertData `json:"certdata,omitempty"`
}

// ClientCertResult is the outcome of [Checker.ClientCerts].
type ClientCertResult struct {
	Host    string        `json:"host"`
	Outcome diag.Outcome  `json:"outcome"`
	Groups  []GroupResult `json:"ca,omitempty"`
}

// GroupResult covers one [ClientCertGroup].
type GroupResult struct {
	Name         string              `json:"from"`
	Status       string              `json:"status"`
	Message      string              `json:"message"`
	Issuer       string              `json:"issuer"`
	Certificates []CertificateResult `json:"certificate"`
}

// CertificateResult covers one [ClientCertSpec].
type CertificateResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Expected string `json:"expected"`

	ReturnCode   int          `json:"returnCode"`
	Outcome      diag.Outcome `json:"outcome"`
	Connected    bool         `json:"connected"`
	Comment      string       `json:"resultComment,omitempty"`
	Reason       diag.Oddity  `json:"reason,omitempty"`
	Verdict      diag.Oddity  `json:"verdict,omitempty"`
	FinalError   bool         `json:"finalError,omitempty"`
	TimeMillisec int64        `json:"timeMillisec"`
}

// Checker runs the TLS checks through a [Runner].
type Checker struct {
	Runner Runner
	// AcceptableOIDs maps a label to a certificate policy OID reported in
	// [CertData.PolicyOIDs].
	AcceptableOIDs map[string]string
	ClientCertSets []ClientCertGroup
	// CertDir resolves relative client certificate paths.
	CertDir string
	Logger  logger.Logger
}

// NewChecker returns a Checker using runner.
func NewChecker(runner Runner, log logger.Logger) *Checker {
	return &Checker{Runner: runner, Logger: log}
}

func (c *Checker) debugf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Debugf(format, args...)
	}
}

func contains(lines []string, sig string) bool {
	return slices.ContainsFunc(lines, func(l string) bool { return strings.Contains(l, sig) })
}

// CAPath connects to host without a client certificate and verifies the
// server against the trusted roots of the runner.
//
// Interpretation:
//   - a refused connection is CONNECTION_REFUSED;
//   - verification error 19 or 20 is UNKNOWN_CA with status INVALID;
//   - a completed verification is OK and the server certificate is
//     summarised;
//   - any other failed handshake is INVALID.
func (c *Checker) CAPath(ctx context.Context, host string) (*CAPathResult, error) {
	tr, err := c.Runner.Connect(ctx, host, nil)
	if err != nil {
		return nil, fmt.Errorf("tlscheck: %s: %w", host, err)
	}
	for _, l := range tr.Lines {
		c.debugf("%s", l)
	}

	res := &CAPathResult{
		Host:         host,
		Outcome:      diag.OutcomeOK,
		ReturnCode:   tr.ReturnCode,
		TimeMillisec: tr.Duration.Milliseconds(),
	}

	switch {
	case contains(tr.Lines, SigConnectionRefused):
		res.Status = diag.OutcomeConnectionRefused
		res.Outcome = diag.OutcomeInvalid
	case contains(tr.Lines, "verify error:num=19") || contains(tr.Lines, "verify error:num=20"):
		res.Oddity = diag.OddityUnknownCA
		res.Status = diag.OutcomeInvalid
		res.Outcome = diag.OutcomeInvalid
	case contains(tr.Lines, SigVerifyOK):
		res.Status = diag.OutcomeOK
	default:
		res.Status = diag.OutcomeInvalid
		res.Outcome = diag.OutcomeInvalid
	}

	if res.Status != diag.OutcomeConnectionRefused && contains(tr.Lines, SigVerifyOK) {
		cert, err := ServerCertificate(tr.Lines)
		if err != nil {
			c.debugf("tls %s: %v", host, err)
		} else {
			res.Cert = NewCertData(cert, c.AcceptableOIDs)
		}
	}

	metrics.RecordProbe(metrics.KindTLSCAPath, string(res.Status), tr.Duration)
	if res.Oddity != "" {
		metrics.RecordOddities(res.Oddity)
	}
	return res, nil
}

// ClientCerts connects to host once per configured client certificate.
//
// It returns SKIPPED when no certificates are configured and INVALID for
// bracketed IPv6 literals. Within a group, testing stops at the first
// certificate whose result is a final error.
func (c *Checker) ClientCerts(ctx context.Context, host string) (*ClientCertResult, error) {
	res := &ClientCertResult{Host: host, Outcome: diag.OutcomeOK}

	if len(c.ClientCertSets) == 0 {
		res.Outcome = diag.OutcomeSkipped
		return res, nil
	}
	if strings.Contains(host, "[") {
		res.Outcome = diag.OutcomeInvalid
		return res, nil
	}

	for _, group := range c.ClientCertSets {
		gr := GroupResult{
			Name:    group.Name,
			Status:  group.Status,
			Message: StatusMessage(group.Status),
			Issuer:  group.IssuerCA,
		}

		for _, spec := range group.Certs {
			cr, err := c.clientCert(ctx, host, group, spec)
			if err != nil {
				return nil, err
			}
			gr.Certificates = append(gr.Certificates, *cr)
			if cr.FinalError {
				break
			}
		}

		res.Groups = append(res.Groups, gr)
	}

	return res, nil
}

func (c *Checker) clientCert(ctx context.Context, host string, group ClientCertGroup, spec ClientCertSpec) (*CertificateResult, error) {
	client := &Client{
		CertFile: c.resolve(spec.Public),
		KeyFile:  c.resolve(spec.Private),
		Password: spec.Password,
	}

	tr, err := c.Runner.Connect(ctx, host, client)
	if err != nil {
		return nil, fmt.Errorf("tlscheck: %s with %s: %w", host, spec.Public, err)
	}
	c.debugf("tls %s with %s/%s: return code %d", host, group.Name, spec.Public, tr.ReturnCode)

	cr := &CertificateResult{
		Status:       spec.Status,
		Message:      StatusMessage(spec.Status),
		Expected:     spec.Expected,
		ReturnCode:   tr.ReturnCode,
		Outcome:      diag.OutcomeOK,
		Connected:    tr.ReturnCode == 0,
		TimeMillisec: tr.Duration.Milliseconds(),
	}
	if !cr.Connected {
		cr.Outcome = diag.OutcomeInvalid
		cr.Comment, cr.Reason = failureComment(tr.Lines)
		if cr.Comment == CommentRefused {
			cr.Outcome = diag.OutcomeConnectionRefused
		}
	}

	reference := group.Status == StatusAccredited && spec.Status == CertCorrect
	switch spec.Expected {
	case ExpectPass:
		if !cr.Connected && reference {
			cr.Verdict = diag.OddityNotAccepted
			cr.FinalError = true
		}
	default:
		if cr.Connected {
			cr.Verdict = diag.OddityWronglyAccepted
		}
		if cr.Reason == diag.OddityUnknownCA && reference {
			cr.FinalError = true
		}
	}

	metrics.RecordProbe(metrics.KindTLSClient, string(cr.Outcome), tr.Duration)
	if cr.Verdict != "" {
		metrics.RecordOddities(cr.Verdict)
	}
	return cr, nil
}

func (c *Checker) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || c.CertDir == "" {
		return name
	}
	return filepath.Join(c.CertDir, name)
}

// failureComment explains a failed handshake from its transcript.
func failureComment(lines []string) (string, diag.Oddity) {
	switch {
	case contains(lines, SigConnectionRefused):
		return CommentRefused, ""
	case contains(lines, SigAlertExpired):
		return CommentExpired, ""
	case contains(lines, SigAlertRevoked):
		return CommentRevoked, ""
	case contains(lines, SigAlertBadPolicy):
		return CommentBadPolicy, ""
	case contains(lines, SigAlertUnknownCA):
		return CommentUnknownCA, diag.OddityUnknownCA
	}
	return CommentUnspecified, ""
}
