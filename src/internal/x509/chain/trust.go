// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

const (
	observedDir   = "anchors-observed"
	configuredDir = "anchors-configured"
	serverFile    = "incomingserver.pem"
)

// AnchorStore materialises the two per-run anchor sets as directories:
// the observed set holds what the server sent plus the configured roots,
// the configured set additionally holds the configured intermediates.
type AnchorStore struct {
	Observed   string
	Configured string
	ServerFile string

	// CRLCheck is set once a server CRL has been staged.
	CRLCheck bool

	n int
}

// NewAnchorStore creates both anchor directories below scratch.
func NewAnchorStore(scratch string) (*AnchorStore, error) {
	s := &AnchorStore{
		Observed:   filepath.Join(scratch, observedDir),
		Configured: filepath.Join(scratch, configuredDir),
		ServerFile: filepath.Join(scratch, serverFile),
	}
	for _, dir := range []string{s.Observed, s.Configured} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create anchor directory: %w", err)
		}
	}
	return s, nil
}

func (s *AnchorStore) write(name string, data []byte, dirs ...string) error {
	for _, dir := range dirs {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return nil
}

func (s *AnchorStore) next(prefix string) string {
	s.n++
	return fmt.Sprintf("%s%d.pem", prefix, s.n)
}

// AddObserved stages an intermediate sent by the server, and its CRL, into
// both sets.
func (s *AnchorStore) AddObserved(rec *Record) error {
	if err := s.write(s.next("observed-intermediate"), rec.PEM, s.Observed, s.Configured); err != nil {
		return err
	}
	if len(rec.CRL) > 0 {
		return s.write(s.next("observed-crl"), rec.CRL, s.Observed, s.Configured)
	}
	return nil
}

// AddConfiguredRoot stages a configured root into both sets.
func (s *AnchorStore) AddConfiguredRoot(pemData []byte) error {
	return s.write(s.next("configured-root"), pemData, s.Observed, s.Configured)
}

// AddConfiguredIntermediate stages a configured intermediate, and its CRL,
// into the configured set only.
func (s *AnchorStore) AddConfiguredIntermediate(rec *Record) error {
	if err := s.write(s.next("configured-intermediate"), rec.PEM, s.Configured); err != nil {
		return err
	}
	if len(rec.CRL) > 0 {
		return s.write(s.next("configured-crl"), rec.CRL, s.Configured)
	}
	return nil
}

// AddServerCRL stages the server CRL into both sets and enables CRL checks.
func (s *AnchorStore) AddServerCRL(crl []byte) error {
	if err := s.write("server-crl.pem", crl, s.Observed, s.Configured); err != nil {
		return err
	}
	s.CRLCheck = true
	return nil
}

// WriteServer stores the certificate to validate.
func (s *AnchorStore) WriteServer(pemData []byte) error {
	if err := os.WriteFile(s.ServerFile, pemData, 0o600); err != nil {
		return fmt.Errorf("stage server certificate: %w", err)
	}
	return nil
}

// TrustReport is the outcome of the two validation passes.
type TrustReport struct {
	Tier diag.TrustTier
	// Finding is the trust oddity for tiers 1 and 2, "" otherwise.
	Finding diag.Oddity
	// Configured holds the findings of the configured intermediates.
	Configured *diag.OdditySet

	ObservedVerdict   []string
	ConfiguredVerdict []string
}

// VerdictOK reports whether validator output signals success.
func VerdictOK(lines []string) bool {
	for _, l := range lines {
		if strings.HasSuffix(strings.TrimSpace(l), ": OK") {
			return true
		}
	}
	return false
}

// ClassifyVerdict maps failed validator output to an oddity. Revocation
// and missing CRLs are named explicitly; anything else yields fallback.
func ClassifyVerdict(lines []string, fallback diag.Oddity) diag.Oddity {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		switch {
		case strings.HasSuffix(l, "certificate revoked"):
			return diag.OddityServerCertRevoked
		case strings.Contains(l, "unable to get certificate CRL"):
			return diag.OddityUnableToGetCRL
		}
	}
	return fallback
}

// Verifier stages anchors and runs path validation of the server
// certificate.
type Verifier struct {
	Inspector *Inspector
	Validator PathValidator
}

// Verify stages the chain and the configured CA files below scratch and
// validates the server certificate twice, with and without the configured
// intermediates.
//
// Configured CA files may be PEM bundles, DER or PKCS7. Non-CA entries are
// ignored and files that do not decode are logged and skipped. Configured
// intermediates are checked with CA rules into [TrustReport.Configured].
// Without a server certificate only the configured files are checked.
func (v *Verifier) Verify(ctx context.Context, scratch string, ch *Chain, caFiles [][]byte) (*TrustReport, error) {
	report := &TrustReport{Configured: &diag.OdditySet{}}

	store, err := NewAnchorStore(scratch)
	if err != nil {
		return nil, err
	}

	for _, rec := range ch.ByRole(RoleIntermediate) {
		if err := store.AddObserved(rec); err != nil {
			return nil, err
		}
	}

	if err := v.stageConfigured(ctx, store, caFiles, report); err != nil {
		return nil, err
	}

	if ch.Server == nil {
		return report, nil
	}

	if err := store.WriteServer(ch.Server.PEM); err != nil {
		return nil, err
	}
	if len(ch.Server.CRL) > 0 {
		if err := store.AddServerCRL(ch.Server.CRL); err != nil {
			return nil, err
		}
	}

	report.ObservedVerdict, err = v.Validator.Validate(ctx, store.Observed, store.ServerFile, store.CRLCheck)
	if err != nil {
		return nil, fmt.Errorf("validate with observed anchors: %w", err)
	}
	report.ConfiguredVerdict, err = v.Validator.Validate(ctx, store.Configured, store.ServerFile, store.CRLCheck)
	if err != nil {
		return nil, fmt.Errorf("validate with configured anchors: %w", err)
	}

	v.Inspector.log().Debugf("verify observed: %s", strings.Join(report.ObservedVerdict, " | "))
	v.Inspector.log().Debugf("verify configured: %s", strings.Join(report.ConfiguredVerdict, " | "))

	switch {
	case len(report.ConfiguredVerdict) == 0:
		// nothing was validated
	case !VerdictOK(report.ConfiguredVerdict):
		report.Tier = diag.TrustRootNotReached
		report.Finding = ClassifyVerdict(report.ConfiguredVerdict, diag.OddityTrustRootNotReached)
	case !VerdictOK(report.ObservedVerdict):
		report.Tier = diag.TrustOutOfBand
		report.Finding = ClassifyVerdict(report.ObservedVerdict, diag.OddityTrustRootOnlyOOB)
	default:
		report.Tier = diag.TrustOK
	}

	return report, nil
}

func (v *Verifier) stageConfigured(ctx context.Context, store *AnchorStore, caFiles [][]byte, report *TrustReport) error {
	in := v.Inspector
	for i, file := range caFiles {
		certs, err := in.decoder().DecodeBundle(file)
		if err != nil {
			in.log().Printf("skipping configured CA file %d: %v", i, err)
			continue
		}

		for _, cert := range certs {
			if !cert.IsCA {
				continue
			}
			pemData := in.decoder().EncodePEM(cert)

			if IsSelfSigned(cert) {
				if err := store.AddConfiguredRoot(pemData); err != nil {
					return err
				}
				continue
			}

			rec := NewRecord(pemData, cert, RoleIntermediate)
			report.Configured.Add(in.CheckCA(ctx, rec, false)...)
			if err := store.AddConfiguredIntermediate(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
