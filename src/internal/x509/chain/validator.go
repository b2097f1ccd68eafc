// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/posix"
	x509certs "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/certs"
)

// PathValidator validates the certificate in serverFile against the
// anchors and CRLs stored in anchorDir. It returns verdict lines in the
// vocabulary of "openssl verify": success ends a line with ": OK", failures
// carry "error N at D depth lookup: reason" lines.
type PathValidator interface {
	Validate(ctx context.Context, anchorDir, serverFile string, crlCheck bool) ([]string, error)
}

// OpenSSLValidator runs "openssl rehash" and "openssl verify".
type OpenSSLValidator struct {
	// Path is the openssl executable.
	Path string
}

// Validate implements [PathValidator]. A non-zero exit of verify is a
// verdict, not an error; only failures to run the tool are returned.
func (v *OpenSSLValidator) Validate(ctx context.Context, anchorDir, serverFile string, crlCheck bool) ([]string, error) {
	// rehash exits non-zero on files it cannot use but still links the rest
	if err := exec.CommandContext(ctx, v.Path, "rehash", anchorDir).Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("openssl rehash: %w", err)
		}
	}

	args := []string{"verify"}
	if crlCheck {
		args = append(args, "-crl_check_all")
	}
	args = append(args, "-CApath", anchorDir, "-purpose", "any", serverFile)

	out, err := exec.CommandContext(ctx, v.Path, args...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("openssl verify: %w", err)
		}
	}
	return posix.Lines(out), nil
}

// NativeValidator validates with crypto/x509. Self-signed certificates in
// the anchor directory become roots, all other certificates become
// intermediates, and with crlCheck every non-root certificate of the built
// path must be covered by a CRL signed by its issuer.
type NativeValidator struct {
	// Now returns the verification time; nil means time.Now.
	Now func() time.Time
}

// openssl verify error numbers used in verdict lines.
const (
	verifyUnableToGetCRL      = 3
	verifyCertNotYetValid     = 9
	verifyCertHasExpired      = 10
	verifyUnableToGetIssuer   = 20
	verifyCertRevoked         = 23
	verifyInvalidPurpose      = 26
	verifyUnspecifiedProblem  = 1
	verifyCRLSignatureFailure = 8
)

type anchorSet struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	crls          []*x509.RevocationList
}

func loadAnchorDir(dir string) (*anchorSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	set := &anchorSet{roots: x509.NewCertPool(), intermediates: x509.NewCertPool()}
	certs := x509certs.New()

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		if x509certs.IsCRLPEM(data) {
			if crl, err := x509certs.DecodeCRL(data); err == nil {
				set.crls = append(set.crls, crl)
			}
			continue
		}

		for _, entry := range certs.SplitPEM(data) {
			cert, err := certs.Decode(entry)
			if err != nil {
				continue
			}
			if IsSelfSigned(cert) {
				set.roots.AddCert(cert)
			} else {
				set.intermediates.AddCert(cert)
			}
		}
	}
	return set, nil
}

func verdictLine(code, depth int, reason string) string {
	return fmt.Sprintf("error %d at %d depth lookup: %s", code, depth, reason)
}

// Validate implements [PathValidator].
func (v *NativeValidator) Validate(ctx context.Context, anchorDir, serverFile string, crlCheck bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set, err := loadAnchorDir(anchorDir)
	if err != nil {
		return nil, fmt.Errorf("load anchors: %w", err)
	}

	data, err := os.ReadFile(serverFile)
	if err != nil {
		return nil, fmt.Errorf("read server certificate: %w", err)
	}
	leaf, err := x509certs.New().Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse server certificate: %w", err)
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	subject := leaf.Subject.String()
	failed := func(code, depth int, reason string) []string {
		return []string{
			subject,
			verdictLine(code, depth, reason),
			fmt.Sprintf("error %s: verification failed", serverFile),
		}
	}

	chains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         set.roots,
		Intermediates: set.intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		code, reason := classifyVerifyError(err, leaf, now)
		return failed(code, 0, reason), nil
	}

	if crlCheck {
		path := chains[0]
		for depth := 0; depth < len(path)-1; depth++ {
			code, reason, ok := checkCRL(path[depth], path[depth+1], set.crls, now)
			if !ok {
				return failed(code, depth, reason), nil
			}
		}
	}

	return []string{fmt.Sprintf("%s: OK", serverFile)}, nil
}

func classifyVerifyError(err error, leaf *x509.Certificate, now time.Time) (int, string) {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		switch invalid.Reason {
		case x509.Expired:
			if now.Before(invalid.Cert.NotBefore) {
				return verifyCertNotYetValid, "certificate is not yet valid"
			}
			return verifyCertHasExpired, "certificate has expired"
		case x509.IncompatibleUsage:
			return verifyInvalidPurpose, "unsupported certificate purpose"
		}
		return verifyUnspecifiedProblem, invalid.Error()
	}

	var unknown x509.UnknownAuthorityError
	if errors.As(err, &unknown) {
		if now.After(leaf.NotAfter) {
			return verifyCertHasExpired, "certificate has expired"
		}
		return verifyUnableToGetIssuer, "unable to get local issuer certificate"
	}

	return verifyUnspecifiedProblem, err.Error()
}

// checkCRL looks for a CRL of issuer that covers cert.
func checkCRL(cert, issuer *x509.Certificate, crls []*x509.RevocationList, now time.Time) (int, string, bool) {
	for _, crl := range crls {
		if !bytes.Equal(crl.RawIssuer, issuer.RawSubject) {
			continue
		}
		if err := crl.CheckSignatureFrom(issuer); err != nil {
			return verifyCRLSignatureFailure, "CRL signature failure", false
		}
		for _, entry := range crl.RevokedCertificateEntries {
			if entry.SerialNumber.Cmp(cert.SerialNumber) == 0 && !entry.RevocationTime.After(now) {
				return verifyCertRevoked, "certificate revoked", false
			}
		}
		return 0, "", true
	}
	return verifyUnableToGetCRL, "unable to get certificate CRL", false
}
