// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package tlscheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/credential"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/posix"
	x509certs "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/certs"
)

const (
	// DefaultDialTimeout bounds the TCP connect of [NativeRunner].
	DefaultDialTimeout = 10 * time.Second

	// alertWait is how long to wait for an alert the server sends after
	// the handshake, as TLS 1.3 servers do when rejecting a client
	// certificate.
	alertWait = 500 * time.Millisecond
)

// alertSignature maps crypto/tls alert descriptions to the text and number
// openssl prints for them.
var alertSignature = map[string]struct {
	text   string
	number int
}{
	"handshake failure":              {"sslv3 alert handshake failure", 40},
	"bad certificate":                {"sslv3 alert bad certificate", 42},
	"unsupported certificate":        {"sslv3 alert unsupported certificate", 43},
	"revoked certificate":            {"sslv3 alert certificate revoked", 44},
	"expired certificate":            {"sslv3 alert certificate expired", 45},
	"unknown certificate":            {"sslv3 alert certificate unknown", 46},
	"unknown certificate authority":  {"tlsv1 alert unknown ca", 48},
	"access denied":                  {"tlsv1 alert access denied", 49},
	"protocol version not supported": {"tlsv1 alert protocol version", 70},
	"certificate required":           {"tlsv13 alert certificate required", 116},
}

// NativeRunner connects with crypto/tls and writes a transcript in the
// shape of "openssl s_client" output.
type NativeRunner struct {
	// CAPath is a directory of PEM roots. Empty means the system pool.
	CAPath string
	// DialTimeout defaults to [DefaultDialTimeout].
	DialTimeout time.Duration
	// MinVersion and MaxVersion bound the offered protocol versions.
	MinVersion uint16
	MaxVersion uint16
}

// Connect implements [Runner].
func (r *NativeRunner) Connect(ctx context.Context, hostPort string, client *Client) (*Transcript, error) {
	roots, err := LoadRoots(r.CAPath)
	if err != nil {
		return nil, err
	}

	// The certificate is offered whatever CAs the server asks for, as
	// s_client does; crypto/tls would otherwise withhold it.
	var getClientCert func(*tls.CertificateRequestInfo) (*tls.Certificate, error)
	if client != nil {
		cert, err := loadClient(client)
		if err != nil {
			return nil, err
		}
		getClientCert = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &cert, nil
		}
	}

	timeout := r.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	start := time.Now()
	t := &transcript{}
	t.run(ctx, hostPort, &net.Dialer{Timeout: timeout}, roots, &tls.Config{
		GetClientCertificate: getClientCert,
		MinVersion:           r.MinVersion,
		MaxVersion:           r.MaxVersion,
		ServerName:           serverName(hostPort),
		// verified below against roots, like s_client which reports
		// verification errors without aborting
		InsecureSkipVerify: true, //nolint:gosec
	})

	return &Transcript{Lines: t.lines, ReturnCode: t.code, Duration: time.Since(start)}, nil
}

// transcript accumulates the output of one connection.
type transcript struct {
	lines []string
	code  int
}

func (t *transcript) printf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

func (t *transcript) run(ctx context.Context, hostPort string, dialer *net.Dialer, roots *x509.CertPool, cfg *tls.Config) {
	raw, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		t.code = 1
		if errors.Is(err, syscall.ECONNREFUSED) {
			t.printf("%s", SigConnectionRefused)
			t.printf("connect:errno=%d", int(syscall.ECONNREFUSED))
			return
		}
		t.printf("connect: %v", err)
		return
	}
	t.printf("CONNECTED(%08X)", 3)

	conn := tls.Client(raw, cfg)
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		t.alert(err)
		return
	}

	state := conn.ConnectionState()
	t.verify(state.PeerCertificates, roots)
	t.chain(state.PeerCertificates)

	// a rejected client certificate surfaces on the first read
	conn.SetReadDeadline(time.Now().Add(alertWait))
	var one [1]byte
	if _, err := conn.Read(one[:]); err != nil && isRemoteAlert(err) {
		t.alert(err)
		return
	}

	t.printf("Protocol  : %s", tls.VersionName(state.Version))
	t.printf("Cipher    : %s", tls.CipherSuiteName(state.CipherSuite))
}

// alert records a failed handshake.
func (t *transcript) alert(err error) {
	t.code = 1

	msg := err.Error()
	if i := strings.LastIndex(msg, remoteErrorPrefix); i >= 0 {
		desc := msg[i+len(remoteErrorPrefix):]
		if sig, ok := alertSignature[desc]; ok {
			t.printf("error:SSL routines:ssl3_read_bytes:%s:SSL alert number %d", sig.text, sig.number)
			return
		}
	}
	t.printf("error:SSL routines:handshake:%s", msg)
}

const remoteErrorPrefix = "remote error: tls: "

func isRemoteAlert(err error) bool {
	return strings.Contains(err.Error(), remoteErrorPrefix)
}

// verify prints the verification result the way s_client does: every
// error is followed by "verify return:1" because s_client continues.
func (t *transcript) verify(peer []*x509.Certificate, roots *x509.CertPool) {
	if len(peer) == 0 {
		t.printf("verify error:num=20:unable to get local issuer certificate")
		return
	}

	inter := x509.NewCertPool()
	for _, c := range peer[1:] {
		inter.AddCert(c)
	}

	leaf := peer[0]
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inter,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})

	top := peer[len(peer)-1]
	t.printf("depth=%d %s", len(peer)-1, slashName(top.Subject.Names))
	if err != nil {
		t.printf("%s", verifyError(err, peer))
	}
	t.printf("%s", SigVerifyOK)
	if len(peer) > 1 {
		t.printf("depth=0 %s", slashName(leaf.Subject.Names))
		t.printf("%s", SigVerifyOK)
	}
}

func verifyError(err error, peer []*x509.Certificate) string {
	var unknown x509.UnknownAuthorityError
	if errors.As(err, &unknown) {
		top := peer[len(peer)-1]
		if len(peer) > 1 && top.CheckSignatureFrom(top) == nil {
			return SigSelfSignedInChain
		}
		if len(peer) == 1 && peer[0].CheckSignatureFrom(peer[0]) == nil {
			return "verify error:num=18:self signed certificate"
		}
		return SigUnknownIssuer
	}

	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) && invalid.Reason == x509.Expired {
		return "verify error:num=10:certificate has expired"
	}
	return fmt.Sprintf("verify error:num=1:%v", err)
}

// chain prints the presented chain followed by the server certificate.
func (t *transcript) chain(peer []*x509.Certificate) {
	t.printf("---")
	t.printf("Certificate chain")
	for i, c := range peer {
		t.printf(" %d s:%s", i, slashName(c.Subject.Names))
		t.printf("   i:%s", slashName(c.Issuer.Names))
	}
	t.printf("---")
	if len(peer) == 0 {
		return
	}

	t.printf("Server certificate")
	t.lines = append(t.lines, posix.Lines(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: peer[0].Raw}))...)
	t.printf("subject=%s", slashName(peer[0].Subject.Names))
	t.printf("issuer=%s", slashName(peer[0].Issuer.Names))
	t.printf("---")
}

// LoadRoots reads every PEM certificate found in the files of dir. An
// empty dir yields the system pool.
func LoadRoots(dir string) (*x509.CertPool, error) {
	if dir == "" {
		return x509.SystemCertPool()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tlscheck: read CA path: %w", err)
	}

	pool := x509.NewCertPool()
	decoder := x509certs.New()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		// hash links point at files already read
		certs, err := decoder.DecodeBundle(data)
		if err != nil {
			continue
		}
		for _, c := range certs {
			pool.AddCert(c)
		}
	}
	return pool, nil
}

func loadClient(client *Client) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(client.CertFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlscheck: read client certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(client.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlscheck: read client key: %w", err)
	}
	cert, err := credential.LoadPEM(certPEM, keyPEM, client.Password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlscheck: %s: %w", client.CertFile, err)
	}
	return cert, nil
}

// serverName returns the SNI value for hostPort, empty for IP literals.
func serverName(hostPort string) string {
	host, _, err := net.SplitHostPort(hostPort)
	if err != nil {
		host = hostPort
	}
	host = strings.Trim(host, "[]")
	if net.ParseIP(host) != nil {
		return ""
	}
	return host
}
