// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/testpki"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
)

var (
	rejectTrace = []string{
		"RADIUS message: code=1 (Access-Request) identifier=0 length=120",
		"RADIUS message: code=3 (Access-Reject) identifier=0 length=20",
		"FAILURE",
	}
	nakTrace = []string{
		"RADIUS message: code=1 (Access-Request) identifier=0 length=120",
		"RADIUS message: code=11 (Access-Challenge) identifier=0 length=40",
		"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=52 -> NAK",
		"RADIUS message: code=1 (Access-Request) identifier=1 length=120",
		"RADIUS message: code=3 (Access-Reject) identifier=1 length=20",
		"FAILURE",
	}
	acceptTrace = []string{
		"RADIUS message: code=1 (Access-Request) identifier=0 length=120",
		"RADIUS message: code=11 (Access-Challenge) identifier=0 length=40",
		"CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=21",
		"RADIUS message: code=1 (Access-Request) identifier=1 length=400",
		"RADIUS message: code=2 (Access-Accept) identifier=1 length=180",
		"SUCCESS",
	}
)

// fakeRunner replays one capture and records the attempts it saw.
type fakeRunner struct {
	lines []string
	chain []byte

	mu       sync.Mutex
	attempts []probe.Attempt
}

func (f *fakeRunner) Run(_ context.Context, req *probe.Request) (*probe.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, req.Attempt)
	return &probe.Capture{Lines: f.lines, Chain: f.chain}, nil
}

func (f *fakeRunner) calls() []probe.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]probe.Attempt(nil), f.attempts...)
}

// tlsOnlyRunner refuses everything but EAP-TLS like the native runner.
type tlsOnlyRunner struct{ fakeRunner }

func (r *tlsOnlyRunner) Supports(m eap.Method) bool { return m.Name == eap.TLS.Name }

type fixture struct {
	scratch string
	opts    session.Options
}

func newFixture(t *testing.T, runner probe.HandshakeRunner) *fixture {
	t.Helper()

	scratch := t.TempDir()
	return &fixture{
		scratch: scratch,
		opts: session.Options{
			Realm: "example.org",
			Targets: []probe.Target{
				{Index: 0, Address: "192.0.2.10", Secret: "s", Timeout: time.Second},
				{Index: 1, Address: "192.0.2.11", Secret: "s", Timeout: time.Second},
				{Index: 2, Address: "192.0.2.12", Secret: "s", Timeout: time.Second},
			},
			Driver:     probe.NewDriver(runner, "eduroam CAT", nil),
			Analyzer:   x509chain.NewAnalyzer(x509chain.NewInspector(nil, nil), &x509chain.NativeValidator{}),
			ScratchDir: scratch,
		},
	}
}

func pwdLogin(index int) session.Login {
	return session.Login{Index: index, Method: eap.TTLSPAP, Inner: "alice@example.org", Password: "pw"}
}

func TestUDPLogin(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Unknown Target",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				s := session.New(newFixture(t, runner).opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(9))
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeNotConfigured, res.Outcome)
				assert.Empty(t, runner.calls())
			},
		},
		{
			name: "Incomplete Data",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				s := session.New(newFixture(t, runner).opts)

				res, err := s.UDPLogin(context.Background(), session.Login{Index: 0, Method: eap.TTLSPAP, Inner: "alice"})
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeIncompleteData, res.Outcome)
				assert.Empty(t, runner.calls())
			},
		},
		{
			name: "Client Certificate Required",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				s := session.New(newFixture(t, runner).opts)

				res, err := s.UDPLogin(context.Background(), session.Login{Index: 0, Method: eap.TLS, Inner: "alice@example.org"})
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeNotConfigured, res.Outcome)
				assert.Empty(t, runner.calls())
			},
		},
		{
			name: "Method Not Supported By Runner",
			testFunc: func(t *testing.T) {
				runner := &tlsOnlyRunner{fakeRunner{lines: rejectTrace}}
				s := session.New(newFixture(t, runner).opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeNotConfigured, res.Outcome)
				assert.Equal(t, eap.TTLSPAP.Name, res.Method)
			},
		},
		{
			name: "Immediate Reject",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				f := newFixture(t, runner)
				s := session.New(f.opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(1))
				require.NoError(t, err)

				assert.Equal(t, diag.OutcomeImmediateReject, res.Outcome)
				assert.Equal(t, []diag.PacketCode{1, 3}, res.PacketFlow)
				assert.True(t, res.PacketFlowSane)
				assert.NotEmpty(t, res.RunID)
				assert.Empty(t, res.Certificates)
				assert.Same(t, res, s.Results()[1])

				calls := runner.calls()
				require.Len(t, calls, 1)
				assert.Equal(t, "alice@example.org", calls[0].Outer)
				assert.Empty(t, calls[0].OperatorName)

				entries, err := os.ReadDir(f.scratch)
				require.NoError(t, err)
				assert.Empty(t, entries, "scratch directory must be removed")
			},
		},
		{
			name: "No Common EAP Method",
			testFunc: func(t *testing.T) {
				s := session.New(newFixture(t, &fakeRunner{lines: nakTrace}).opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				require.NoError(t, err)

				assert.Equal(t, diag.OutcomeConversationReject, res.Outcome)
				assert.Equal(t, []diag.Oddity{diag.OddityNoCommonEAPMethod}, res.Oddities.List())
				assert.Empty(t, res.Certificates)
			},
		},
		{
			name: "Accepted With Trusted Chain",
			testFunc: func(t *testing.T) {
				root := testpki.Root(t, "Session Root")
				server := root.Server(t, "radius.example.org")

				f := newFixture(t, &fakeRunner{lines: acceptTrace, chain: server.PEM})
				f.opts.Profile = &diag.Profile{
					Realm:       "example.org",
					CAFiles:     [][]byte{root.PEM},
					ServerNames: []string{"radius.example.org"},
				}
				s := session.New(f.opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				require.NoError(t, err)

				assert.Equal(t, diag.OutcomeOK, res.Outcome)
				assert.Equal(t, diag.TrustOK, res.TrustTier)
				assert.Equal(t, diag.HostnameTotal, res.HostnameMatch)
				assert.Equal(t, []string{"radius.example.org"}, res.ServerNames)
				require.Len(t, res.Certificates, 1)
				assert.False(t, res.Oddities.Has(diag.OddityTrustRootNotReached))
				assert.True(t, res.Oddities.Has(diag.OddityNoCDP))

				entries, err := os.ReadDir(f.scratch)
				require.NoError(t, err)
				assert.Empty(t, entries)
			},
		},
		{
			name: "Untrusted Chain",
			testFunc: func(t *testing.T) {
				root := testpki.Root(t, "Session Root")
				other := testpki.Root(t, "Other Root")
				server := root.Server(t, "radius.example.org")

				f := newFixture(t, &fakeRunner{lines: acceptTrace, chain: server.PEM})
				f.opts.Profile = &diag.Profile{Realm: "example.org", CAFiles: [][]byte{other.PEM}}
				s := session.New(f.opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				require.NoError(t, err)

				assert.Equal(t, diag.TrustRootNotReached, res.TrustTier)
				assert.True(t, res.Oddities.Has(diag.OddityTrustRootNotReached))
			},
		},
		{
			name: "PWD Skips Certificate Analysis",
			testFunc: func(t *testing.T) {
				root := testpki.Root(t, "Session Root")
				f := newFixture(t, &fakeRunner{lines: acceptTrace, chain: root.Server(t, "radius.example.org").PEM})
				s := session.New(f.opts)

				login := pwdLogin(0)
				login.Method = eap.PWD
				res, err := s.UDPLogin(context.Background(), login)
				require.NoError(t, err)

				assert.Equal(t, diag.OutcomeOK, res.Outcome)
				assert.Empty(t, res.Certificates)
				assert.Equal(t, diag.TrustNotChecked, res.TrustTier)
			},
		},
		{
			name: "Missing Chain",
			testFunc: func(t *testing.T) {
				s := session.New(newFixture(t, &fakeRunner{lines: acceptTrace}).opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				require.NoError(t, err)
				assert.True(t, res.Oddities.Has(diag.OddityNoServerCert))
			},
		},
		{
			name: "No Output Is A Tooling Fault",
			testFunc: func(t *testing.T) {
				s := session.New(newFixture(t, &fakeRunner{}).opts)

				res, err := s.UDPLogin(context.Background(), pwdLogin(0))
				assert.ErrorIs(t, err, probe.ErrNoOutput)
				assert.Nil(t, res)

				errs := s.Errors()
				require.Len(t, errs, 1)
				assert.ErrorIs(t, errs[0], probe.ErrNoOutput)
				assert.Empty(t, s.Results())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestReachability(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Needs Client Certificate",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				s := session.New(newFixture(t, runner).opts)

				res, err := s.Reachability(context.Background(), 0, true, true)
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeNotConfigured, res.Outcome)
				assert.Empty(t, runner.calls())
			},
		},
		{
			name: "Attempt",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				f := newFixture(t, runner)
				f.opts.Reachability = session.Credential{ClientCert: []byte("p12"), ClientCertPassword: "whatever"}
				s := session.New(f.opts)

				res, err := s.Reachability(context.Background(), 2, true, true)
				require.NoError(t, err)
				assert.Equal(t, diag.OutcomeImmediateReject, res.Outcome)
				assert.Equal(t, eap.Any.Name, res.Method)

				calls := runner.calls()
				require.Len(t, calls, 1)
				a := calls[0]
				assert.Equal(t, "cat-connectivity-test@example.org", a.Inner)
				assert.Equal(t, "cat-connectivity-test@example.org", a.Outer)
				assert.Equal(t, session.DefaultReachabilityPassword, a.Password)
				assert.Equal(t, probe.DefaultOperatorName, a.OperatorName)
				assert.True(t, a.Fragment)
				assert.Equal(t, []byte("p12"), a.ClientCert)
			},
		},
		{
			name: "All Targets",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: rejectTrace}
				f := newFixture(t, runner)
				f.opts.Reachability = session.Credential{ClientCert: []byte("p12")}
				f.opts.Concurrency = 2
				s := session.New(f.opts)

				results, err := s.ReachabilityAll(context.Background(), false, false)
				require.NoError(t, err)
				require.Len(t, results, 3)
				for i, res := range results {
					require.NotNil(t, res)
					assert.Equal(t, i, res.ProbeIndex)
				}
				assert.Len(t, runner.calls(), 3)
				assert.Len(t, s.Results(), 3)
			},
		},
		{
			name: "All Targets Stop On Fault",
			testFunc: func(t *testing.T) {
				f := newFixture(t, &fakeRunner{})
				f.opts.Reachability = session.Credential{ClientCert: []byte("p12")}
				s := session.New(f.opts)

				_, err := s.ReachabilityAll(context.Background(), true, true)
				assert.ErrorIs(t, err, probe.ErrNoOutput)
				assert.NotEmpty(t, s.Errors())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestAnalyzeChain(t *testing.T) {
	root := testpki.Root(t, "Offline Root")
	inter := root.Intermediate(t, "Offline Intermediate")
	server := inter.Server(t, "radius.example.org")

	f := newFixture(t, &fakeRunner{})
	f.opts.Profile = &diag.Profile{CAFiles: [][]byte{root.PEM}, ServerNames: []string{"other.example.org"}}
	s := session.New(f.opts)

	as, err := s.AnalyzeChain(context.Background(), testpki.Bundle(server, inter))
	require.NoError(t, err)
	assert.Equal(t, diag.TrustOK, as.TrustTier())
	assert.Equal(t, diag.HostnameUnhappy, as.Hostname)
	assert.True(t, as.Oddities.Has(diag.OddityServerNameMismatch))

	f.opts.Analyzer = nil
	_, err = session.New(f.opts).AnalyzeChain(context.Background(), server.PEM)
	assert.ErrorIs(t, err, session.ErrNoAnalyzer)
}

// staticTLS answers every TLS connection with the same transcript.
type staticTLS struct{ tr *tlscheck.Transcript }

func (r staticTLS) Connect(context.Context, string, *tlscheck.Client) (*tlscheck.Transcript, error) {
	return r.tr, nil
}

func TestTLSChecks(t *testing.T) {
	f := newFixture(t, &fakeRunner{})
	checker := tlscheck.NewChecker(staticTLS{&tlscheck.Transcript{
		Lines:      []string{tlscheck.SigConnectionRefused},
		ReturnCode: 1,
	}}, nil)
	checker.ClientCertSets = []tlscheck.ClientCertGroup{{
		Name:   "eduPKI",
		Status: tlscheck.StatusAccredited,
		Certs:  []tlscheck.ClientCertSpec{{Status: tlscheck.CertCorrect, Expected: tlscheck.ExpectPass, Public: "c.pem"}},
	}}
	f.opts.TLS = checker
	s := session.New(f.opts)

	ca, err := s.CAPathCheck(context.Background(), "192.0.2.20:2083")
	require.NoError(t, err)
	assert.Equal(t, diag.OutcomeConnectionRefused, ca.Status)

	cc, err := s.ClientCertCheck(context.Background(), "192.0.2.20:2083")
	require.NoError(t, err)
	assert.Equal(t, diag.OddityNotAccepted, cc.Groups[0].Certificates[0].Verdict)

	assert.Same(t, ca, s.CAPathResults()["192.0.2.20:2083"])
	assert.Same(t, cc, s.ClientCertResults()["192.0.2.20:2083"])
}
