// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/identity"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/metrics"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/packetflow"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

const (
	// ReachabilityLocalPart is the inner local part of reachability probes.
	ReachabilityLocalPart = "cat-connectivity-test"

	// DefaultReachabilityPassword is sent by reachability probes.
	DefaultReachabilityPassword = "eaplab"

	// DefaultConcurrency bounds [Session.ReachabilityAll].
	DefaultConcurrency = 4
)

// ErrNoAnalyzer indicates that chain analysis was requested from a session
// built without an analyzer.
var ErrNoAnalyzer = errors.New("session: no certificate analyzer configured")

// Credential is a client certificate with its passwords.
type Credential struct {
	// ClientCert is a PKCS#12 container or PEM certificate and key.
	ClientCert         []byte
	ClientCertPassword string
	Password           string
}

// Options wires a [Session].
type Options struct {
	// Realm is the realm under test.
	Realm string
	// Profile enables trust and hostname checks. It may be nil.
	Profile *diag.Profile
	Targets []probe.Target

	Driver   *probe.Driver
	Analyzer *x509chain.Analyzer
	TLS      *tlscheck.Checker

	// Reachability is the throwaway credential of reachability probes.
	Reachability Credential
	// OperatorName defaults to [probe.DefaultOperatorName].
	OperatorName string

	ScratchDir  string
	KeepScratch bool
	// Concurrency defaults to [DefaultConcurrency].
	Concurrency int

	Logger logger.Logger
}

// Login describes one EAP login probe.
type Login struct {
	Index  int
	Method eap.Method
	Inner  string
	// Outer is a full outer identity or a realm fragment. Empty derives it.
	Outer    string
	Password string

	ClientCert         []byte
	ClientCertPassword string

	// OperatorName sends the Operator-Name attribute.
	OperatorName bool
	// Fragment forces IP fragmentation of the first request.
	Fragment bool
}

// Session holds the results of one diagnostics run.
//
// Thread Safety: all methods are safe for concurrent use. Probes share no
// mutable state besides the result maps.
type Session struct {
	opts Options

	mu           sync.Mutex
	results      map[int]*diag.Result
	caPath       map[string]*tlscheck.CAPathResult
	clientChecks map[string]*tlscheck.ClientCertResult
	errs         []error
}

// New returns an empty Session.
func New(opts Options) *Session {
	if opts.OperatorName == "" {
		opts.OperatorName = probe.DefaultOperatorName
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Reachability.Password == "" {
		opts.Reachability.Password = DefaultReachabilityPassword
	}
	return &Session{
		opts:         opts,
		results:      make(map[int]*diag.Result),
		caPath:       make(map[string]*tlscheck.CAPathResult),
		clientChecks: make(map[string]*tlscheck.ClientCertResult),
	}
}

func (s *Session) debugf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Debugf(format, args...)
	}
}

// fail records a tooling fault and returns it.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	return err
}

func (s *Session) store(res *diag.Result) *diag.Result {
	s.mu.Lock()
	s.results[res.ProbeIndex] = res
	s.mu.Unlock()
	return res
}

func (s *Session) target(index int) (probe.Target, bool) {
	for _, t := range s.opts.Targets {
		if t.Index == index {
			return t, true
		}
	}
	return probe.Target{}, false
}

// Reachability checks that the target at index answers EAP at all, with
// made-up credentials and the throwaway client certificate. It returns
// NOT_CONFIGURED when that certificate is not configured.
func (s *Session) Reachability(ctx context.Context, index int, operatorName, fragment bool) (*diag.Result, error) {
	return s.login(ctx, metrics.KindReachability, Login{
		Index:              index,
		Method:             eap.Any,
		Inner:              ReachabilityLocalPart + "@" + s.opts.Realm,
		Password:           s.opts.Reachability.Password,
		ClientCert:         s.opts.Reachability.ClientCert,
		ClientCertPassword: s.opts.Reachability.ClientCertPassword,
		OperatorName:       operatorName,
		Fragment:           fragment,
	})
}

// ReachabilityAll runs [Session.Reachability] against every target,
// at most Concurrency at a time. Results are in target order. The first
// tooling fault cancels the remaining probes.
func (s *Session) ReachabilityAll(ctx context.Context, operatorName, fragment bool) ([]*diag.Result, error) {
	results := make([]*diag.Result, len(s.opts.Targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, t := range s.opts.Targets {
		g.Go(func() error {
			res, err := s.Reachability(ctx, t.Index, operatorName, fragment)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// UDPLogin runs one EAP login probe and analyses its outcome.
func (s *Session) UDPLogin(ctx context.Context, l Login) (*diag.Result, error) {
	return s.login(ctx, metrics.KindLogin, l)
}

func (s *Session) login(ctx context.Context, kind string, l Login) (*diag.Result, error) {
	start := time.Now()
	res, err := s.runLogin(ctx, l)
	if err != nil {
		return nil, s.fail(err)
	}

	metrics.RecordProbe(kind, string(res.Outcome), time.Since(start))
	metrics.RecordOddities(res.Oddities.KnownList()...)
	return s.store(res), nil
}

func (s *Session) runLogin(ctx context.Context, l Login) (*diag.Result, error) {
	target, ok := s.target(l.Index)
	if !ok {
		s.debugf("probe %d: no such target", l.Index)
		return diag.NewResult("", l.Index, diag.OutcomeNotConfigured), nil
	}

	ids, err := identity.Resolve(identity.Input{
		Profile:     s.opts.Profile,
		TestedRealm: s.opts.Realm,
		Inner:       l.Inner,
		Outer:       l.Outer,
	})
	if errors.Is(err, identity.ErrIncompleteData) {
		return diag.NewResult("", l.Index, diag.OutcomeIncompleteData), nil
	}
	if err != nil {
		return nil, err
	}

	if !s.runnable(l) {
		res := diag.NewResult("", l.Index, diag.OutcomeNotConfigured)
		res.Method = l.Method.Name
		return res, nil
	}

	ws, err := probe.NewWorkspace(s.opts.ScratchDir, s.opts.KeepScratch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			s.debugf("probe %d: remove %s: %v", l.Index, ws.Dir, err)
		}
	}()

	attempt := probe.Attempt{
		Method:             l.Method,
		Inner:              ids.Inner,
		Outer:              ids.Outer,
		Password:           l.Password,
		ClientCert:         l.ClientCert,
		ClientCertPassword: l.ClientCertPassword,
		Fragment:           l.Fragment,
	}
	if l.OperatorName {
		attempt.OperatorName = s.opts.OperatorName
	}

	capture, err := s.opts.Driver.Run(ctx, ws, target, attempt)
	if errors.Is(err, probe.ErrUnsupportedMethod) {
		res := diag.NewResult(ws.RunID, l.Index, diag.OutcomeNotConfigured)
		res.Method = l.Method.Name
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	a := packetflow.Analyze(capture.Lines)

	res := diag.NewResult(ws.RunID, l.Index, a.Outcome)
	res.Method = l.Method.Name
	res.TimeMillisec = capture.Duration.Milliseconds()
	res.PacketFlow = a.Flow
	res.PacketCount = a.Count
	res.PacketFlowSane = a.Sane

	if a.Outcome == diag.OutcomeConversationReject && !a.MethodAcknowledged {
		res.Oddities.Add(diag.OddityNoCommonEAPMethod)
	}

	if !l.Method.PresentsServerChain() || !a.NeedsCertificateAnalysis() || s.opts.Analyzer == nil {
		return res, nil
	}

	as, err := s.opts.Analyzer.Analyze(ctx, capture.Chain, s.opts.Profile, ws.Dir)
	if err != nil {
		return nil, fmt.Errorf("probe %d: analyze chain: %w", l.Index, err)
	}
	applyAssessment(res, as)

	return res, nil
}

// runnable reports whether l can be attempted at all.
func (s *Session) runnable(l Login) bool {
	if !l.Method.Configured() {
		return false
	}
	if l.Method.UsesClientCert() && len(l.ClientCert) == 0 {
		return false
	}
	if r, ok := s.opts.Driver.Runner.(interface{ Supports(eap.Method) bool }); ok && !r.Supports(l.Method) {
		return false
	}
	return true
}

func applyAssessment(res *diag.Result, as *x509chain.Assessment) {
	res.Certificates = as.Chain.Details()
	res.ServerNames = as.ServerNames
	res.HostnameMatch = as.Hostname
	res.TrustTier = as.TrustTier()
	res.Oddities.Merge(as.Oddities)
}

// AnalyzeChain runs the certificate analysis over a PEM bundle without a
// probe. Trust and hostname checks run when the session has a profile.
func (s *Session) AnalyzeChain(ctx context.Context, bundle []byte) (*x509chain.Assessment, error) {
	if s.opts.Analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	ws, err := probe.NewWorkspace(s.opts.ScratchDir, s.opts.KeepScratch)
	if err != nil {
		return nil, s.fail(err)
	}
	defer ws.Close()

	start := time.Now()
	as, err := s.opts.Analyzer.Analyze(ctx, bundle, s.opts.Profile, ws.Dir)
	if err != nil {
		return nil, s.fail(fmt.Errorf("analyze chain: %w", err))
	}

	metrics.RecordProbe(metrics.KindAnalyze, as.TrustTier().String(), time.Since(start))
	metrics.RecordOddities(as.Oddities.KnownList()...)
	return as, nil
}

// CAPathCheck runs [tlscheck.Checker.CAPath] and keeps the result.
func (s *Session) CAPathCheck(ctx context.Context, host string) (*tlscheck.CAPathResult, error) {
	res, err := s.opts.TLS.CAPath(ctx, host)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.caPath[host] = res
	s.mu.Unlock()
	return res, nil
}

// ClientCertCheck runs [tlscheck.Checker.ClientCerts] and keeps the
// result.
func (s *Session) ClientCertCheck(ctx context.Context, host string) (*tlscheck.ClientCertResult, error) {
	res, err := s.opts.TLS.ClientCerts(ctx, host)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.clientChecks[host] = res
	s.mu.Unlock()
	return res, nil
}

// Results returns the latest probe result per target index.
func (s *Session) Results() map[int]*diag.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.results)
}

// CAPathResults returns the CA path check results per host.
func (s *Session) CAPathResults() map[string]*tlscheck.CAPathResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.caPath)
}

// ClientCertResults returns the client certificate check results per host.
func (s *Session) ClientCertResults() map[string]*tlscheck.ClientCertResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.clientChecks)
}

// Errors returns the tooling faults seen so far.
func (s *Session) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}
