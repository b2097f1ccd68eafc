// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/credential"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/supplicant"
)

const (
	defaultRADIUSPort   = "1812"
	defaultFragmentSize = 1010
	maxFragmentSize     = 4096
	maxRoundTrips       = 100
	// outboundWait bounds how long the session waits for the TLS stack
	// to produce its next flight.
	outboundWait = 2 * time.Second
)

// Exchanger sends one RADIUS packet and waits for the answer.
// *radius.Client implements it.
type Exchanger interface {
	Exchange(ctx context.Context, packet *radius.Packet, addr string) (*radius.Packet, error)
}

// NativeRunner performs EAP-TLS over RADIUS/UDP in process. ANY proposes
// EAP-TLS and answers other proposals with a NAK; every other method is
// rejected with [ErrUnsupportedMethod].
//
// The server chain is captured without validation; judging it is the job
// of the trust verifier.
type NativeRunner struct {
	Exchanger Exchanger
	// FragmentSize bounds the TLS payload per EAP message.
	FragmentSize int
}

// NewNativeRunner returns a runner using a UDP RADIUS client.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{
		Exchanger:    &radius.Client{Retry: time.Second},
		FragmentSize: defaultFragmentSize,
	}
}

// Supports reports whether m can be run natively.
func (r *NativeRunner) Supports(m eap.Method) bool {
	return m.Name == eap.TLS.Name || m.Name == eap.Any.Name
}

func (r *NativeRunner) fragmentSize() int {
	switch {
	case r.FragmentSize <= 0:
		return defaultFragmentSize
	case r.FragmentSize > maxFragmentSize:
		return maxFragmentSize
	}
	return r.FragmentSize
}

// Run implements [HandshakeRunner]. The client credential comes from the
// attempt or, when missing there, from the request directory.
func (r *NativeRunner) Run(ctx context.Context, req *Request) (*Capture, error) {
	a := req.Attempt
	if !r.Supports(a.Method) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, a.Method)
	}

	data := a.ClientCert
	if len(data) == 0 && req.Dir != "" {
		var err error
		if data, err = ReadOptional(req.Dir, supplicant.ClientCertFile); err != nil {
			return nil, err
		}
	}
	cert, err := credential.Load(data, a.ClientCertPassword)
	if err != nil {
		return nil, fmt.Errorf("probe: load client credential: %w", err)
	}

	host, port := req.Target.HostPort()
	if port == "" {
		port = defaultRADIUSPort
	}

	s := &nativeSession{
		ex:           r.Exchanger,
		addr:         net.JoinHostPort(host, port),
		secret:       []byte(req.Target.Secret),
		attempt:      a,
		fragmentSize: r.fragmentSize(),
		transport:    newRecordConn(8),
		done:         make(chan struct{}),
	}
	s.tlsConn = tls.Client(s.transport, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MaxVersion:   tls.VersionTLS12,
		// captured for offline analysis
		InsecureSkipVerify:    true, //nolint:gosec
		VerifyPeerCertificate: s.capturePeer,
	})

	s.run(ctx)

	return &Capture{Lines: s.trace, Chain: s.chainPEM()}, nil
}

// nativeSession is one EAP-TLS conversation.
type nativeSession struct {
	ex           Exchanger
	addr         string
	secret       []byte
	attempt      Attempt
	fragmentSize int
	trace        []string

	transport *recordConn
	tlsConn   *tls.Conn
	started   bool
	done      chan struct{}
	// handshakeErr is written before done is closed.
	handshakeErr error

	state    []byte
	selected bool
	incoming tlsReassembler
	pending  [][]byte
	current  []byte
	offset   int

	mu    sync.Mutex
	chain [][]byte
}

func (s *nativeSession) tracef(format string, args ...any) {
	s.trace = append(s.trace, fmt.Sprintf(format, args...))
}

func (s *nativeSession) capturePeer(raw [][]byte, _ [][]*x509.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain = raw
	return nil
}

func (s *nativeSession) chainPEM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, der := range s.chain {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	return out
}

func (s *nativeSession) handshakeFinished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *nativeSession) run(ctx context.Context) {
	defer func() {
		s.transport.Close()
		if s.started {
			<-s.done
		}
	}()

	next := &eapPacket{Code: eapCodeResponse, Type: eap.TypeIdentity, Data: []byte(s.attempt.Outer)}

	for range maxRoundTrips {
		packet, err := s.request(next)
		if err != nil {
			s.tracef("EAP: failed to build Access-Request: %v", err)
			s.tracef("FAILURE")
			return
		}

		s.tracef("Sending RADIUS message to authentication server")
		s.tracePacket(packet)

		resp, err := s.ex.Exchange(ctx, packet, s.addr)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.tracef("EAPOL test timed out")
			} else {
				s.tracef("RADIUS exchange failed: %v", err)
			}
			s.tracef("FAILURE")
			return
		}

		s.tracef("Received RADIUS message")
		s.tracePacket(resp)

		if next = s.handle(ctx, resp); next == nil {
			return
		}
	}

	s.tracef("EAP: maximum number of round trips exceeded")
	s.tracef("FAILURE")
}

func (s *nativeSession) tracePacket(p *radius.Packet) {
	s.tracef("RADIUS message: code=%d (%s) identifier=%d length=%d", int(p.Code), p.Code, p.Identifier, wireLength(p))
}

func (s *nativeSession) request(msg *eapPacket) (*radius.Packet, error) {
	p := radius.New(radius.CodeAccessRequest, s.secret)

	if err := rfc2865.UserName_SetString(p, s.attempt.Outer); err != nil {
		return nil, err
	}
	if len(s.state) > 0 {
		if err := rfc2865.State_Set(p, s.state); err != nil {
			return nil, err
		}
	}
	if s.attempt.OperatorName != "" {
		// value carries its RFC 5580 namespace prefix
		p.Attributes.Add(attrOperatorName, radius.Attribute(s.attempt.OperatorName))
	}
	if s.attempt.Fragment {
		for range FragmentAttributes {
			p.Attributes.Add(attrVendorSpecific, FragmentVSA())
		}
	}
	if err := setEAP(p, msg); err != nil {
		return nil, err
	}
	if err := signRequest(p); err != nil {
		return nil, err
	}
	return p, nil
}

// handle reacts to a server answer and returns the next EAP response, or
// nil when the conversation is over.
func (s *nativeSession) handle(ctx context.Context, resp *radius.Packet) *eapPacket {
	if state, ok := resp.Attributes.Lookup(rfc2865.State_Type); ok {
		s.state = append(s.state[:0], state...)
	} else {
		s.state = nil
	}

	for _, avp := range resp.Attributes {
		if avp.Type == rfc2865.ReplyMessage_Type {
			s.tracef("  Attribute 18 (Reply-Message) length=%d", len(avp.Attribute)+2)
			s.tracef("    Value: '%s'", string(avp.Attribute))
		}
	}

	switch resp.Code {
	case radius.CodeAccessAccept:
		s.tracef("EAP: Received EAP-Success")
		s.tracef("CTRL-EVENT-EAP-SUCCESS EAP authentication completed successfully")
		s.tracef("SUCCESS")
		return nil
	case radius.CodeAccessReject:
		s.tracef("EAP: Received EAP-Failure")
		s.tracef("CTRL-EVENT-EAP-FAILURE EAP authentication failed")
		s.tracef("FAILURE")
		return nil
	case radius.CodeAccessChallenge:
	default:
		s.tracef("RADIUS: unexpected response code %d", int(resp.Code))
		s.tracef("FAILURE")
		return nil
	}

	raw, err := getEAP(resp)
	if err == nil {
		var msg *eapPacket
		if msg, err = parseEAP(raw); err == nil {
			return s.challenge(ctx, msg)
		}
	}
	s.tracef("EAP: invalid EAP-Message in Access-Challenge: %v", err)
	s.tracef("FAILURE")
	return nil
}

func (s *nativeSession) challenge(ctx context.Context, msg *eapPacket) *eapPacket {
	if msg.Code != eapCodeRequest {
		s.tracef("EAP: unexpected EAP code %d in Access-Challenge", msg.Code)
		s.tracef("FAILURE")
		return nil
	}

	switch msg.Type {
	case eap.TypeIdentity:
		return &eapPacket{Code: eapCodeResponse, Identifier: msg.Identifier, Type: eap.TypeIdentity, Data: []byte(s.attempt.Outer)}
	case eapTypeNotification:
		return &eapPacket{Code: eapCodeResponse, Identifier: msg.Identifier, Type: eapTypeNotification}
	case eap.TypeTLS:
		if !s.selected {
			s.selected = true
			s.tracef("CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=%d", eap.TypeTLS)
			s.tracef("CTRL-EVENT-EAP-METHOD EAP vendor 0 method %d (TLS) selected", eap.TypeTLS)
		}
		return s.tlsRequest(ctx, msg)
	default:
		s.tracef("CTRL-EVENT-EAP-PROPOSED-METHOD vendor=0 method=%d -> NAK", msg.Type)
		return &eapPacket{Code: eapCodeResponse, Identifier: msg.Identifier, Type: eap.TypeNAK, Data: []byte{eap.TypeTLS}}
	}
}

func (s *nativeSession) startHandshake() {
	if s.started {
		return
	}
	s.started = true
	go func() {
		s.handshakeErr = s.tlsConn.Handshake()
		close(s.done)
	}()
}

func (s *nativeSession) tlsRequest(ctx context.Context, msg *eapPacket) *eapPacket {
	s.startHandshake()

	if len(msg.Data) > 0 || msg.Flags&(tlsFlagMoreFragments|tlsFlagLengthIncluded) != 0 {
		complete, data, err := s.incoming.add(msg)
		if err != nil {
			s.tracef("EAP-TLS: %v", err)
			return s.ack(msg.Identifier)
		}
		if !complete {
			return s.ack(msg.Identifier)
		}
		s.transport.Inject(data)
	}

	if frag := s.nextFragment(msg.Identifier); frag != nil {
		return frag
	}

	waitCtx, cancel := context.WithTimeout(ctx, outboundWait)
	defer cancel()
	if flight := s.transport.Await(waitCtx, s.done); len(flight) > 0 {
		s.pending = append(s.pending, bytes.Join(flight, nil))
	}

	if s.handshakeFinished() && s.handshakeErr != nil {
		s.tracef("SSL: TLS handshake failed: %v", s.handshakeErr)
	}

	if frag := s.nextFragment(msg.Identifier); frag != nil {
		return frag
	}
	return s.ack(msg.Identifier)
}

func (s *nativeSession) ack(identifier uint8) *eapPacket {
	return &eapPacket{Code: eapCodeResponse, Identifier: identifier, Type: eap.TypeTLS}
}

// nextFragment returns the next piece of queued TLS data, or nil.
func (s *nativeSession) nextFragment(identifier uint8) *eapPacket {
	if len(s.current) == 0 {
		if len(s.pending) == 0 {
			return nil
		}
		s.current, s.pending = s.pending[0], s.pending[1:]
		s.offset = 0
	}

	total := len(s.current)
	chunk := min(total-s.offset, s.fragmentSize)

	msg := &eapPacket{
		Code:       eapCodeResponse,
		Identifier: identifier,
		Type:       eap.TypeTLS,
		Data:       s.current[s.offset : s.offset+chunk],
	}
	if s.offset == 0 {
		msg.Flags |= tlsFlagLengthIncluded
		msg.TLSLength = total
	}
	if s.offset+chunk < total {
		msg.Flags |= tlsFlagMoreFragments
	}

	s.offset += chunk
	if s.offset >= total {
		s.current, s.offset = nil, 0
	}
	return msg
}
