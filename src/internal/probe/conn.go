// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"context"
	"io"
	"net"
	"slices"
	"sync"
	"time"
)

// recordConn is an in-memory net.Conn that carries TLS records between
// crypto/tls and the EAP-TLS framing. Records written by the TLS stack are
// queued for the caller to frame; records received from the peer are
// injected for the TLS stack to read.
type recordConn struct {
	outbound chan []byte
	inbound  chan []byte
	closed   chan struct{}

	mu    sync.Mutex
	inBuf []byte
	once  sync.Once
}

func newRecordConn(buffer int) *recordConn {
	if buffer <= 0 {
		buffer = 4
	}
	return &recordConn{
		outbound: make(chan []byte, buffer),
		inbound:  make(chan []byte, buffer),
		closed:   make(chan struct{}),
	}
}

// Write queues records produced by the TLS stack.
func (c *recordConn) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-c.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	select {
	case c.outbound <- slices.Clone(p):
		return len(p), nil
	case <-c.closed:
		return 0, io.ErrClosedPipe
	}
}

// Read hands injected peer records to the TLS stack.
func (c *recordConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		c.mu.Lock()
		if len(c.inBuf) > 0 {
			n := copy(p, c.inBuf)
			c.inBuf = c.inBuf[n:]
			c.mu.Unlock()
			return n, nil
		}
		c.mu.Unlock()

		select {
		case data := <-c.inbound:
			c.mu.Lock()
			c.inBuf = append(c.inBuf, data...)
			c.mu.Unlock()
		case <-c.closed:
			return 0, io.EOF
		}
	}
}

// Close makes pending and future reads and writes fail.
func (c *recordConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Inject queues peer records for the TLS stack.
func (c *recordConn) Inject(payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case c.inbound <- slices.Clone(payload):
	case <-c.closed:
	}
}

// Drain returns every queued outbound record without blocking.
func (c *recordConn) Drain() [][]byte {
	var bufs [][]byte
	for {
		select {
		case data := <-c.outbound:
			bufs = append(bufs, data)
		default:
			return bufs
		}
	}
}

// Await waits until the TLS stack writes, done fires, or ctx ends, and
// returns everything queued by then.
func (c *recordConn) Await(ctx context.Context, done <-chan struct{}) [][]byte {
	if bufs := c.Drain(); len(bufs) > 0 {
		return bufs
	}

	select {
	case data := <-c.outbound:
		return append([][]byte{data}, c.Drain()...)
	case <-done:
		return c.Drain()
	case <-ctx.Done():
	case <-c.closed:
	}
	return nil
}

func (c *recordConn) LocalAddr() net.Addr  { return eapAddr{} }
func (c *recordConn) RemoteAddr() net.Addr { return eapAddr{} }

func (c *recordConn) SetDeadline(time.Time) error      { return nil }
func (c *recordConn) SetReadDeadline(time.Time) error  { return nil }
func (c *recordConn) SetWriteDeadline(time.Time) error { return nil }

type eapAddr struct{}

func (eapAddr) Network() string { return "eap-tls" }
func (eapAddr) String() string  { return "eap-tls" }
