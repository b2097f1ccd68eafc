// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/supplicant"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// fakeRunner records what it was asked to do and replays a canned capture.
type fakeRunner struct {
	lines []string
	err   error

	req      *probe.Request
	deadline time.Time
	config   []byte
	cert     []byte
}

func (f *fakeRunner) Run(ctx context.Context, req *probe.Request) (*probe.Capture, error) {
	f.req = req
	f.deadline, _ = ctx.Deadline()
	f.config, _ = os.ReadFile(filepath.Join(req.Dir, supplicant.ConfigFile))
	f.cert, _ = os.ReadFile(filepath.Join(req.Dir, supplicant.ClientCertFile))
	if f.err != nil {
		return nil, f.err
	}
	return &probe.Capture{Lines: f.lines}, nil
}

func newTestWorkspace(t *testing.T) *probe.Workspace {
	t.Helper()
	ws, err := probe.NewWorkspace(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestDriver(t *testing.T) {
	target := probe.Target{Index: 1, Address: "192.0.2.10", Secret: "testing123", Timeout: 3 * time.Second}
	attempt := probe.Attempt{
		Method:   eap.TTLSPAP,
		Inner:    "alice@example.org",
		Outer:    "anonymous@example.org",
		Password: "pa55word",
	}

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Stages Configuration",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: []string{"RADIUS message: code=1", "RADIUS message: code=2"}}
				d := probe.NewDriver(runner, "eduroam CAT", nil)
				ws := newTestWorkspace(t)

				before := time.Now()
				capture, err := d.Run(context.Background(), ws, target, attempt)
				require.NoError(t, err)

				assert.Equal(t, ws.Dir, runner.req.Dir)
				assert.Equal(t, target, runner.req.Target)
				assert.Contains(t, string(runner.config), `identity="alice@example.org"`)
				assert.Contains(t, string(runner.config), `anonymous_identity="anonymous@example.org"`)
				assert.Empty(t, runner.cert)
				assert.Len(t, capture.Lines, 2)
				assert.Positive(t, capture.Duration)

				// timeout plus grace
				assert.WithinDuration(t, before.Add(target.Timeout+probe.DefaultGrace), runner.deadline, time.Second)
			},
		},
		{
			name: "Stages Client Certificate",
			testFunc: func(t *testing.T) {
				runner := &fakeRunner{lines: []string{"FAILURE"}}
				d := probe.NewDriver(runner, "eduroam CAT", nil)

				tlsAttempt := probe.Attempt{Method: eap.TLS, Outer: "anonymous@example.org", ClientCert: []byte("p12 bytes")}
				_, err := d.Run(context.Background(), newTestWorkspace(t), target, tlsAttempt)
				require.NoError(t, err)

				assert.Equal(t, []byte("p12 bytes"), runner.cert)
			},
		},
		{
			name: "No Output",
			testFunc: func(t *testing.T) {
				d := probe.NewDriver(&fakeRunner{}, "eduroam CAT", nil)

				_, err := d.Run(context.Background(), newTestWorkspace(t), target, attempt)
				assert.ErrorIs(t, err, probe.ErrNoOutput)
				assert.Contains(t, err.Error(), "probe 1")
			},
		},
		{
			name: "Runner Error",
			testFunc: func(t *testing.T) {
				boom := errors.New("exec format error")
				d := probe.NewDriver(&fakeRunner{err: boom}, "eduroam CAT", nil)

				_, err := d.Run(context.Background(), newTestWorkspace(t), target, attempt)
				assert.ErrorIs(t, err, boom)
			},
		},
		{
			name: "Debug Log Is Redacted",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewJSONLogger(&buf, false)
				log.SetDebug(true)

				runner := &fakeRunner{lines: []string{"EAP-TTLS/PAP: password=pa55word", "RADIUS message: code=3"}}
				d := probe.NewDriver(runner, "eduroam CAT", log)

				_, err := d.Run(context.Background(), newTestWorkspace(t), target, attempt)
				require.NoError(t, err)

				out := buf.String()
				assert.NotContains(t, out, "pa55word")
				assert.Contains(t, out, probe.RedactedLine)
				assert.Contains(t, out, supplicant.Redacted)
				assert.Contains(t, out, "RADIUS message: code=3")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
