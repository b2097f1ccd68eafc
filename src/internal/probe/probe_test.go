// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/packetflow"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/probe"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/supplicant"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Line With Password",
			testFunc: func(t *testing.T) {
				lines := []string{"EAP-MSCHAPV2: password=s3cr3t!", "unrelated"}
				got := probe.Redact(lines, "s3cr3t!")

				assert.Equal(t, []string{probe.RedactedLine, "unrelated"}, got)
				assert.Equal(t, "EAP-MSCHAPV2: password=s3cr3t!", lines[0], "input must not change")
			},
		},
		{
			name: "Hex Dump",
			testFunc: func(t *testing.T) {
				// "s3c" is 73 33 63
				lines := []string{"EAP-TTLS: hexdump(len=3): 73 33 63 00", "dump: 73 33 63"}
				got := probe.Redact(lines, "s3c")

				// the spacing around the dump is kept
				assert.Equal(t, "EAP-TTLS: hexdump(len=3): "+probe.RedactedHex+" 00", got[0])
				assert.Equal(t, "dump: "+probe.RedactedHex, got[1])
			},
		},
		{
			name: "Hex Dump Upper Case",
			testFunc: func(t *testing.T) {
				// "jk" is 6a 6b
				got := probe.Redact([]string{"value: 6A 6B"}, "jk")
				assert.Equal(t, "value: "+probe.RedactedHex, got[0])
			},
		},
		{
			name: "Empty Secret",
			testFunc: func(t *testing.T) {
				lines := []string{"nothing to hide"}
				assert.Equal(t, lines, probe.Redact(lines, ""))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestTargetHostPort(t *testing.T) {
	tests := []struct {
		address string
		host    string
		port    string
	}{
		{"192.0.2.10", "192.0.2.10", ""},
		{"192.0.2.10:1645", "192.0.2.10", "1645"},
		{"radius.example.org:1812", "radius.example.org", "1812"},
		{"[2001:db8::1]:1812", "2001:db8::1", "1812"},
		{"[2001:db8::1]", "2001:db8::1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			host, port := probe.Target{Address: tt.address}.HostPort()
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestFragmentVSA(t *testing.T) {
	vsa := probe.FragmentVSA()
	require.Len(t, vsa, 253)
	assert.Equal(t, []byte{0x00, 0x00, 0x62, 0x5a, 0x0b, 0xf9}, vsa[:6])
	assert.Equal(t, strings.Repeat("a", 247), string(vsa[6:]))

	vsa[0] = 0xff
	assert.Equal(t, byte(0x00), probe.FragmentVSA()[0], "callers get a copy")
}

func TestEapolTestArgs(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Plain",
			testFunc: func(t *testing.T) {
				r := &probe.EapolTestRunner{Path: "eapol_test"}
				args := r.Args(&probe.Request{
					Target: probe.Target{Index: 3, Address: "192.0.2.10", Secret: "testing123", Timeout: 10 * time.Second},
				})

				assert.Equal(t, []string{
					"-a", "192.0.2.10",
					"-s", "testing123",
					"-o", probe.ServerChainFile,
					"-c", "./" + supplicant.ConfigFile,
					"-M", "22:44:66:CA:20:03",
					"-t", "10",
				}, args)
			},
		},
		{
			name: "Port And Minimum Timeout",
			testFunc: func(t *testing.T) {
				r := &probe.EapolTestRunner{}
				args := r.Args(&probe.Request{
					Target: probe.Target{Index: 12, Address: "192.0.2.10:1645", Secret: "s", Timeout: 200 * time.Millisecond},
				})

				assert.Equal(t, []string{"-a", "192.0.2.10", "-p", "1645"}, args[:4])
				assert.Equal(t, []string{"-M", "22:44:66:CA:20:12", "-t", "1"}, args[len(args)-4:])
			},
		},
		{
			name: "Operator Name And Fragmentation",
			testFunc: func(t *testing.T) {
				r := &probe.EapolTestRunner{}
				args := r.Args(&probe.Request{
					Target:  probe.Target{Address: "192.0.2.10", Secret: "s", Timeout: time.Second},
					Attempt: probe.Attempt{OperatorName: probe.DefaultOperatorName, Fragment: true},
				})

				assert.Contains(t, args, "-N126:s:"+probe.DefaultOperatorName)

				var vsas int
				for _, a := range args {
					if strings.HasPrefix(a, "-N26:x:00006") {
						vsas++
						assert.Len(t, a, len("-N26:x:")+2*253)
					}
				}
				assert.Equal(t, probe.FragmentAttributes, vsas)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestEapolTestRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	bin := filepath.Join(t.TempDir(), "eapol_test")
	script := `#!/bin/sh
echo "Sending RADIUS message to authentication server"
echo "RADIUS message: code=1 (Access-Request) identifier=0 length=180"
echo "Received RADIUS message"
echo "RADIUS message: code=3 (Access-Reject) identifier=0 length=20"
printf 'not a certificate but not empty\n' > serverchain.pem
echo "FAILURE"
exit 252
`
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	dir := t.TempDir()
	r := &probe.EapolTestRunner{Path: bin}
	capture, err := r.Run(context.Background(), &probe.Request{
		Target: probe.Target{Address: "192.0.2.10", Secret: "s", Timeout: time.Second},
		Dir:    dir,
	})
	require.NoError(t, err, "non-zero exit is a protocol failure, not a tooling fault")

	assert.Len(t, capture.Lines, 5)
	assert.Equal(t, diag.OutcomeImmediateReject, packetflow.Analyze(capture.Lines).Outcome)
	assert.Equal(t, "not a certificate but not empty\n", string(capture.Chain))

	_, err = (&probe.EapolTestRunner{Path: filepath.Join(dir, "missing")}).Run(context.Background(), &probe.Request{Dir: dir})
	assert.Error(t, err)
}

func TestWorkspace(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Create And Remove",
			testFunc: func(t *testing.T) {
				ws, err := probe.NewWorkspace(t.TempDir(), false)
				require.NoError(t, err)

				assert.NotEmpty(t, ws.RunID)
				assert.Equal(t, "eap-radius-diag-"+ws.RunID, filepath.Base(ws.Dir))

				info, err := os.Stat(ws.Dir)
				require.NoError(t, err)
				assert.True(t, info.IsDir())
				assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

				require.NoError(t, ws.WriteFile("a.txt", []byte("x")))
				data, err := probe.ReadOptional(ws.Dir, "a.txt")
				require.NoError(t, err)
				assert.Equal(t, []byte("x"), data)

				require.NoError(t, ws.Close())
				_, err = os.Stat(ws.Dir)
				assert.True(t, os.IsNotExist(err))
			},
		},
		{
			name: "Keep",
			testFunc: func(t *testing.T) {
				ws, err := probe.NewWorkspace(t.TempDir(), true)
				require.NoError(t, err)
				require.NoError(t, ws.Close())

				_, err = os.Stat(ws.Dir)
				assert.NoError(t, err)
			},
		},
		{
			name: "Missing Optional File",
			testFunc: func(t *testing.T) {
				ws, err := probe.NewWorkspace(t.TempDir(), false)
				require.NoError(t, err)
				t.Cleanup(func() { ws.Close() })

				data, err := probe.ReadOptional(ws.Dir, probe.ServerChainFile)
				assert.NoError(t, err)
				assert.Nil(t, data)
			},
		},
		{
			name: "Unique Directories",
			testFunc: func(t *testing.T) {
				base := t.TempDir()
				a, err := probe.NewWorkspace(base, false)
				require.NoError(t, err)
				b, err := probe.NewWorkspace(base, false)
				require.NoError(t, err)

				assert.NotEqual(t, a.Dir, b.Dir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

// Compile-time interface checks.
var (
	_ probe.HandshakeRunner = (*probe.EapolTestRunner)(nil)
	_ probe.HandshakeRunner = (*probe.NativeRunner)(nil)
)
