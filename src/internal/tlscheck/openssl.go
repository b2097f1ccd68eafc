// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package tlscheck

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/posix"
)

// DefaultProtocolArgs pins the protocol version offered by s_client.
var DefaultProtocolArgs = []string{"-tls1"}

// OpenSSLRunner connects with "openssl s_client".
type OpenSSLRunner struct {
	// Path is the openssl binary.
	Path string
	// CAPath is the hashed directory of trusted roots.
	CAPath string
	// ProtocolArgs are passed before -CApath. nil means [DefaultProtocolArgs].
	ProtocolArgs []string
}

// Args returns the s_client arguments for one connection.
func (r *OpenSSLRunner) Args(hostPort string, client *Client) []string {
	protocol := r.ProtocolArgs
	if protocol == nil {
		protocol = DefaultProtocolArgs
	}

	args := []string{"s_client", "-connect", hostPort}
	args = append(args, protocol...)
	args = append(args, "-CApath", r.CAPath)

	if client != nil {
		args = append(args, "-cert", client.CertFile, "-key", client.KeyFile)
		if client.Password != "" {
			args = append(args, "-pass", "pass:"+client.Password)
		}
	}
	return args
}

// Connect implements [Runner]. Standard error is captured together with
// standard output.
func (r *OpenSSLRunner) Connect(ctx context.Context, hostPort string, client *Client) (*Transcript, error) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	cmd := exec.CommandContext(ctx, r.Path, r.Args(hostPort, client)...)
	// s_client keeps the session open until stdin closes
	cmd.Stdin = strings.NewReader("")
	cmd.Stdout = buf
	cmd.Stderr = buf

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tlscheck: run openssl: %w", err)
		}
		code = exitErr.ExitCode()
	}

	return &Transcript{
		Lines:      posix.Lines(buf.Bytes()),
		ReturnCode: code,
		Duration:   elapsed,
	}, nil
}
