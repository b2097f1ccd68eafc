// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/supplicant"
)

// EapolTestRunner runs the eapol_test utility in the request directory.
type EapolTestRunner struct {
	// Path is the eapol_test binary.
	Path string
}

// Args returns the command line arguments for req.
func (r *EapolTestRunner) Args(req *Request) []string {
	host, port := req.Target.HostPort()

	seconds := int(req.Target.Timeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	args := []string{"-a", host}
	if port != "" {
		args = append(args, "-p", port)
	}
	args = append(args,
		"-s", req.Target.Secret,
		"-o", ServerChainFile,
		"-c", "./"+supplicant.ConfigFile,
		"-M", fmt.Sprintf("22:44:66:CA:20:%02d", req.Target.Index),
		"-t", strconv.Itoa(seconds),
	)

	if req.Attempt.OperatorName != "" {
		args = append(args, "-N126:s:"+req.Attempt.OperatorName)
	}
	if req.Attempt.Fragment {
		vsa := "-N26:x:" + hex.EncodeToString(fragmentVSA)
		for range FragmentAttributes {
			args = append(args, vsa)
		}
	}

	return args
}

// Run implements [HandshakeRunner]. A non-zero exit status is how
// eapol_test reports a failed authentication and is not an error.
func (r *EapolTestRunner) Run(ctx context.Context, req *Request) (*Capture, error) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	cmd := exec.CommandContext(ctx, r.Path, r.Args(req)...)
	cmd.Dir = req.Dir
	cmd.Stdout = buf

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("probe: run eapol_test: %w", err)
		}
	}

	capture := &Capture{Lines: posix.Lines(buf.Bytes())}

	chain, err := ReadOptional(req.Dir, ServerChainFile)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(chain)) > 0 {
		capture.Chain = chain
	}

	return capture, nil
}
