// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/supplicant"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/logger"
)

// DefaultGrace is added to the target timeout to let the runner tear down.
const DefaultGrace = 5 * time.Second

// Driver runs attempts through a [HandshakeRunner].
type Driver struct {
	Runner      HandshakeRunner
	ProductName string
	Logger      logger.Logger
	// Grace extends the target timeout for the runner context.
	Grace time.Duration
}

// NewDriver returns a Driver with the default grace period.
func NewDriver(runner HandshakeRunner, productName string, log logger.Logger) *Driver {
	return &Driver{
		Runner:      runner,
		ProductName: productName,
		Logger:      log,
		Grace:       DefaultGrace,
	}
}

// Run stages the supplicant configuration and client credential in ws and
// performs the attempt.
//
// Parameters:
//   - ctx: Parent context; the runner gets the target timeout plus grace
//   - ws: Scratch directory of this probe
//   - target: Server to authenticate against
//   - attempt: Method, identities and credentials
//
// Returns:
//   - *Capture: Trace lines, captured chain and duration
//   - error: Staging or runner failure, or [ErrNoOutput]
func (d *Driver) Run(ctx context.Context, ws *Workspace, target Target, attempt Attempt) (*Capture, error) {
	cfg := supplicant.Build(supplicant.Options{
		ProductName: d.ProductName,
		Method:      attempt.Method,
		Inner:       attempt.Inner,
		Outer:       attempt.Outer,
		Password:    attempt.Password,
		KeyPassword: attempt.ClientCertPassword,
	})

	if err := ws.WriteFile(supplicant.ConfigFile, []byte(cfg.Text)); err != nil {
		return nil, err
	}
	if len(attempt.ClientCert) > 0 {
		if err := ws.WriteFile(supplicant.ClientCertFile, attempt.ClientCert); err != nil {
			return nil, err
		}
	}

	d.debugf("probe %d (%s) in %s, config:%s", target.Index, attempt.Method, ws.Dir, cfg.Redacted)

	runCtx, cancel := context.WithTimeout(ctx, target.Timeout+d.Grace)
	defer cancel()

	start := time.Now()
	capture, err := d.Runner.Run(runCtx, &Request{Target: target, Attempt: attempt, Dir: ws.Dir})
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("probe %d: %w", target.Index, err)
	}
	if capture == nil || len(capture.Lines) == 0 {
		return nil, fmt.Errorf("probe %d: %w", target.Index, ErrNoOutput)
	}
	capture.Duration = elapsed

	for _, line := range Redact(capture.Lines, attempt.Password) {
		d.debugf("%s", line)
	}

	return capture, nil
}

func (d *Driver) debugf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Debugf(format, args...)
	}
}
