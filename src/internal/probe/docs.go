// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package probe drives single EAP authentication attempts against a RADIUS
// server and captures what happened on the wire.
//
// A [Driver] writes the supplicant configuration and client credential into
// an isolated [Workspace], hands the attempt to a [HandshakeRunner] and
// returns the raw trace lines together with any server certificate chain
// the runner captured. Two runners exist:
//
//   - [EapolTestRunner] executes the eapol_test utility.
//   - [NativeRunner] speaks EAP-TLS over RADIUS/UDP in process and reports
//     its progress in the same trace vocabulary, so the packet-flow
//     classifier does not care which runner produced a trace.
//
// Basic Usage:
//
//	ws, err := probe.NewWorkspace("", false)
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
//
//	d := probe.NewDriver(&probe.EapolTestRunner{Path: bin}, "eduroam CAT", log)
//	capture, err := d.Run(ctx, ws, target, attempt)
//	if err != nil {
//		return err
//	}
//	analysis := packetflow.Analyze(capture.Lines)
//
// Trace lines are logged only after the password has been redacted with
// [Redact].
package probe
