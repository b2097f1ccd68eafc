// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package session runs the diagnostics of one realm and keeps their
// results.
//
// A [Session] composes the independent stages: identity resolution, the
// protocol probe, packet flow classification, certificate analysis and
// the TLS checks. Each stage lives in its own package; the session only
// sequences them and records what they find.
//
// Configuration faults (an unknown target, a method that needs a client
// certificate without one) end in a NOT_CONFIGURED result and a nil
// error. Tooling faults (no runner output, scratch I/O) are returned as
// errors and also kept in [Session.Errors].
package session
