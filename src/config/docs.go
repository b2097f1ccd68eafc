// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the diagnostics configuration and network-login
// profiles and wires them into a ready [session.Session].
//
// Example:
//
//	cfg, err := config.Load(path)
//	if err != nil {
//		return err
//	}
//	s, err := cfg.NewSession(ctx, config.Run{Realm: "example.org", Logger: log})
//
// [session.Session]: https://pkg.go.dev/github.com/H0llyW00dzZ/eap-radius-diag/src/internal/session#Session
package config
