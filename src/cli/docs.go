// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interface of the EAP/RADIUS
// diagnostics. It implements a Cobra command tree with one subcommand per
// probe kind: UDP reachability, EAP login, TLS CA path and client
// certificate checks, and offline analysis of a server certificate chain.
// Results are written as JSON, a markdown table or an ASCII tree.
package cli
