// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package diag defines the shared result model of the EAP/RADIUS diagnostics:
// stable outcome identifiers, the enumerated oddity codes with their severity,
// the append-only [OdditySet], RADIUS packet codes, the per-probe [Result]
// record and the [Profile] an administrator supplies for a realm.
//
// Every other diagnostics package produces or consumes these types; none of
// them carries behavior beyond formatting and accumulation.
//
// [RADIUS]: https://datatracker.ietf.org/doc/html/rfc2865
package diag
