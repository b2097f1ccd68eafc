// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509chain analyses the [X.509] chain an EAP server presents.
// It provides capabilities to:
//   - Split a returned bundle and classify each certificate as server,
//     intermediate, root or self-signed server.
//   - Check certificate properties that break client devices, such as weak
//     signatures, missing extensions and names that are not hostnames.
//   - Download [CRL]s from distribution points through an LRU cache.
//   - Validate the server certificate twice, against the observed chain and
//     against the configured anchors, via openssl or crypto/x509.
//   - Match the expected server names and render the chain as a table or tree.
//
// [X.509]: https://grokipedia.com/page/X.509
// [CRL]: https://grokipedia.com/page/Certificate_revocation_list
package x509chain
