// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package tlscheck tests RADIUS/TLS servers by opening plain TLS
// connections to them.
//
// Two checks are offered by [Checker]:
//
//   - [Checker.CAPath] connects without a client certificate and verifies
//     the server certificate against a directory of trusted roots. The
//     presented certificate is summarised in a [CertData].
//   - [Checker.ClientCerts] connects once per configured client
//     certificate and compares whether the server accepted it with the
//     expected result.
//
// Connections go through a [Runner]. [OpenSSLRunner] drives
// "openssl s_client"; [NativeRunner] uses crypto/tls and reports the same
// output signatures, so the interpretation is identical for both.
//
// Example:
//
//	checker := tlscheck.NewChecker(&tlscheck.NativeRunner{CAPath: "/etc/eap-diag/ca-certs"}, log)
//	res, err := checker.CAPath(ctx, "radius.example.org:2083")
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Status, res.Cert.Subject)
package tlscheck
