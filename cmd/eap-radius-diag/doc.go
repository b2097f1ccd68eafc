// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// eap-radius-diag is a command-line tool that checks whether RADIUS/EAP
// servers of a roaming federation are reachable, whether real users can log
// in, and whether the server certificates they present are sound.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/eap-radius-diag/cmd/eap-radius-diag@latest
//
// UDP probes drive wpa_supplicant's eapol_test unless radiusTests.runner is
// "native"; certificate checks call openssl unless the validator and TLS
// runner are "native".
//
// # Usage
//
//	eap-radius-diag [COMMAND] [FLAGS]
//
// # Global Flags
//
//	-c, --config    Configuration file (default: $EAP_DIAG_CONFIG_FILE)
//	-p, --profile   Institution profile with realm, CA files and server names
//	-r, --realm     Realm under test (default: profile realm)
//	-f, --format    Output format: table, tree or json (default: table)
//	    --debug     Log probe traces
//
// # Examples
//
// Check that every configured server answers:
//
//	eap-radius-diag reachability -c diag.yaml -r example.org
//
// Log in with real credentials and review the server chain:
//
//	eap-radius-diag login -c diag.yaml -p profile.yaml -e PEAP-MSCHAPv2 \
//	  --inner alice@example.org --password secret -f tree
//
// Check a RADIUS/TLS peer:
//
//	eap-radius-diag tls-ca radsec.example.org:2083
//	eap-radius-diag tls-clients radsec.example.org:2083
//
// Analyse a saved chain:
//
//	eap-radius-diag analyze chain.pem -p profile.yaml --format json
package main
