// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package supplicant renders the wpa_supplicant network block used by a
// login probe, together with a variant that is safe to log.
package supplicant

import (
	"fmt"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
)

const (
	// Redacted replaces secrets in the loggable configuration.
	Redacted = "not logged for security reasons"

	// ClientCertFile is the name of the client credential inside the probe
	// scratch directory.
	ClientCertFile = "client.p12"

	// ConfigFile is the name of the generated configuration inside the probe
	// scratch directory.
	ConfigFile = "udp_login_test.conf"
)

// Options describes the attempt the configuration is generated for.
type Options struct {
	// ProductName prefixes the SSID.
	ProductName string
	Method      eap.Method
	Inner       string
	Outer       string
	Password    string
	// KeyPassword protects the client credential. Password is used when empty.
	KeyPassword string
}

// Config holds the real configuration and its loggable twin.
type Config struct {
	Text     string
	Redacted string
}

// Build renders the network block for o.
func Build(o Options) Config {
	var text, logged strings.Builder

	both := func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		text.WriteString(line)
		logged.WriteString(line)
	}
	secret := func(key, value string) {
		fmt.Fprintf(&text, "  %s=%q\n", key, value)
		fmt.Fprintf(&logged, "  %s=%q\n", key, Redacted)
	}

	both("\nnetwork={\n")
	both("  ssid=%q\n", o.ProductName+" testing")
	both("  key_mgmt=WPA-EAP\n")
	both("  proto=WPA2\n")
	both("  pairwise=CCMP\n")
	both("  group=CCMP\n")
	both("  eap=%s\n", o.Method.Outer)

	if o.Method.Inner != "" {
		both("  phase2=\"auth=%s\"\n", o.Method.Inner)
	}
	if !o.Method.CertificateOnly() {
		secret("password", o.Password)
	}
	if o.Method.UsesClientCert() {
		keyPassword := o.KeyPassword
		if keyPassword == "" {
			keyPassword = o.Password
		}
		both("  private_key=\"./%s\"\n", ClientCertFile)
		secret("private_key_passwd", keyPassword)
	}

	both("  identity=%q\n", o.Inner)
	both("  anonymous_identity=%q\n", o.Outer)
	both("}")

	return Config{Text: text.String(), Redacted: logged.String()}
}
