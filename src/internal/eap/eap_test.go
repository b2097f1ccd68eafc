// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package eap_test

import (
	"testing"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/eap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	m, err := eap.Lookup("peap-mschapv2")
	require.NoError(t, err)
	assert.Equal(t, eap.PEAPMSCHAPv2, m)

	_, err = eap.Lookup("EAP-SIM")
	assert.ErrorIs(t, err, eap.ErrUnknownMethod)
}

func TestMethodCapabilities(t *testing.T) {
	tests := []struct {
		name        string
		method      eap.Method
		certOnly    bool
		clientCert  bool
		serverChain bool
	}{
		{"tls", eap.TLS, true, true, true},
		{"any", eap.Any, false, true, true},
		{"peap", eap.PEAPMSCHAPv2, false, false, true},
		{"ttls-pap", eap.TTLSPAP, false, false, true},
		{"pwd", eap.PWD, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.certOnly, tt.method.CertificateOnly())
			assert.Equal(t, tt.clientCert, tt.method.UsesClientCert())
			assert.Equal(t, tt.serverChain, tt.method.PresentsServerChain())
			assert.True(t, tt.method.Configured())
		})
	}

	assert.False(t, eap.Method{Name: "broken"}.Configured())
}
