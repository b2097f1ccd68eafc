// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package credential_test

import (
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/credential"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/testpki"
)

func TestLoad(t *testing.T) {
	root := testpki.Root(t, "Credential Root")
	client := root.Issue(t, testpki.Options{CommonName: "client@example.org"})

	encryptedKey := func(t *testing.T, password string) []byte {
		der, err := pkcs8.MarshalPrivateKey(client.Key, []byte(password), nil)
		require.NoError(t, err)
		return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
	}

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Combined PEM",
			testFunc: func(t *testing.T) {
				data := append(client.KeyPEM(t), client.PEM...)
				cert, err := credential.Load(data, "")
				require.NoError(t, err)
				assert.Equal(t, "client@example.org", cert.Leaf.Subject.CommonName)
				assert.Len(t, cert.Certificate, 1)
			},
		},
		{
			name: "Leaf Reordered",
			testFunc: func(t *testing.T) {
				cert, err := credential.LoadPEM(testpki.Bundle(root, client), client.KeyPEM(t), "")
				require.NoError(t, err)
				assert.Equal(t, client.Cert.Raw, cert.Certificate[0])
				assert.Len(t, cert.Certificate, 2)
			},
		},
		{
			name: "Encrypted PKCS8",
			testFunc: func(t *testing.T) {
				cert, err := credential.LoadPEM(client.PEM, encryptedKey(t, "s3cret"), "s3cret")
				require.NoError(t, err)
				assert.NotNil(t, cert.PrivateKey)
			},
		},
		{
			name: "Wrong Password",
			testFunc: func(t *testing.T) {
				_, err := credential.LoadPEM(client.PEM, encryptedKey(t, "s3cret"), "wrong")
				assert.Error(t, err)
			},
		},
		{
			name: "Missing Key",
			testFunc: func(t *testing.T) {
				_, err := credential.Load(client.PEM, "")
				assert.ErrorIs(t, err, credential.ErrNoPrivateKey)
			},
		},
		{
			name: "Missing Certificate",
			testFunc: func(t *testing.T) {
				_, err := credential.Load(client.KeyPEM(t), "")
				assert.ErrorIs(t, err, credential.ErrNoCertificate)
			},
		},
		{
			name: "Garbage PKCS12",
			testFunc: func(t *testing.T) {
				_, err := credential.Load([]byte{0x30, 0x03, 0x02, 0x01, 0x00}, "pw")
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
