// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/testpki"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/report"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
)

func sampleResults() []*diag.Result {
	ok := diag.NewResult("run-1", 0, diag.OutcomeOK)
	ok.Method = "EAP-TLS"
	ok.TimeMillisec = 1500
	ok.PacketFlow = []diag.PacketCode{1, 11, 1, 2}
	ok.TrustTier = diag.TrustOK
	ok.HostnameMatch = diag.HostnameTotal
	ok.Oddities.Add(diag.OddityNoCDP)

	reject := diag.NewResult("run-2", 1, diag.OutcomeConversationReject)
	reject.Method = "TTLS-PAP"
	reject.Oddities.Add(diag.OddityNoCommonEAPMethod)

	return []*diag.Result{ok, nil, reject}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "TABLE", "tree"} {
		_, err := report.ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := report.ParseFormat("xml")
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestResults(t *testing.T) {
	tests := []struct {
		name     string
		format   report.Format
		contains []string
	}{
		{
			name:     "Table",
			format:   report.FormatTable,
			contains: []string{"OUTCOME", "PACKET FLOW", "CONVERSATION_REJECT", "1 11 1 2", "1.5s", "TOTAL", "NO_CDP"},
		},
		{
			name:     "Tree",
			format:   report.FormatTree,
			contains: []string{"[i] probe 0 EAP-TLS: OK (1.5s)", "└── [i] NO_CDP (remark)", "[✗] probe 1 TTLS-PAP: CONVERSATION_REJECT", "NO_COMMON_EAP_METHOD (error)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, report.Results(&buf, tt.format, sampleResults()))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Results(&buf, report.FormatJSON, sampleResults()))

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 3)
		assert.Equal(t, "OK", decoded[0]["outcome"])
		assert.Equal(t, []any{"NO_CDP"}, decoded[0]["oddities"])
		assert.Nil(t, decoded[1])
	})
}

func TestAssessment(t *testing.T) {
	root := testpki.Root(t, "Report Root")
	server := root.Server(t, "radius.example.org")

	analyzer := x509chain.NewAnalyzer(x509chain.NewInspector(nil, nil), &x509chain.NativeValidator{})
	as, err := analyzer.Analyze(context.Background(), server.PEM, &diag.Profile{
		CAFiles:     [][]byte{root.PEM},
		ServerNames: []string{"radius.example.org"},
	}, t.TempDir())
	require.NoError(t, err)

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Assessment(&buf, report.FormatJSON, as))

		var view map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
		assert.Equal(t, "ok", view["trustTier"])
		assert.Equal(t, "TOTAL", view["hostnameMatch"])
		assert.Len(t, view["certificates"], 1)
	})

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Assessment(&buf, report.FormatTable, as))
		assert.Contains(t, buf.String(), "radius.example.org")
		assert.Contains(t, buf.String(), "trust: ok, hostname: TOTAL, findings: NO_CDP")
	})

	t.Run("Tree", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Assessment(&buf, report.FormatTree, as))
		assert.Contains(t, buf.String(), "radius.example.org")
		assert.Contains(t, buf.String(), "trust: ok")
	})
}

func TestTLSReports(t *testing.T) {
	ca := &tlscheck.CAPathResult{
		Host:    "192.0.2.1:2083",
		Outcome: diag.OutcomeOK,
		Status:  diag.OutcomeOK,
		Cert:    &tlscheck.CertData{Subject: "/CN=radius.example.org", Issuer: "/CN=Root"},
	}
	clients := &tlscheck.ClientCertResult{
		Host:    "192.0.2.1:2083",
		Outcome: diag.OutcomeOK,
		Groups: []tlscheck.GroupResult{{
			Name:    "eduPKI",
			Message: "accredited",
			Certificates: []tlscheck.CertificateResult{
				{Message: "correct certificate", Expected: tlscheck.ExpectPass, Connected: true},
				{Message: "expired certificate", Expected: tlscheck.ExpectFail, Connected: true, Verdict: diag.OddityWronglyAccepted},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.CAPath(&buf, report.FormatTable, ca))
	assert.Contains(t, buf.String(), "/CN=radius.example.org")

	buf.Reset()
	require.NoError(t, report.CAPath(&buf, report.FormatTree, ca))
	assert.Contains(t, buf.String(), "[✓] 192.0.2.1:2083: OK")

	buf.Reset()
	require.NoError(t, report.ClientCerts(&buf, report.FormatTree, clients))
	assert.Contains(t, buf.String(), "└── eduPKI (accredited)")
	assert.Contains(t, buf.String(), "[✗] expired certificate, expected FAIL: connected")

	buf.Reset()
	require.NoError(t, report.ClientCerts(&buf, report.FormatTable, clients))
	assert.Contains(t, buf.String(), "WRONGLY_ACCEPTED")

	buf.Reset()
	require.NoError(t, report.ClientCerts(&buf, report.FormatJSON, clients))
	assert.Contains(t, buf.String(), `"verdict": "WRONGLY_ACCEPTED"`)
}
