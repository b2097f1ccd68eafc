// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// RoleLabel returns the human readable label of a role, e.g.
// "Self Signed Server".
func RoleLabel(r Role) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "-", " "))
}

func keyLabel(rec *Record) string {
	bits := KeyBits(rec.Cert)
	if bits == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d-bit %s", bits, rec.Cert.PublicKeyAlgorithm)
}

func oddityLabel(set *diag.OdditySet) string {
	if set.Len() == 0 {
		return "none"
	}
	list := set.List()
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = string(o)
	}
	return strings.Join(out, ", ")
}

// RenderASCIITree renders the chain as an ASCII tree diagram, one line per
// certificate with a mark for certificates that carry error findings.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) RenderASCIITree() string {
	if len(ch.Records) == 0 {
		return "No certificates in chain"
	}

	var result strings.Builder
	for i, rec := range ch.Records {
		connector := "├── "
		if i == len(ch.Records)-1 {
			connector = "└── "
		}

		statusIcon := "✓"
		switch rec.Oddities.Worst() {
		case diag.SeverityError:
			statusIcon = "✗"
		case diag.SeverityWarning:
			statusIcon = "!"
		}

		result.WriteString(fmt.Sprintf("%s[%s] %s (%s)\n", connector, statusIcon, rec.Cert.Subject.CommonName, RoleLabel(rec.Role)))
	}

	return result.String()
}

// RenderTable renders the chain as a markdown table with role, subject,
// issuer, validity end, key size and per-certificate findings.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) RenderTable() string {
	if len(ch.Records) == 0 {
		return "No certificates to display"
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)

	table.Header([]string{"🔢 #", "🏷️ Role", "📛 Subject", "🏢 Issuer", "📅 Valid Until", "🔐 Key Size", "⚠️ Findings"})

	rows := make([][]string, 0, len(ch.Records))
	for i, rec := range ch.Records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			RoleLabel(rec.Role),
			rec.Cert.Subject.CommonName,
			rec.Cert.Issuer.CommonName,
			rec.Cert.NotAfter.Format("2006-01-02"),
			keyLabel(rec),
			oddityLabel(rec.Oddities),
		})
	}

	table.Bulk(rows)
	table.Render()
	return buf.String()
}
