// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/tlscheck"
	x509chain "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/chain"
)

// Format selects the rendering.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatTree  Format = "tree"
)

// ErrUnknownFormat is returned by [ParseFormat].
var ErrUnknownFormat = errors.New("report: unknown output format")

// ParseFormat accepts "json", "table" and "tree".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatTree:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// AssessmentView is the serialisable form of an [x509chain.Assessment].
type AssessmentView struct {
	Certificates  []diag.CertificateDetail `json:"certificates"`
	TrustTier     string                   `json:"trustTier"`
	HostnameMatch diag.HostnameVerdict     `json:"hostnameMatch,omitempty"`
	ServerNames   []string                 `json:"incomingServerNames,omitempty"`
	Oddities      *diag.OdditySet          `json:"oddities"`
}

// NewAssessmentView flattens as.
func NewAssessmentView(as *x509chain.Assessment) AssessmentView {
	return AssessmentView{
		Certificates:  as.Chain.Details(),
		TrustTier:     as.TrustTier().String(),
		HostnameMatch: as.Hostname,
		ServerNames:   as.ServerNames,
		Oddities:      as.Oddities,
	}
}

// JSON writes v indented, followed by a newline.
func JSON(w io.Writer, v any) error {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encode JSON: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func markdown(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func severityIcon(s diag.Severity) string {
	switch s {
	case diag.SeverityError:
		return "✗"
	case diag.SeverityWarning:
		return "!"
	case diag.SeverityRemark:
		return "i"
	}
	return "✓"
}

func oddityList(set *diag.OdditySet) string {
	if set == nil || set.Len() == 0 {
		return "none"
	}
	list := set.List()
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = string(o)
	}
	return strings.Join(out, ", ")
}

// oddityLines writes one tree leaf per oddity below a node.
func oddityLines(b *strings.Builder, indent string, set *diag.OdditySet) {
	if set == nil {
		return
	}
	list := set.List()
	for i, o := range list {
		connector := "├── "
		if i == len(list)-1 {
			connector = "└── "
		}
		fmt.Fprintf(b, "%s%s[%s] %s (%s)\n", indent, connector, severityIcon(o.Severity()), o, o.Severity())
	}
}

func millis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func flow(codes []diag.PacketCode) string {
	if len(codes) == 0 {
		return "-"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, " ")
}

// Results renders probe results in the given format.
func Results(w io.Writer, f Format, results []*diag.Result) error {
	switch f {
	case FormatJSON:
		return JSON(w, results)
	case FormatTree:
		var b strings.Builder
		for _, r := range results {
			if r == nil {
				continue
			}
			fmt.Fprintf(&b, "[%s] probe %d %s: %s (%s)\n", severityIcon(r.Oddities.Worst()), r.ProbeIndex, r.Method, r.Outcome, millis(r.TimeMillisec))
			oddityLines(&b, "    ", r.Oddities)
		}
		_, err := io.WriteString(w, b.String())
		return err
	default:
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			if r == nil {
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(r.ProbeIndex),
				r.Method,
				string(r.Outcome),
				millis(r.TimeMillisec),
				flow(r.PacketFlow),
				r.TrustTier.String(),
				string(r.HostnameMatch),
				oddityList(r.Oddities),
			})
		}
		return markdown(w, []string{"#", "Method", "Outcome", "Time", "Packet Flow", "Trust", "Hostname", "Findings"}, rows)
	}
}

// Assessment renders an offline chain analysis.
func Assessment(w io.Writer, f Format, as *x509chain.Assessment) error {
	switch f {
	case FormatJSON:
		return JSON(w, NewAssessmentView(as))
	case FormatTree:
		var b strings.Builder
		b.WriteString(as.Chain.RenderASCIITree())
		fmt.Fprintf(&b, "trust: %s\n", as.TrustTier())
		oddityLines(&b, "", as.Oddities)
		_, err := io.WriteString(w, b.String())
		return err
	default:
		var b strings.Builder
		b.WriteString(as.Chain.RenderTable())
		fmt.Fprintf(&b, "\ntrust: %s, hostname: %s, findings: %s\n", as.TrustTier(), hostnameLabel(as.Hostname), oddityList(as.Oddities))
		_, err := io.WriteString(w, b.String())
		return err
	}
}

func hostnameLabel(v diag.HostnameVerdict) string {
	if v == diag.HostnameNotChecked {
		return "not checked"
	}
	return string(v)
}

// CAPath renders a CA path check.
func CAPath(w io.Writer, f Format, res *tlscheck.CAPathResult) error {
	switch f {
	case FormatJSON:
		return JSON(w, res)
	}

	subject, issuer := "-", "-"
	if res.Cert != nil {
		subject, issuer = res.Cert.Subject, res.Cert.Issuer
	}

	if f == FormatTree {
		var b strings.Builder
		icon := "✓"
		if res.Outcome != diag.OutcomeOK {
			icon = "✗"
		}
		fmt.Fprintf(&b, "[%s] %s: %s (%s)\n", icon, res.Host, res.Status, millis(res.TimeMillisec))
		fmt.Fprintf(&b, "├── subject: %s\n", subject)
		fmt.Fprintf(&b, "└── issuer: %s\n", issuer)
		_, err := io.WriteString(w, b.String())
		return err
	}

	return markdown(w,
		[]string{"Host", "Status", "Outcome", "Return Code", "Time", "Subject", "Issuer"},
		[][]string{{res.Host, string(res.Status), string(res.Outcome), strconv.Itoa(res.ReturnCode), millis(res.TimeMillisec), subject, issuer}},
	)
}

// ClientCerts renders a client certificate check.
func ClientCerts(w io.Writer, f Format, res *tlscheck.ClientCertResult) error {
	switch f {
	case FormatJSON:
		return JSON(w, res)
	case FormatTree:
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s\n", res.Host, res.Outcome)
		for gi, g := range res.Groups {
			connector, indent := "├── ", "│   "
			if gi == len(res.Groups)-1 {
				connector, indent = "└── ", "    "
			}
			fmt.Fprintf(&b, "%s%s (%s)\n", connector, g.Name, g.Message)
			for ci, c := range g.Certificates {
				leaf := "├── "
				if ci == len(g.Certificates)-1 {
					leaf = "└── "
				}
				icon := "✓"
				if c.Verdict != "" {
					icon = "✗"
				}
				fmt.Fprintf(&b, "%s%s[%s] %s, expected %s: %s\n", indent, leaf, icon, c.Message, c.Expected, certLabel(c))
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	default:
		var rows [][]string
		for _, g := range res.Groups {
			for _, c := range g.Certificates {
				verdict := string(c.Verdict)
				if verdict == "" {
					verdict = "-"
				}
				rows = append(rows, []string{g.Name, c.Message, c.Expected, certLabel(c), verdict, millis(c.TimeMillisec)})
			}
		}
		return markdown(w, []string{"CA", "Certificate", "Expected", "Result", "Verdict", "Time"}, rows)
	}
}

func certLabel(c tlscheck.CertificateResult) string {
	switch {
	case c.Connected:
		return "connected"
	case c.Comment != "":
		return c.Comment
	}
	return string(c.Outcome)
}
