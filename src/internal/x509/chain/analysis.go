// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// Assessment is the combined certificate analysis of one returned chain.
type Assessment struct {
	Chain *Chain
	// Trust is nil when no profile was given.
	Trust       *TrustReport
	Hostname    diag.HostnameVerdict
	ServerNames []string

	// Oddities is the final ordered finding set: chain shape and server
	// findings, the trust finding, the hostname finding, observed
	// intermediate findings, then configured intermediate findings.
	Oddities *diag.OdditySet
}

// TrustTier returns the trust tier, [diag.TrustNotChecked] without a profile.
func (a *Assessment) TrustTier() diag.TrustTier {
	if a.Trust == nil {
		return diag.TrustNotChecked
	}
	return a.Trust.Tier
}

// Analyzer runs extraction, property checks, trust verification and
// hostname matching over one bundle.
type Analyzer struct {
	Inspector *Inspector
	Verifier  *Verifier
}

// NewAnalyzer wires an Analyzer from its parts.
func NewAnalyzer(in *Inspector, validator PathValidator) *Analyzer {
	return &Analyzer{
		Inspector: in,
		Verifier:  &Verifier{Inspector: in, Validator: validator},
	}
}

// Analyze inspects bundle. Trust and hostname checks need a profile and
// stage their anchors below scratch; without a profile they are skipped
// and scratch is not touched.
//
// Expired configured intermediates are only warned about when the
// observed chain validates on its own. When any certificate is outside its
// validity period, a failure to reach the trust root is not reported
// since it follows from the expiry.
func (a *Analyzer) Analyze(ctx context.Context, bundle []byte, profile *diag.Profile, scratch string) (*Assessment, error) {
	ch := a.Inspector.Extract(ctx, bundle)

	as := &Assessment{
		Chain:    ch,
		Oddities: &diag.OdditySet{},
	}
	if ch.Server != nil {
		as.ServerNames = ch.Server.ServerNames()
	}

	as.Oddities.Merge(ch.Oddities)

	configured := &diag.OdditySet{}
	var hostnameOddity diag.Oddity

	if profile != nil {
		report, err := a.Verifier.Verify(ctx, scratch, ch, profile.CAFiles)
		if err != nil {
			return nil, err
		}
		as.Trust = report

		for _, o := range report.Configured.List() {
			if o == diag.OddityOutsideValidityPeriod && report.Tier == diag.TrustOK {
				o = diag.OddityOutsideValidityWarn
			}
			configured.Add(o)
		}

		var cns, dns []string
		if ch.Server != nil {
			cns, dns = ch.Server.CommonNames, ch.Server.DNSNames
		}
		as.Hostname = MatchHostnames(profile.ServerNames, cns, dns)
		hostnameOddity = HostnameOddity(as.Hostname)
	}

	if as.Trust != nil && as.Trust.Finding != "" && !suppressed(as.Trust.Finding, ch, configured) {
		as.Oddities.Add(as.Trust.Finding)
	}
	if hostnameOddity != "" {
		as.Oddities.Add(hostnameOddity)
	}
	as.Oddities.Merge(ch.IntermediateOddities)
	as.Oddities.Merge(configured)

	return as, nil
}

// suppressed reports whether a trust finding is a consequence of an
// expired certificate reported elsewhere.
func suppressed(finding diag.Oddity, ch *Chain, configured *diag.OdditySet) bool {
	if finding != diag.OddityTrustRootNotReached && finding != diag.OddityTrustRootOnlyOOB {
		return false
	}
	for _, set := range []*diag.OdditySet{ch.Oddities, ch.IntermediateOddities, configured} {
		if set.Has(diag.OddityOutsideValidityPeriod) {
			return true
		}
	}
	return false
}
