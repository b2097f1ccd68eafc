// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"slices"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// MatchHostnames compares the expected server names against the common
// names and SAN DNS names of the server certificate.
//
// The verdict is total as soon as one expected name appears in both lists,
// partial if some name appears in one of them, and unhappy otherwise. With
// no expected names there is nothing to compare and the verdict is
// [diag.HostnameNotChecked]. Names compare case-insensitively.
func MatchHostnames(expected, commonNames, dnsNames []string) diag.HostnameVerdict {
	if len(expected) == 0 {
		return diag.HostnameNotChecked
	}

	verdict := diag.HostnameUnhappy
	for _, name := range expected {
		inCN := containsFold(commonNames, name)
		inSAN := containsFold(dnsNames, name)
		switch {
		case inCN && inSAN:
			return diag.HostnameTotal
		case inCN || inSAN:
			verdict = diag.HostnamePartial
		}
	}
	return verdict
}

// HostnameOddity returns the oddity a verdict reports, or "" for none.
func HostnameOddity(v diag.HostnameVerdict) diag.Oddity {
	switch v {
	case diag.HostnameUnhappy:
		return diag.OddityServerNameMismatch
	case diag.HostnamePartial:
		return diag.OddityServerNamePartialMatch
	}
	return ""
}

func containsFold(list []string, name string) bool {
	return slices.ContainsFunc(list, func(s string) bool { return strings.EqualFold(s, name) })
}
