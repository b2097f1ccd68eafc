// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package diag

import "strings"

// Profile holds the administrator-supplied attributes of a network-login
// profile that the diagnostics consult.
type Profile struct {
	// Realm is the realm the profile is configured for.
	Realm string `json:"realm" yaml:"realm"`

	// AnonymousOuter enables the anonymous outer identity below.
	AnonymousOuter bool `json:"anonymousOuter" yaml:"anonymousOuter"`
	// AnonymousLocalPart is the local part used in the outer identity.
	AnonymousLocalPart string `json:"anonymousLocalPart" yaml:"anonymousLocalPart"`

	// CheckUserOuter enables the explicit outer local part for realm checks.
	CheckUserOuter bool `json:"checkUserOuter" yaml:"checkUserOuter"`
	// CheckUserValue overrides every other outer local part when enabled.
	CheckUserValue string `json:"checkUserValue" yaml:"checkUserValue"`

	// CAFiles are the configured trust anchors and intermediates, each PEM,
	// DER or PKCS7 encoded.
	CAFiles [][]byte `json:"-" yaml:"-"`

	// ServerNames are the names the EAP server certificate is expected to carry.
	ServerNames []string `json:"serverNames" yaml:"serverNames"`
}

// MatchesRealm reports whether the profile is configured for realm.
func (p *Profile) MatchesRealm(realm string) bool {
	return p != nil && p.Realm != "" && strings.EqualFold(p.Realm, realm)
}
