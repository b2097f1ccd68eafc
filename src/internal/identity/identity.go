// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package identity derives the inner and outer EAP identities of a login
// attempt from the tested realm and the profile settings.
package identity

import (
	"errors"
	"strings"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// ErrIncompleteData indicates that no realm could be derived for the outer identity.
var ErrIncompleteData = errors.New("identity: no realm derivable for outer identity")

// Input is what a login attempt knows about its identities.
type Input struct {
	// Profile may be nil when the realm is tested without a profile.
	Profile *diag.Profile
	// TestedRealm is the realm under test.
	TestedRealm string
	// Inner is the inner (real) identity.
	Inner string
	// Outer is an optional explicit outer identity or realm fragment.
	Outer string
}

// Identities is the resolved pair handed to the supplicant configuration.
type Identities struct {
	Inner string
	Outer string
}

// OuterLocalPart returns the best local part for the outer identity.
//
// An enabled check-realm override wins, even when its value is empty, then
// the anonymous outer value of a profile configured for the tested realm,
// then everything before the last "@" of the inner identity. An inner
// identity without a realm never leaks into the outer identity.
func OuterLocalPart(in Input) string {
	p := in.Profile
	switch {
	case p != nil && p.CheckUserOuter:
		return p.CheckUserValue
	case p != nil && p.AnonymousOuter && p.AnonymousLocalPart != "" && p.MatchesRealm(in.TestedRealm):
		return p.AnonymousLocalPart
	}

	if i := strings.LastIndex(in.Inner, "@"); i >= 0 {
		return in.Inner[:i]
	}
	return ""
}

// Resolve returns the identities of a login attempt or [ErrIncompleteData].
func Resolve(in Input) (Identities, error) {
	ids := Identities{Inner: in.Inner}

	if strings.Contains(in.Outer, "@") {
		ids.Outer = in.Outer
		return ids, nil
	}

	local := OuterLocalPart(in)

	switch {
	case in.Outer != "":
		ids.Outer = local + "@" + in.Outer
	case strings.Contains(in.Inner, "@"):
		ids.Outer = local + in.Inner[strings.LastIndex(in.Inner, "@"):]
	case in.Profile != nil && in.Profile.Realm != "":
		ids.Outer = local + "@" + in.Profile.Realm
	default:
		return Identities{}, ErrIncompleteData
	}

	return ids, nil
}
