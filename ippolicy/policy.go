//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of PolicyKind.
//

package ippolicy

import (
	"fmt"
	"strings"
)

// PolicyKind is an IP policy.
//
// The zero value is [ForceV4].
type PolicyKind int

const (
	// ForceV4 only uses IPv4.
	ForceV4 PolicyKind = iota

	// ForceV6 only uses IPv6.
	ForceV6

	// PreferV6 uses IPv6 and carries IPv4 as IPv4-mapped IPv6.
	PreferV6

	// AnyIsV6 uses IPv4 but promotes the any address to IPv6.
	AnyIsV6

	// Auto selects a policy according to the [StackCapability].
	Auto
)

// policyNames maps each [PolicyKind] to its text form.
var policyNames = map[PolicyKind]string{
	ForceV4:  "force-v4",
	ForceV6:  "force-v6",
	PreferV6: "prefer-v6",
	AnyIsV6:  "any-is-v6",
	Auto:     "auto",
}

// String implements [fmt.Stringer].
func (p PolicyKind) String() string {
	if name, found := policyNames[p]; found {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// IsEffective returns whether p is a policy that [Resolve] may
// return, i.e., a known policy other than [Auto].
func (p PolicyKind) IsEffective() bool {
	switch p {
	case ForceV4, ForceV6, PreferV6, AnyIsV6:
		return true
	default:
		return false
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (p PolicyKind) MarshalText() ([]byte, error) {
	name, found := policyNames[p]
	if !found {
		return nil, fmt.Errorf("ippolicy: unknown policy %d", int(p))
	}
	return []byte(name), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
//
// Matching is case insensitive and also accepts the
// names without dashes (e.g., "preferv6").
func (p *PolicyKind) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, name := range policyNames {
		if value == name || value == strings.ReplaceAll(name, "-", "") {
			*p = kind
			return nil
		}
	}
	return fmt.Errorf("ippolicy: unknown policy %q", string(text))
}

// ResolveMode selects how [Predicates].ResolveToV4 is computed.
//
// The zero value is [ResolveSelective].
type ResolveMode int

const (
	// ResolveSelective asks the resolver for IPv4 only under
	// [ForceV4] and [AnyIsV6].
	ResolveSelective ResolveMode = iota

	// ResolveAcceptV4Mapped also asks for IPv4 whenever the policy
	// carries IPv4 as IPv4-mapped IPv6. Use it with resolvers that
	// cannot synthesize IPv4-mapped answers.
	ResolveAcceptV4Mapped
)

// String implements [fmt.Stringer].
func (m ResolveMode) String() string {
	if m == ResolveAcceptV4Mapped {
		return "v4mapped"
	}
	return "selective"
}

// MarshalText implements [encoding.TextMarshaler].
func (m ResolveMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (m *ResolveMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "selective":
		*m = ResolveSelective
	case "v4mapped", "v4-mapped":
		*m = ResolveAcceptV4Mapped
	default:
		return fmt.Errorf("ippolicy: unknown resolve mode %q", string(text))
	}
	return nil
}
