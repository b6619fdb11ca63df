//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Policy resolution and derived predicates.
//

package ippolicy

// Predicates are the booleans derived from the effective
// policy and the stack capability.
//
// Construct using [Resolve] or [NewPredicates].
type Predicates struct {
	// HasV4Stack is copied from the capability.
	HasV4Stack bool

	// HasV6Stack is copied from the capability.
	HasV6Stack bool

	// ConvertFromV4 tells whether IPv4 text is accepted.
	ConvertFromV4 bool

	// ConvertFromV6 tells whether IPv6 text is accepted.
	ConvertFromV6 bool

	// ResolveToV4 tells whether to ask the resolver for IPv4.
	ResolveToV4 bool

	// ResolveToV6 tells whether to ask the resolver for IPv6.
	ResolveToV6 bool

	// ListV4 tells whether to list local IPv4 addresses.
	ListV4 bool

	// ListV6 tells whether to list local IPv6 addresses.
	ListV6 bool

	// PromoteAnyToV6 tells whether to listen on :: rather than 0.0.0.0.
	PromoteAnyToV6 bool

	// WithV4MappedV6 tells whether IPv4 travels as IPv4-mapped IPv6.
	WithV4MappedV6 bool
}

// Map returns the predicates keyed by name.
func (p Predicates) Map() map[string]bool {
	return map[string]bool{
		"hasV4Stack":     p.HasV4Stack,
		"hasV6Stack":     p.HasV6Stack,
		"convertFromV4":  p.ConvertFromV4,
		"convertFromV6":  p.ConvertFromV6,
		"resolveToV4":    p.ResolveToV4,
		"resolveToV6":    p.ResolveToV6,
		"listV4":         p.ListV4,
		"listV6":         p.ListV6,
		"promoteAnyToV6": p.PromoteAnyToV6,
		"withV4MappedV6": p.WithV4MappedV6,
	}
}

// EffectivePolicy returns the policy to use given the requested one.
//
// Any policy other than [Auto] is returned verbatim, without
// validating it against the capability. [Auto] becomes [PreferV6]
// with both families, [ForceV6] with IPv6 only, [ForceV4] otherwise.
// Unknown values are treated like [Auto].
func EffectivePolicy(requested PolicyKind, capa StackCapability) PolicyKind {
	if requested.IsEffective() {
		return requested
	}
	switch {
	case capa.HasV4 && capa.HasV6:
		return PreferV6
	case capa.HasV6:
		return ForceV6
	default:
		return ForceV4
	}
}

// NewPredicates computes the [Predicates] of an effective policy.
//
// This function is pure: identical inputs yield identical results.
func NewPredicates(effective PolicyKind, capa StackCapability, mode ResolveMode) Predicates {
	p := Predicates{
		HasV4Stack:     capa.HasV4,
		HasV6Stack:     capa.HasV6,
		ConvertFromV4:  effective == ForceV4 || effective == AnyIsV6 || effective == PreferV6,
		ConvertFromV6:  effective == AnyIsV6 || effective == PreferV6 || effective == ForceV6,
		ResolveToV6:    effective == PreferV6 || effective == ForceV6,
		ListV4:         effective == ForceV4 || effective == AnyIsV6,
		ListV6:         effective == PreferV6 || effective == ForceV6,
		PromoteAnyToV6: capa.HasV6 && effective == AnyIsV6,
		WithV4MappedV6: effective == AnyIsV6 || effective == PreferV6,
	}
	switch mode {
	case ResolveAcceptV4Mapped:
		p.ResolveToV4 = effective == ForceV4 || p.WithV4MappedV6
	default:
		p.ResolveToV4 = effective == ForceV4 || effective == AnyIsV6
	}
	return p
}

// Resolve returns the effective policy and its [Predicates].
func Resolve(requested PolicyKind, capa StackCapability, mode ResolveMode) (PolicyKind, Predicates) {
	effective := EffectivePolicy(requested, capa)
	return effective, NewPredicates(effective, capa, mode)
}
