// SPDX-License-Identifier: GPL-3.0-or-later

package netstate

// HasV4Stack returns the HasV4Stack predicate.
func (rt *Runtime) HasV4Stack() bool {
	return rt.Predicates().HasV4Stack
}

// HasV6Stack returns the HasV6Stack predicate.
func (rt *Runtime) HasV6Stack() bool {
	return rt.Predicates().HasV6Stack
}

// ConvertFromV4 returns the ConvertFromV4 predicate.
func (rt *Runtime) ConvertFromV4() bool {
	return rt.Predicates().ConvertFromV4
}

// ConvertFromV6 returns the ConvertFromV6 predicate.
func (rt *Runtime) ConvertFromV6() bool {
	return rt.Predicates().ConvertFromV6
}

// ResolveToV4 returns the ResolveToV4 predicate.
func (rt *Runtime) ResolveToV4() bool {
	return rt.Predicates().ResolveToV4
}

// ResolveToV6 returns the ResolveToV6 predicate.
func (rt *Runtime) ResolveToV6() bool {
	return rt.Predicates().ResolveToV6
}

// ListV4 returns the ListV4 predicate.
func (rt *Runtime) ListV4() bool {
	return rt.Predicates().ListV4
}

// ListV6 returns the ListV6 predicate.
func (rt *Runtime) ListV6() bool {
	return rt.Predicates().ListV6
}

// PromoteAnyToV6 returns the PromoteAnyToV6 predicate.
func (rt *Runtime) PromoteAnyToV6() bool {
	return rt.Predicates().PromoteAnyToV6
}

// WithV4MappedV6 returns the WithV4MappedV6 predicate.
func (rt *Runtime) WithV4MappedV6() bool {
	return rt.Predicates().WithV4MappedV6
}
