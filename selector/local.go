//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Selection among local interface addresses.
//

package selector

import (
	"context"
	"net/netip"
	"strings"

	"github.com/rbmk-project/ipstack/ippolicy"
	"github.com/rbmk-project/ipstack/netipx"
)

// listFamily returns the family selected by the ListV6 predicate.
func listFamily(p ippolicy.Predicates) netipx.Family {
	if p.ListV6 {
		return netipx.FamilyV6
	}
	return netipx.FamilyV4
}

// admits returns whether the policy lists addresses of this family.
func admits(p ippolicy.Predicates, addr netipx.Address) bool {
	switch addr.Family {
	case netipx.FamilyV4:
		return p.ListV4
	case netipx.FamilyV6:
		return p.ListV6
	default:
		return false
	}
}

// listLocal enumerates the local addresses admitted by the policy.
// Enumeration failures yield an empty list.
func (s *Selector) listLocal(ctx context.Context, operation string) []netipx.Address {
	all, err := s.enumerator().Enumerate(ctx)
	if err != nil {
		s.emitSelectEmpty(ctx, operation, err)
		return nil
	}
	p := s.predicates()
	var addrs []netipx.Address
	for _, addr := range all {
		if admits(p, addr) {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// FirstLocalAddress returns the first private address, or the
// first link-local address, or the first address of any scope.
// The boolean is false when there are no addresses at all.
func (s *Selector) FirstLocalAddress(ctx context.Context) (netipx.Address, bool) {
	addrs := s.listLocal(ctx, "FirstLocalAddress")
	for _, scope := range []netipx.Scope{netipx.ScopeLocal, netipx.ScopeLocallyAssigned} {
		for _, addr := range addrs {
			if addr.Scope == scope {
				return addr, true
			}
		}
	}
	if len(addrs) > 0 {
		return addrs[0], true
	}
	s.emitSelectEmpty(ctx, "FirstLocalAddress", ErrResolutionEmpty)
	return netipx.Address{}, false
}

// HostAddresses returns the non-loopback local addresses. When
// there are none, it returns the loopback address of the family
// selected by the policy, so the result is never empty.
func (s *Selector) HostAddresses(ctx context.Context) []netipx.Address {
	var addrs []netipx.Address
	for _, addr := range s.listLocal(ctx, "HostAddresses") {
		if addr.Scope != netipx.ScopeLoopback {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) <= 0 {
		s.emitSelectEmpty(ctx, "HostAddresses", ErrResolutionEmpty)
		loopback, _ := netipx.NewAddress(netipx.Loopback(listFamily(s.predicates())))
		addrs = append(addrs, loopback)
	}
	return addrs
}

// HostAddressesString is like [*Selector.HostAddresses] but joins
// the textual addresses using sep.
func (s *Selector) HostAddressesString(ctx context.Context, sep string) string {
	var texts []string
	for _, addr := range s.HostAddresses(ctx) {
		texts = append(texts, addr.Text)
	}
	return strings.Join(texts, sep)
}

// IsLocalInterface returns whether ip, optionally bracketed, is one
// of the local addresses, regardless of family, scope, and policy.
func (s *Selector) IsLocalInterface(ctx context.Context, ip string) bool {
	want, err := netip.ParseAddr(netipx.TrimBrackets(ip))
	if err != nil {
		return false
	}
	want = want.Unmap().WithZone("")
	all, err := s.enumerator().Enumerate(ctx)
	if err != nil {
		s.emitSelectEmpty(ctx, "IsLocalInterface", err)
		return false
	}
	for _, addr := range all {
		if addr.IP.Unmap() == want {
			return true
		}
	}
	return false
}

// LoopbackAddress returns the loopback address of the family selected
// by the policy. When withBrackets is true and the family is IPv6,
// the address is bracketed for use in host:port strings.
func (s *Selector) LoopbackAddress(withBrackets bool) string {
	family := listFamily(s.predicates())
	text := netipx.Loopback(family).String()
	if withBrackets && family == netipx.FamilyV6 {
		return "[" + text + "]"
	}
	return text
}

// AnyAddress returns the unspecified address to bind to: "::" when
// the policy lists IPv6 or promotes the any address, else "0.0.0.0".
func (s *Selector) AnyAddress() string {
	p := s.predicates()
	if p.ListV6 || p.PromoteAnyToV6 {
		return netipx.Unspecified(netipx.FamilyV6).String()
	}
	return netipx.Unspecified(netipx.FamilyV4).String()
}

// BracketIfV6 calls [netipx.BracketIfV6].
func (s *Selector) BracketIfV6(text string) string {
	return netipx.BracketIfV6(text)
}
