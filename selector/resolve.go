//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Selection among resolved addresses.
//

package selector

import (
	"context"
	"fmt"
	"net/netip"
)

// ResolvedAddresses resolves hostname using the families allowed by
// the policy. When the policy prefers IPv4-mapped IPv6 addresses and
// does not resolve to IPv4, the A answers are converted to IPv4-mapped
// IPv6 and returned after the native AAAA answers. IP literals are
// returned without querying the DNS when their family is allowed.
func (s *Selector) ResolvedAddresses(ctx context.Context, hostname string) ([]netip.Addr, error) {
	p := s.predicates()
	mapped := p.WithV4MappedV6 && !p.ResolveToV4
	want4 := p.ResolveToV4 || mapped
	want6 := p.ResolveToV6

	addrs, err := s.lookup(ctx, hostname, want4, want6)
	if err != nil {
		return nil, err
	}

	var native, synthesized []netip.Addr
	for _, addr := range addrs {
		switch {
		case addr.Is4() && mapped:
			synthesized = append(synthesized, netip.AddrFrom16(addr.As16()))
		case addr.Is4() && p.ResolveToV4:
			native = append(native, addr)
		case addr.Is6() && want6:
			native = append(native, addr)
		}
	}
	result := append(native, synthesized...)
	if len(result) <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrResolutionEmpty, hostname)
	}
	return result, nil
}

// FirstResolvedAddress returns the textual form of the first address
// returned by [*Selector.ResolvedAddresses] or the empty string.
func (s *Selector) FirstResolvedAddress(ctx context.Context, hostname string) string {
	addrs, err := s.ResolvedAddresses(ctx, hostname)
	if err != nil {
		s.emitSelectEmpty(ctx, "FirstResolvedAddress", err)
		return ""
	}
	return addrs[0].String()
}
