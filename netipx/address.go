// SPDX-License-Identifier: GPL-3.0-or-later

package netipx

import (
	"net/netip"
	"strings"
)

// Scope classifies an address by how far it reaches.
type Scope int

const (
	// ScopeRemote is a globally routable address.
	ScopeRemote Scope = iota

	// ScopeLocal is a private address (RFC 1918, RFC 4193).
	ScopeLocal

	// ScopeLocallyAssigned is a link-local, self-assigned
	// address (169.254.0.0/16, fe80::/10).
	ScopeLocallyAssigned

	// ScopeLoopback is a loopback address.
	ScopeLoopback
)

// String implements [fmt.Stringer].
func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeLocallyAssigned:
		return "locally-assigned"
	case ScopeLoopback:
		return "loopback"
	default:
		return "remote"
	}
}

// ClassifyScope returns the [Scope] of addr.
func ClassifyScope(addr netip.Addr) Scope {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback():
		return ScopeLoopback
	case addr.IsLinkLocalUnicast():
		return ScopeLocallyAssigned
	case addr.IsPrivate():
		return ScopeLocal
	default:
		return ScopeRemote
	}
}

// Address is an enumerated or resolved IP address.
//
// Construct using [NewAddress]. Values are never mutated
// after construction; Raw is owned by the Address.
type Address struct {
	// Family is the address family.
	Family Family

	// IP is the parsed address without zone.
	IP netip.Addr

	// Raw is the network byte order representation
	// (4 bytes for IPv4, 16 bytes for IPv6).
	Raw []byte

	// Scope is the address scope.
	Scope Scope

	// Text is the textual representation.
	Text string
}

// NewAddress constructs an [Address] from addr. The zone, if any,
// is dropped. The boolean is false if addr is not valid.
func NewAddress(addr netip.Addr) (Address, bool) {
	if !addr.IsValid() {
		return Address{}, false
	}
	addr = addr.WithZone("")
	return Address{
		Family: FamilyOf(addr),
		IP:     addr,
		Raw:    addr.AsSlice(),
		Scope:  ClassifyScope(addr),
		Text:   addr.String(),
	}, true
}

// IsZero returns whether this is the zero [Address].
func (a Address) IsZero() bool {
	return !a.IP.IsValid()
}

// BracketIfV6 returns the canonical form of text wrapped in square
// brackets when it parses as an IPv6 address, so that it can be used
// as the host part of a host:port string. Otherwise, including when
// text is already bracketed or does not parse, text is returned unchanged.
func BracketIfV6(text string) string {
	addr, err := netip.ParseAddr(text)
	if err != nil || !addr.Is6() {
		return text
	}
	return "[" + addr.String() + "]"
}

// TrimBrackets removes the square brackets added by [BracketIfV6].
func TrimBrackets(text string) string {
	if len(text) >= 2 && strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return text[1 : len(text)-1]
	}
	return text
}
