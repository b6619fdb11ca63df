// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netipx contains [net/netip] extensions for reasoning about
IPv4 and IPv6 address families.

# Features

- [Family] and [FamilyOf] to classify addresses;

- [Address] and [Scope] to describe enumerated or resolved addresses;

- [Converter] for portable text/binary conversion, see [DefaultConverter];

- [BracketIfV6] and [Loopback] for composing host:port strings.
*/
package netipx

import (
	"net"
	"net/netip"

	"github.com/rbmk-project/common/runtimex"
)

// Family is an IP address family.
//
// The zero value is [FamilyUnknown].
type Family int

const (
	// FamilyUnknown is the family of invalid addresses.
	FamilyUnknown Family = iota

	// FamilyV4 is the IPv4 address family.
	FamilyV4

	// FamilyV6 is the IPv6 address family.
	FamilyV6
)

// String implements [fmt.Stringer].
func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// FamilyOf returns the family of addr. IPv4-mapped IPv6 addresses
// belong to [FamilyV6] because that is how they travel on the wire.
func FamilyOf(addr netip.Addr) Family {
	switch {
	case addr.Is4():
		return FamilyV4
	case addr.Is6():
		return FamilyV6
	default:
		return FamilyUnknown
	}
}

var (
	loopbackV4 = runtimex.Try1(netip.ParseAddr("127.0.0.1"))
	loopbackV6 = netip.IPv6Loopback()
)

// Loopback returns the loopback address of the given family. Any
// value other than [FamilyV6] yields the IPv4 loopback.
func Loopback(family Family) netip.Addr {
	if family == FamilyV6 {
		return loopbackV6
	}
	return loopbackV4
}

// Unspecified returns the unspecified (any) address of the given
// family. Any value other than [FamilyV6] yields 0.0.0.0.
func Unspecified(family Family) netip.Addr {
	if family == FamilyV6 {
		return netip.IPv6Unspecified()
	}
	return netip.IPv4Unspecified()
}

// AddrPortOf converts a [net.Addr] to a [netip.AddrPort].
//
// The boolean is false when the input is nil, a typed nil, or neither
// a [*net.TCPAddr] nor a [*net.UDPAddr], in which case the returned
// value is the zero [netip.AddrPort].
//
// IPv4-mapped IPv6 addresses are unmapped, so that a dual-stack
// socket accepting an IPv4 peer reports the IPv4 address.
func AddrPortOf(addr net.Addr) (netip.AddrPort, bool) {
	var ap netip.AddrPort
	switch v := addr.(type) {
	case *net.TCPAddr:
		if v == nil {
			return netip.AddrPort{}, false
		}
		ap = v.AddrPort()
	case *net.UDPAddr:
		if v == nil {
			return netip.AddrPort{}, false
		}
		ap = v.AddrPort()
	default:
		return netip.AddrPort{}, false
	}
	if !ap.Addr().IsValid() {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), true
}
