//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Stack capability detection.
//

package ippolicy

import (
	"context"

	"github.com/rbmk-project/ipstack/netipx"
)

// StackCapability tells which address families the host has.
type StackCapability struct {
	HasV4 bool
	HasV6 bool
}

// String implements [fmt.Stringer].
func (c StackCapability) String() string {
	switch {
	case c.HasV4 && c.HasV6:
		return "dual"
	case c.HasV4:
		return "ipv4"
	case c.HasV6:
		return "ipv6"
	default:
		return "none"
	}
}

// Enumerator is the interface listing primitive used by [Detect].
//
// The [*ifaddrs.Enumerator] type implements this interface.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]netipx.Address, error)
}

// CapabilityOf classifies addrs by family. Loopback
// addresses count, because they prove the stack exists.
func CapabilityOf(addrs []netipx.Address) StackCapability {
	var capa StackCapability
	for _, addr := range addrs {
		switch addr.Family {
		case netipx.FamilyV4:
			capa.HasV4 = true
		case netipx.FamilyV6:
			capa.HasV6 = true
		}
	}
	return capa
}

// Detect enumerates the local interfaces once and returns
// the [StackCapability]. Detection does not depend on any
// policy. When enumeration fails, Detect returns the empty
// capability along with the error, which callers should treat
// as a warning rather than a fatal condition.
func Detect(ctx context.Context, enumerator Enumerator) (StackCapability, error) {
	addrs, err := enumerator.Enumerate(ctx)
	if err != nil {
		return StackCapability{}, err
	}
	return CapabilityOf(addrs), nil
}
