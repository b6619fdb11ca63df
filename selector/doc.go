// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package selector picks representative addresses according to an IP policy.

A [*Selector] consults the [ippolicy.Predicates] of a [PolicySource]
(usually a [*netstate.Runtime]) on every call and combines them with
the live interface list or with fresh DNS answers. Nothing is cached.

# Operations

- [*Selector.FirstLocalAddress]: preferring private, then link-local addresses;

- [*Selector.HostAddresses]: all non-loopback addresses, never empty;

- [*Selector.FirstResolvedAddress]: the first DNS answer allowed by the policy;

- [*Selector.LoopbackAddress] and [*Selector.AnyAddress]: for binding;

- [*Selector.LocalAddressOf] and [*Selector.PeerAddressOf]: for connections.

Selection never fails: callers receive an address, a fallback
loopback address, or the empty string.
*/
package selector
