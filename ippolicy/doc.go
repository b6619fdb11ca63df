// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package ippolicy decides how an application treats IPv4 and IPv6.

The decision happens in two steps. [Detect] enumerates the local
interfaces once and reports which families are present as a
[StackCapability]. [Resolve] combines a requested [PolicyKind] with
the capability into an effective policy and a set of [Predicates].

# Policies

- [ForceV4]: IPv4 only.

- [ForceV6]: IPv6 only.

- [PreferV6]: IPv6, accepting IPv4 through IPv4-mapped IPv6.

- [AnyIsV6]: IPv4, promoting the unspecified address to IPv6.

- [Auto]: request-time only, resolved according to the capability.

Requesting a policy the host cannot honor (e.g., [ForceV6] on an
IPv4-only host) is accepted as is. Failures surface later, where
addresses are actually used.

# Design Documents

This package is experimental and has no design documents for now.
*/
package ippolicy
