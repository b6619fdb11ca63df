// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package ifaddrs enumerates the addresses of the local network interfaces.

This package is designed to be the single place where an application
asks the operating system which addresses it owns, emitting structured
events via the [log/slog] package.

# Features

- Enumeration through [github.com/wlynxg/anet], which also works on
Android where [net.InterfaceAddrs] is forbidden;

- Classification of each address by [netipx.Family] and [netipx.Scope].

Results are never cached: each call reflects the live system state.
*/
package ifaddrs
