// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netstate holds the network policy state of a process.

Construct a [*Runtime] with [NewRuntime] at startup, call [*Runtime.Init]
once, and pass the runtime to every component that needs to know which
address families to use. The capability detection and the policy
resolution run once, then every reader loads the same immutable
[*Snapshot] without locking. Use [*Runtime.Reinit] to re-detect the
capability at runtime: readers observe either the old or the new
snapshot, never a mix of them.

The runtime also owns mutable tunables (idle timeout, poll delay), the
endpoint-id counter, the critical-error sink, the error context stack,
and the teardown hooks of auxiliary components.
*/
package netstate
