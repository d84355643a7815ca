// Package resolve locates host function addresses and per-kind dispatch
// tables in an image that publishes no symbols for them.
//
// # Strategy
//
// Fixed offsets break across host builds, so probes anchor on a known
// exported entry point and scan a bounded window of surrounding bytes
// for recognizable instruction patterns, then extract call-site or
// jump-site operands to recover the real targets. If a target address
// already redirects through a trampoline (anti-tamper, or another
// agent's hook), FollowJumps walks the chain to the true entry point so
// a patch never lands on someone else's hook.
//
// # Lifecycle
//
// Resolution runs at most once per process: the Resolver memoizes both
// success and failure per symbol and never re-attempts a probe. A
// failed symbol disables only the features that depend on it — callers
// gate on Capability instead of assuming success — and is reported
// through the resolver's logger.
//
// Per-kind dispatch tables cannot be scanned for directly; they are
// captured by observing one constructed instance of each kind and
// reading its leading table pointer. Tables caches those observations
// and reports completeness.
package resolve
