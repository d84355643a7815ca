// Package hook installs and removes typed interceptions over host
// function slots.
//
// # Variants
//
// Five hook flavors cover the observation/interception spectrum:
//
//   - Pre: observes a call's arguments immediately before the original
//     runs. Cannot alter or suppress the call.
//   - Post: observes arguments and results immediately after the
//     original returns.
//   - Intercept: a middleware-style wrapper that decides whether and how
//     to invoke the original. Multiple wraps on one handle chain in
//     registration order (the first registered runs first).
//   - Replace: swaps the slot's function entirely; the saved original
//     stays reachable through Original for optional delegation.
//   - FastReplace: a bare swap with no registry bookkeeping and no
//     reflection, for hot-path dispatch-table slots.
//
// # Identity
//
// Each handle targets at most one slot, and a Set enforces at most one
// active hook per slot across all handles registered with it. Handles
// carry a name used purely for diagnostics; two handles over
// structurally identical signatures remain distinct identities.
//
// # Installation and removal
//
// Install records the slot's current function before patching, so Remove
// restores it exactly. Removing a hook that was never installed is a
// no-op, not an error. Installation is expected to happen before the
// host concurrently executes the targeted path; the package does not
// synchronize against in-flight calls.
package hook
