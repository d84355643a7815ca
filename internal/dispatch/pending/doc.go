// Package pending provides the reentrant snapshot pool used during node
// event dispatch.
//
// A handler running inside a dispatch round may register new
// subscriptions, mutating the handler index the round is iterating. The
// pool gives each round a frozen copy of the matching handler ids taken
// at Enter time, so mutations apply starting with the next event, never
// the current round.
//
// Buffers are reused per re-entrancy depth and follow a strict LIFO
// discipline: every Enter must be paired with an Exit of the same
// buffer, and nested rounds must exit innermost-first. Releasing a
// buffer that is not the current top of stack is a dispatcher invariant
// violation and panics. After any fully nested sequence of rounds, the
// pool's depth returns to zero.
//
// Re-entering at a depth the pool has already visited performs no
// allocation beyond growing the reused buffer's backing array to fit.
package pending
