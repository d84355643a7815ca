// Package story defines the shared domain model for observing a rule
// engine's evaluation graph: symbol kinds, trigger phases, packed node
// keys, and the typed argument lists that accompany node events.
//
// # Node Keys
//
// A NodeKey identifies one (node, phase) pair. The base identifier is a
// node or function id; the phase is carried in reserved high bits of the
// packed 64-bit form:
//
//	bit 63  after-trigger (node events)
//	bit 62  delete-trigger (node events)
//	bit 61  before-call (function events)
//	bit 60  after-call (function events)
//
// Base identifiers must stay below MaxBaseID so they can never collide
// with a flag bit. NodeKey is an explicit struct rather than a bare
// uint64 so call sites cannot mix ids and flags by accident; Pack and
// UnpackNodeKey convert at the map boundary.
//
// # Argument Lists
//
// Node events carry a positional argument sequence. The host delivers
// these as a linked list with a sentinel head; Args preserves that shape
// while FromValues and Each give slice-friendly access.
package story
