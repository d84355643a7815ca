// Package mangle adapts a Mangle Datalog program as a story engine.
//
// The Engine parses and evaluates a Mangle program, publishes its
// predicates as a symbol table, and drives the dispatch layer's event
// entry points from fact mutations and host function calls.
//
// Extensional predicates become database symbols with their own node.
// Rule heads become derived predicates: the visible symbol is a user
// query, and a backing database symbol (name + "__DEF__") carries the
// node that fires when evaluation adds or removes a derived fact.
// Events, calls and queries provided by the embedder are registered
// before loading a program and get function identities of their own.
//
// Every evaluation path runs through a dispatch table of function
// pointers: one table per node type, captured into a resolve.Tables
// cache as types are first constructed, plus a function table for
// calls and events. Binding a dispatcher patches those slots with the
// hook package, so subscriptions observe the engine through the same
// interception machinery a native host would be patched with.
//
// The Engine shares the dispatch layer's threading model: one
// goroutine owns it, and handlers run re-entrantly on that goroutine.
package mangle
