// Package domain contains the core value types of the flow engine: flows,
// nodes, edges, keywords, sessions and inbound messages.
//
// The package is dependency-light on purpose. Engines (graph mutation,
// condition evaluation, routing, trigger matching, layout) live in their own
// packages and operate on these types; adapters persist them.
package domain
