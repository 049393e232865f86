// Package ports declares the collaborator interfaces of the engine: session
// and flow persistence, contact attribute lookup, and distributed locking.
//
// Adapters live under pkg/adapters; the reusable contract suites in this
// package let every adapter prove it honors the same semantics.
package ports
