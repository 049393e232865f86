// Package session serializes access to sticky-routing session records.
//
// Two messages from the same contact arriving concurrently must not both
// observe "no session" and double-enter a flow, so every read-modify-write
// for a (contact, flow) pair runs under a per-key mutex. Lock entries are
// reference counted and garbage collected when unused. An optional
// distributed locker extends the guarantee across replicas.
package session
