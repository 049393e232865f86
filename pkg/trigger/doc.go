// Package trigger decides whether an inbound message activates a flow.
//
// Per (contact, flow) pair the engine is a two-state machine: NoSession and
// SessionActive. A fresh match evaluates the trigger node's condition and,
// when session persistence is enabled, opens a session with an idle timeout.
// While the session is active, messages from the same contact on the same
// channel re-enter the flow without re-evaluating the condition and refresh
// the deadline. Expiry is lazy: a stale record observed on the next message
// is deleted and matching starts from scratch. The configured hard-reset
// keyword tears the session down immediately and takes precedence over both
// stickiness and condition evaluation.
//
// All session reads and writes run under the session manager's per-key lock,
// and store failures make matching fail closed.
package trigger
