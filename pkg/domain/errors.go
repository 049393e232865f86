package domain

import "errors"

// ErrUnknownNode is returned when an operation references a node id that does
// not exist in the flow.
var ErrUnknownNode = errors.New("unknown node")

// ErrSingletonViolation is returned when adding or duplicating a node whose
// type allows at most one instance per flow.
var ErrSingletonViolation = errors.New("singleton node type already present")

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrFlowNotFound is returned when a flow id cannot be found in the store.
var ErrFlowNotFound = errors.New("flow not found")

// ErrFlowInactive is returned when trigger matching is attempted against a
// flow whose status is not active.
var ErrFlowInactive = errors.New("flow is not active")
