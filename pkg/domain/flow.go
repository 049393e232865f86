package domain

// FlowStatus is the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft  FlowStatus = "draft"
	FlowStatusActive FlowStatus = "active"
)

// Flow is a saved automation graph. It is the single owner of its nodes and
// edges: no node or edge is shared across flows.
type Flow struct {
	ID      string     `json:"id" validate:"required"`
	Name    string     `json:"name" validate:"required"`
	Status  FlowStatus `json:"status" validate:"required,oneof=draft active"`
	Version int        `json:"version" validate:"gte=0"`

	// Timezone is the IANA zone used by time-based conditions. Empty means UTC.
	Timezone string `json:"timezone,omitempty"`

	// ChannelAssignments lists the channel ids this flow is attached to.
	// Cleared when the flow is set to draft; reactivation does not restore
	// them, assignment is an explicit operation.
	ChannelAssignments []string `json:"channelAssignments,omitempty"`

	Nodes []Node `json:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" validate:"dive"`
}

// SetStatus applies a lifecycle transition. Moving to draft deactivates the
// flow for trigger matching and clears its channel assignments.
func (f *Flow) SetStatus(status FlowStatus) {
	if f.Status == status {
		return
	}
	f.Status = status
	if status == FlowStatusDraft {
		f.ChannelAssignments = nil
	}
}

// Active reports whether the flow participates in trigger matching.
func (f *Flow) Active() bool { return f.Status == FlowStatusActive }

// NodeByID returns the node with the given id, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// NodesByType returns all nodes of the given type, in document order.
func (f *Flow) NodesByType(t NodeType) []Node {
	var out []Node
	for _, n := range f.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// HasNodeType reports whether at least one node of the given type exists.
func (f *Flow) HasNodeType(t NodeType) bool {
	for _, n := range f.Nodes {
		if n.Type == t {
			return true
		}
	}
	return false
}
