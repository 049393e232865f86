package domain

// NodeType identifies the behavior of a node. The set is closed: the engine
// rejects types it does not know about during validation.
type NodeType string

const (
	// NodeTypeTrigger is the entry node matching inbound messages.
	NodeTypeTrigger NodeType = "trigger"
	// NodeTypeMessage sends a text message.
	NodeTypeMessage NodeType = "message"
	// NodeTypeCondition branches on a condition expression (yes/no handles).
	NodeTypeCondition NodeType = "condition"
	// NodeTypeQuickReply sends a message with tappable options (option-<n> handles).
	NodeTypeQuickReply NodeType = "quickreply"

	NodeTypeImage    NodeType = "image"
	NodeTypeVideo    NodeType = "video"
	NodeTypeAudio    NodeType = "audio"
	NodeTypeDocument NodeType = "document"

	// NodeTypeWait pauses the flow for a configured duration.
	NodeTypeWait NodeType = "wait"
	// NodeTypeIntegrations dispatches to external integrations.
	NodeTypeIntegrations NodeType = "integrations"
)

// Well-known handle ids.
const (
	// HandleYes and HandleNo are the two outputs of a condition node.
	// Both are single-output: connecting twice replaces the previous edge.
	HandleYes = "yes"
	HandleNo  = "no"

	// HandleNoMatch is selected when no keyword on the node matches.
	HandleNoMatch = "no-match"

	// KeywordHandlePrefix prefixes the handle derived from a keyword value.
	KeywordHandlePrefix = "keyword-"
)

var knownTypes = map[NodeType]bool{
	NodeTypeTrigger:      true,
	NodeTypeMessage:      true,
	NodeTypeCondition:    true,
	NodeTypeQuickReply:   true,
	NodeTypeImage:        true,
	NodeTypeVideo:        true,
	NodeTypeAudio:        true,
	NodeTypeDocument:     true,
	NodeTypeWait:         true,
	NodeTypeIntegrations: true,
}

// singletonTypes lists node types allowing at most one instance per flow.
var singletonTypes = map[NodeType]bool{
	NodeTypeTrigger:      true,
	NodeTypeIntegrations: true,
}

// Known reports whether t is a member of the closed type set.
func (t NodeType) Known() bool { return knownTypes[t] }

// Singleton reports whether at most one node of this type may exist per flow.
func (t NodeType) Singleton() bool { return singletonTypes[t] }

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed unit of behavior in a flow. Data holds the type-specific
// payload as it appears on the wire; use flow.DecodeData to obtain the typed
// struct for a given node type.
type Node struct {
	ID       string         `json:"id" validate:"required"`
	Type     NodeType       `json:"type" validate:"required"`
	Position Position       `json:"position"`
	Selected bool           `json:"selected,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Edge is a directed connection between a node's output handle and another
// node's input. Animated and EdgeType are presentation attributes carried
// through serialization untouched.
type Edge struct {
	ID           string `json:"id" validate:"required"`
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Animated     bool   `json:"animated,omitempty"`
	EdgeType     string `json:"type,omitempty"`
}
