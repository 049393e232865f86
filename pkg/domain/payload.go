package domain

// Type-specific node payloads. On the wire a node's data is a free-form JSON
// object; these structs are the decoded forms (see flow.DecodeData).

// ConditionType selects how a trigger decides to match.
type ConditionType string

const (
	// ConditionAny matches every inbound message on an assigned channel.
	ConditionAny ConditionType = "any"
	// ConditionExpression evaluates the condition DSL string.
	ConditionExpression ConditionType = "condition"
)

// TriggerData configures the flow entry node.
type TriggerData struct {
	ChannelTypes  []string      `mapstructure:"channelTypes" json:"channelTypes"`
	ConditionType ConditionType `mapstructure:"conditionType" json:"conditionType"`
	Condition     string        `mapstructure:"condition" json:"condition,omitempty"`

	EnableSessionPersistence bool        `mapstructure:"enableSessionPersistence" json:"enableSessionPersistence"`
	SessionTimeout           int         `mapstructure:"sessionTimeout" json:"sessionTimeout,omitempty"`
	SessionTimeoutUnit       TimeoutUnit `mapstructure:"sessionTimeoutUnit" json:"sessionTimeoutUnit,omitempty"`

	HardResetKeyword       string `mapstructure:"hardResetKeyword" json:"hardResetKeyword,omitempty"`
	HardResetCaseSensitive bool   `mapstructure:"hardResetCaseSensitive" json:"hardResetCaseSensitive,omitempty"`
	HardResetConfirmation  string `mapstructure:"hardResetConfirmation" json:"hardResetConfirmation,omitempty"`
}

// MessageData configures a text message node. Keywords drive dynamic output
// routing; an empty list means the node has a single default output.
type MessageData struct {
	Message  string    `mapstructure:"message" json:"message"`
	Keywords []Keyword `mapstructure:"keywords" json:"keywords,omitempty"`
}

// ConditionData configures a condition node (yes/no outputs).
type ConditionData struct {
	Condition string `mapstructure:"condition" json:"condition"`
}

// QuickReplyOption is a single tappable option. The handle id is positional
// (option-<n>) so reordering options rewires routing intentionally.
type QuickReplyOption struct {
	Label string `mapstructure:"label" json:"label"`
}

// QuickReplyData configures a quick-reply node.
type QuickReplyData struct {
	Message  string             `mapstructure:"message" json:"message"`
	Options  []QuickReplyOption `mapstructure:"options" json:"options,omitempty"`
	Keywords []Keyword          `mapstructure:"keywords" json:"keywords,omitempty"`
}

// MediaData configures image, video, audio and document nodes.
type MediaData struct {
	URL      string    `mapstructure:"url" json:"url"`
	Caption  string    `mapstructure:"caption" json:"caption,omitempty"`
	Keywords []Keyword `mapstructure:"keywords" json:"keywords,omitempty"`
}

// WaitData configures a wait node. Duration is a Go duration string.
type WaitData struct {
	Duration string `mapstructure:"duration" json:"duration"`
}

// IntegrationData configures the integrations node.
type IntegrationData struct {
	Provider string         `mapstructure:"provider" json:"provider"`
	Settings map[string]any `mapstructure:"settings" json:"settings,omitempty"`
}
