package flow

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// DecodeData decodes a node's wire payload into the typed struct for its
// node type. Weak typing tolerates JSON's float64 numbers in integer fields.
func DecodeData(node domain.Node, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(node.Data); err != nil {
		return fmt.Errorf("decode %s data for node %s: %w", node.Type, node.ID, err)
	}
	return nil
}

// TriggerData decodes the payload of a trigger node, applying defaults for
// the condition type and session timeout unit.
func TriggerData(node domain.Node) (domain.TriggerData, error) {
	var data domain.TriggerData
	if err := DecodeData(node, &data); err != nil {
		return domain.TriggerData{}, err
	}
	if data.ConditionType == "" {
		data.ConditionType = domain.ConditionAny
	}
	if data.SessionTimeoutUnit == "" {
		data.SessionTimeoutUnit = domain.TimeoutMinutes
	}
	return data, nil
}

// ConditionData decodes the payload of a condition node.
func ConditionData(node domain.Node) (domain.ConditionData, error) {
	var data domain.ConditionData
	err := DecodeData(node, &data)
	return data, err
}

// MessageData decodes the payload of a message node.
func MessageData(node domain.Node) (domain.MessageData, error) {
	var data domain.MessageData
	err := DecodeData(node, &data)
	return data, err
}

// QuickReplyData decodes the payload of a quick-reply node.
func QuickReplyData(node domain.Node) (domain.QuickReplyData, error) {
	var data domain.QuickReplyData
	err := DecodeData(node, &data)
	return data, err
}

// MediaData decodes the payload of an image, video, audio or document node.
func MediaData(node domain.Node) (domain.MediaData, error) {
	var data domain.MediaData
	err := DecodeData(node, &data)
	return data, err
}

// WaitData decodes the payload of a wait node.
func WaitData(node domain.Node) (domain.WaitData, error) {
	var data domain.WaitData
	err := DecodeData(node, &data)
	return data, err
}

// decodeKeywords extracts the keyword list from a raw data payload. A missing
// field is an empty list, not an error.
func decodeKeywords(data map[string]any) ([]domain.Keyword, error) {
	raw, ok := data[keywordsField]
	if !ok || raw == nil {
		return nil, nil
	}
	if kws, ok := raw.([]domain.Keyword); ok {
		return kws, nil
	}
	var kws []domain.Keyword
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &kws,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return kws, nil
}
