package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

var validate = validator.New()

// Serialize renders the flow document in its wire JSON form.
func Serialize(f *domain.Flow) ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize flow %s: %w", f.ID, err)
	}
	return data, nil
}

// Deserialize parses and validates a flow document. Structural problems
// (missing ids, unknown node types, dangling edges) fail here so downstream
// engines can assume a well-formed graph.
func Deserialize(data []byte) (*domain.Flow, error) {
	var f domain.Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flow document: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the document against its struct tags plus the structural
// invariants that tags cannot express.
func Validate(f *domain.Flow) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("flow document invalid: %w", err)
	}

	// Session keys are "<contactID>:<flowID>" split at the last colon, so a
	// colon inside a flow id would corrupt key parsing.
	if strings.Contains(f.ID, ":") {
		return fmt.Errorf("flow id %q must not contain ':'", f.ID)
	}

	ids := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if !n.Type.Known() {
			return fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id %s", n.ID)
		}
		ids[n.ID] = true
	}

	seen := make(map[domain.NodeType]bool)
	for _, n := range f.Nodes {
		if n.Type.Singleton() {
			if seen[n.Type] {
				return fmt.Errorf("node type %q: %w", n.Type, domain.ErrSingletonViolation)
			}
			seen[n.Type] = true
		}
	}

	for _, e := range f.Edges {
		if !ids[e.Source] {
			return fmt.Errorf("edge %s: source %s: %w", e.ID, e.Source, domain.ErrUnknownNode)
		}
		if !ids[e.Target] {
			return fmt.Errorf("edge %s: target %s: %w", e.ID, e.Target, domain.ErrUnknownNode)
		}
	}
	return nil
}
