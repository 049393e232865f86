package flow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// duplicateOffset is applied to the position of a duplicated node so the
// clone does not cover the original on the canvas.
const duplicateOffset = 40

// Graph wraps a flow document with its structural mutation operations.
// It is not safe for concurrent use; callers own the flow and its locking.
type Graph struct {
	flow *domain.Flow
}

// New wraps an existing flow.
func New(f *domain.Flow) *Graph {
	return &Graph{flow: f}
}

// NewFlow creates an empty draft flow and its graph.
func NewFlow(name string) *Graph {
	return &Graph{flow: &domain.Flow{
		ID:     uuid.NewString(),
		Name:   name,
		Status: domain.FlowStatusDraft,
	}}
}

// Flow returns the underlying document.
func (g *Graph) Flow() *domain.Flow { return g.flow }

// AddNode appends a node of the given type and returns its id.
// Singleton types fail with domain.ErrSingletonViolation when an instance
// already exists; nothing is mutated on failure.
func (g *Graph) AddNode(t domain.NodeType, pos domain.Position, data map[string]any) (string, error) {
	if !t.Known() {
		return "", fmt.Errorf("add node: unknown type %q", t)
	}
	if t.Singleton() && g.flow.HasNodeType(t) {
		return "", fmt.Errorf("add node %q: %w", t, domain.ErrSingletonViolation)
	}
	node := domain.Node{
		ID:       uuid.NewString(),
		Type:     t,
		Position: pos,
		Data:     data,
	}
	g.flow.Nodes = append(g.flow.Nodes, node)
	g.flow.Version++
	return node.ID, nil
}

// RemoveNode removes the node and every edge touching it. Removing an id
// that does not exist is a no-op.
func (g *Graph) RemoveNode(id string) {
	idx := -1
	for i := range g.flow.Nodes {
		if g.flow.Nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	g.flow.Nodes = append(g.flow.Nodes[:idx], g.flow.Nodes[idx+1:]...)

	kept := g.flow.Edges[:0]
	for _, e := range g.flow.Edges {
		if e.Source == id || e.Target == id {
			continue
		}
		kept = append(kept, e)
	}
	g.flow.Edges = kept
	g.flow.Version++
}

// DuplicateNode clones a node with a fresh id and an offset position. The
// clone becomes the only selected node. Singleton types cannot be duplicated.
func (g *Graph) DuplicateNode(id string) (string, error) {
	src := g.flow.NodeByID(id)
	if src == nil {
		return "", fmt.Errorf("duplicate node %s: %w", id, domain.ErrUnknownNode)
	}
	if src.Type.Singleton() {
		return "", fmt.Errorf("duplicate node %q: %w", src.Type, domain.ErrSingletonViolation)
	}

	clone := domain.Node{
		ID:   uuid.NewString(),
		Type: src.Type,
		Position: domain.Position{
			X: src.Position.X + duplicateOffset,
			Y: src.Position.Y + duplicateOffset,
		},
		Selected: true,
		Data:     deepCopyMap(src.Data),
	}

	for i := range g.flow.Nodes {
		g.flow.Nodes[i].Selected = false
	}
	g.flow.Nodes = append(g.flow.Nodes, clone)
	g.flow.Version++
	return clone.ID, nil
}

// Connect appends an edge between two existing nodes. Single-output source
// handles (condition yes/no) replace any prior edge on the same handle;
// every other handle fans out.
func (g *Graph) Connect(source, sourceHandle, target, targetHandle string) (string, error) {
	srcNode := g.flow.NodeByID(source)
	if srcNode == nil {
		return "", fmt.Errorf("connect: source %s: %w", source, domain.ErrUnknownNode)
	}
	if g.flow.NodeByID(target) == nil {
		return "", fmt.Errorf("connect: target %s: %w", target, domain.ErrUnknownNode)
	}

	if singleOutput(srcNode.Type, sourceHandle) {
		kept := g.flow.Edges[:0]
		for _, e := range g.flow.Edges {
			if e.Source == source && e.SourceHandle == sourceHandle {
				continue
			}
			kept = append(kept, e)
		}
		g.flow.Edges = kept
	}

	edge := domain.Edge{
		ID:           uuid.NewString(),
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
	g.flow.Edges = append(g.flow.Edges, edge)
	g.flow.Version++
	return edge.ID, nil
}

// singleOutput reports whether at most one edge may leave this handle.
func singleOutput(t domain.NodeType, handle string) bool {
	return t == domain.NodeTypeCondition &&
		(handle == domain.HandleYes || handle == domain.HandleNo)
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	case []domain.Keyword:
		out := make([]domain.Keyword, len(tv))
		copy(out, tv)
		return out
	default:
		return v
	}
}
