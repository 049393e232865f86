package flow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// keywordsField is the data key holding a node's keyword list.
const keywordsField = "keywords"

// Keywords returns the decoded keyword list of a node. Nodes without the
// field have no keywords.
func (g *Graph) Keywords(nodeID string) ([]domain.Keyword, error) {
	node := g.flow.NodeByID(nodeID)
	if node == nil {
		return nil, fmt.Errorf("keywords of %s: %w", nodeID, domain.ErrUnknownNode)
	}
	return decodeKeywords(node.Data)
}

// AddKeyword appends a keyword to the node. The handle id is derived from the
// value once and cached on the keyword. A keyword whose normalized value
// collides with an existing one replaces it (last-defined wins).
func (g *Graph) AddKeyword(nodeID, value string, caseSensitive bool) (domain.Keyword, error) {
	node := g.flow.NodeByID(nodeID)
	if node == nil {
		return domain.Keyword{}, fmt.Errorf("add keyword to %s: %w", nodeID, domain.ErrUnknownNode)
	}

	kw := domain.Keyword{
		ID:            uuid.NewString(),
		Value:         value,
		CaseSensitive: caseSensitive,
		HandleID:      domain.KeywordHandleID(value),
	}

	kws, err := decodeKeywords(node.Data)
	if err != nil {
		return domain.Keyword{}, err
	}
	kws = dedupeAppend(kws, kw)
	g.setKeywords(node, kws)
	return kw, nil
}

// UpdateKeyword changes a keyword's value or case flag. The handle id is
// regenerated when the value changes, and edges on the stale handle are
// pruned.
func (g *Graph) UpdateKeyword(nodeID, keywordID, value string, caseSensitive bool) error {
	node := g.flow.NodeByID(nodeID)
	if node == nil {
		return fmt.Errorf("update keyword on %s: %w", nodeID, domain.ErrUnknownNode)
	}
	kws, err := decodeKeywords(node.Data)
	if err != nil {
		return err
	}

	found := false
	for i := range kws {
		if kws[i].ID != keywordID {
			continue
		}
		kws[i].Value = value
		kws[i].CaseSensitive = caseSensitive
		kws[i].HandleID = domain.KeywordHandleID(value)
		found = true
		break
	}
	if !found {
		return fmt.Errorf("keyword %s not found on node %s", keywordID, nodeID)
	}

	g.setKeywords(node, kws)
	return nil
}

// RemoveKeyword deletes a keyword and prunes edges left on its handle.
// Removing an unknown keyword id is a no-op.
func (g *Graph) RemoveKeyword(nodeID, keywordID string) error {
	node := g.flow.NodeByID(nodeID)
	if node == nil {
		return fmt.Errorf("remove keyword from %s: %w", nodeID, domain.ErrUnknownNode)
	}
	kws, err := decodeKeywords(node.Data)
	if err != nil {
		return err
	}

	kept := kws[:0]
	for _, kw := range kws {
		if kw.ID == keywordID {
			continue
		}
		kept = append(kept, kw)
	}
	g.setKeywords(node, kept)
	return nil
}

// setKeywords writes the list back and prunes stale keyword-* edges.
func (g *Graph) setKeywords(node *domain.Node, kws []domain.Keyword) {
	if node.Data == nil {
		node.Data = make(map[string]any)
	}
	node.Data[keywordsField] = kws
	g.pruneKeywordEdges(node.ID, kws)
	g.flow.Version++
}

// pruneKeywordEdges removes every edge from the node whose keyword handle no
// longer corresponds to a live keyword.
func (g *Graph) pruneKeywordEdges(nodeID string, kws []domain.Keyword) {
	live := make(map[string]bool, len(kws))
	for _, kw := range kws {
		live[kw.HandleID] = true
	}

	kept := g.flow.Edges[:0]
	for _, e := range g.flow.Edges {
		if e.Source == nodeID && isKeywordHandle(e.SourceHandle) && !live[e.SourceHandle] {
			continue
		}
		kept = append(kept, e)
	}
	g.flow.Edges = kept
}

func isKeywordHandle(handle string) bool {
	return len(handle) > len(domain.KeywordHandlePrefix) &&
		handle[:len(domain.KeywordHandlePrefix)] == domain.KeywordHandlePrefix
}

// dedupeAppend appends kw, dropping any earlier keyword with the same handle
// id so the newest definition wins and handle ids stay unique per node.
func dedupeAppend(kws []domain.Keyword, kw domain.Keyword) []domain.Keyword {
	kept := kws[:0]
	for _, existing := range kws {
		if existing.HandleID == kw.HandleID {
			continue
		}
		kept = append(kept, existing)
	}
	return append(kept, kw)
}
