// Package router derives which output handle of a node an inbound message
// text selects, based on the node's ordered keyword list.
package router

import (
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

// Route is the selected output of a node.
type Route struct {
	// HandleID is the output handle to follow (keyword-<slug> or no-match).
	HandleID string
	// Keyword is the matched keyword, nil when the fallback was selected.
	Keyword *domain.Keyword
}

// Matched reports whether a keyword (not the fallback) was selected.
func (r Route) Matched() bool { return r.Keyword != nil }

// Select tests keywords against the message text in their defined order and
// returns the first match. Order is user-significant: an earlier short
// keyword beats a later, longer one. Matching is containment, folded per
// each keyword's own case flag. No match selects the no-match handle.
func Select(keywords []domain.Keyword, text string) Route {
	for i := range keywords {
		if keywords[i].Matches(text) {
			return Route{HandleID: keywords[i].HandleID, Keyword: &keywords[i]}
		}
	}
	return Route{HandleID: domain.HandleNoMatch}
}

// SelectForNode decodes the node's keyword list and routes the message text
// through it. Nodes without keywords always select the fallback.
func SelectForNode(g *flow.Graph, nodeID, text string) (Route, error) {
	kws, err := g.Keywords(nodeID)
	if err != nil {
		return Route{}, err
	}
	return Select(kws, text), nil
}
