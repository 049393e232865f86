// Package graph renders a flow for humans: a Mermaid flowchart or an SVG of
// the auto-arranged layout.
package graph

import (
	"fmt"
	"strings"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart (graph TD) from a flow.
// It applies semantic styling:
// - Trigger: ((Circle))
// - Condition: {Diamond}
// - Quick reply: [/Parallelogram/]
// - Default: [Rectangle]
func GenerateMermaid(f *domain.Flow) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range f.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeTrigger:
			opener, closer = "((", "))"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		case domain.NodeTypeQuickReply:
			opener, closer = "[/", "/]"
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, node.Type, closer))
	}

	for _, e := range f.Edges {
		arrow := "-->"
		if e.SourceHandle != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(e.SourceHandle, "\"", "'"))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target)))
	}

	return sb.String()
}

// sanitizeMermaidID keeps node ids safe for Mermaid syntax.
func sanitizeMermaidID(id string) string {
	replacer := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	return replacer.Replace(id)
}
