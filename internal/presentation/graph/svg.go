package graph

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/layout"
)

const (
	cardHeight = 80
	margin     = 40
)

var typeFill = map[domain.NodeType]string{
	domain.NodeTypeTrigger:    "#d1fae5",
	domain.NodeTypeCondition:  "#fef3c7",
	domain.NodeTypeQuickReply: "#e0e7ff",
}

// RenderSVG draws the flow at its current positions. Run the layout engine
// first for a readable picture.
func RenderSVG(w io.Writer, f *domain.Flow) {
	maxX, maxY := 0.0, 0.0
	for _, n := range f.Nodes {
		if n.Position.X > maxX {
			maxX = n.Position.X
		}
		if n.Position.Y > maxY {
			maxY = n.Position.Y
		}
	}

	canvas := svg.New(w)
	canvas.Start(int(maxX)+int(layout.NodeWidth)+2*margin, int(maxY)+cardHeight+2*margin)

	pos := make(map[string]domain.Position, len(f.Nodes))
	for _, n := range f.Nodes {
		pos[n.ID] = n.Position
	}

	// Edges first so cards draw on top.
	for _, e := range f.Edges {
		src, okS := pos[e.Source]
		dst, okT := pos[e.Target]
		if !okS || !okT {
			continue
		}
		canvas.Line(
			margin+int(src.X+layout.NodeWidth/2), margin+int(src.Y)+cardHeight,
			margin+int(dst.X+layout.NodeWidth/2), margin+int(dst.Y),
			"stroke:#94a3b8;stroke-width:2",
		)
		if e.SourceHandle != "" {
			canvas.Text(
				margin+int((src.X+dst.X+layout.NodeWidth)/2), margin+int((src.Y+float64(cardHeight)+dst.Y)/2),
				e.SourceHandle,
				"font-size:10px;fill:#64748b;text-anchor:middle",
			)
		}
	}

	for _, n := range f.Nodes {
		fill, ok := typeFill[n.Type]
		if !ok {
			fill = "#f1f5f9"
		}
		style := fmt.Sprintf("fill:%s;stroke:#334155;stroke-width:1", fill)
		canvas.Roundrect(margin+int(n.Position.X), margin+int(n.Position.Y), int(layout.NodeWidth), cardHeight, 8, 8, style)
		canvas.Text(
			margin+int(n.Position.X+layout.NodeWidth/2), margin+int(n.Position.Y)+28,
			string(n.Type),
			"font-size:14px;font-weight:bold;fill:#0f172a;text-anchor:middle",
		)
		canvas.Text(
			margin+int(n.Position.X+layout.NodeWidth/2), margin+int(n.Position.Y)+50,
			shorten(n.ID, 28),
			"font-size:10px;fill:#64748b;text-anchor:middle",
		)
	}

	canvas.End()
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
