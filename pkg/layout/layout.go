// Package layout computes non-overlapping hierarchical positions for a flow
// graph: longest-path leveling from the root nodes, bounded barycenter
// passes to reduce edge crossings, and fixed-grid positioning.
//
// Arrange is a pure function of the graph structure: the same nodes and
// edges always produce the same positions. Cycles are tolerated by ignoring
// back-edges for leveling only; the edges themselves stay in the document.
package layout

import (
	"sort"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// Grid constants. Node width matches the canvas card size; the gutter keeps
// x-ranges on one level from overlapping.
const (
	NodeWidth = 240.0
	GutterX   = 60.0
	RowHeight = 160.0

	// barycenterPasses bounds the crossing-reduction refinement.
	barycenterPasses = 4

	// maxRefineNodes skips refinement on pathological graphs; leveling and
	// positioning still run.
	maxRefineNodes = 5000
)

// Diagnostic reports a recovered problem (a broken cycle edge, a self-loop).
type Diagnostic struct {
	Source string
	Target string
	Detail string
}

// Result carries the new position for every node plus diagnostics.
type Result struct {
	Positions   map[string]domain.Position
	Diagnostics []Diagnostic
}

type edge struct{ source, target string }

// Arrange computes positions for every node of the flow. The flow itself is
// not mutated; callers apply Result.Positions when saving.
func Arrange(f *domain.Flow) Result {
	res := Result{Positions: make(map[string]domain.Position, len(f.Nodes))}
	if len(f.Nodes) == 0 {
		return res
	}

	ids := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	edges := dedupeEdges(f.Edges, ids, &res)

	// Roots before cycle breaking: in-degree zero on the original edges.
	indeg := make(map[string]int, len(ids))
	for _, e := range edges {
		indeg[e.target]++
	}
	var roots []string
	for _, id := range ids {
		if indeg[id] == 0 {
			roots = append(roots, id)
		}
	}

	acyclic := breakCycles(ids, edges, &res)

	// Nodes unreachable from any original root form the disconnected part,
	// leveled independently and placed below the main tree.
	reachable := reach(roots, acyclic)
	var main, detached []string
	for _, id := range ids {
		if reachable[id] {
			main = append(main, id)
		} else {
			detached = append(detached, id)
		}
	}

	levels := make(map[string]int, len(ids))
	maxMain := levelSubgraph(main, acyclic, levels, 0)
	offset := 0
	if len(main) > 0 {
		offset = maxMain + 1
	}
	levelSubgraph(detached, acyclic, levels, offset)

	order := orderWithinLevels(ids, acyclic, levels)

	for level, row := range order {
		for slot, id := range row {
			res.Positions[id] = domain.Position{
				X: float64(slot) * (NodeWidth + GutterX),
				Y: float64(level) * RowHeight,
			}
		}
	}
	return res
}

// Apply writes arranged positions back onto the flow.
func Apply(f *domain.Flow, res Result) {
	for i := range f.Nodes {
		if pos, ok := res.Positions[f.Nodes[i].ID]; ok {
			f.Nodes[i].Position = pos
		}
	}
}

// dedupeEdges drops duplicate (source, target) pairs, self-loops, and edges
// referencing missing nodes, all irrelevant for leveling.
func dedupeEdges(in []domain.Edge, ids []string, res *Result) []edge {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	seen := make(map[edge]bool, len(in))
	var out []edge
	for _, e := range in {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		if e.Source == e.Target {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Source: e.Source, Target: e.Target, Detail: "self-loop ignored for leveling",
			})
			continue
		}
		pair := edge{e.Source, e.Target}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].source != out[j].source {
			return out[i].source < out[j].source
		}
		return out[i].target < out[j].target
	})
	return out
}

// breakCycles returns an acyclic edge subset. While a topological sort gets
// stuck, the edge with the smallest (source, target) ordering among the
// stuck nodes is dropped and reported; the flow document keeps the edge.
func breakCycles(ids []string, edges []edge, res *Result) []edge {
	current := edges
	for {
		stuck := kahnStuck(ids, current)
		if len(stuck) == 0 {
			return current
		}

		// current is sorted, so the first qualifying edge is the smallest.
		removed := false
		kept := make([]edge, 0, len(current))
		for _, e := range current {
			if !removed && stuck[e.source] && stuck[e.target] {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Source: e.source, Target: e.target, Detail: "cycle broken for leveling",
				})
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		if !removed {
			return kept
		}
		current = kept
	}
}

// kahnStuck returns the set of nodes a topological sort cannot process, or
// empty when the graph is already acyclic.
func kahnStuck(ids []string, edges []edge) map[string]bool {
	indeg := make(map[string]int, len(ids))
	out := make(map[string][]string, len(ids))
	for _, e := range edges {
		indeg[e.target]++
		out[e.source] = append(out[e.source], e.target)
	}

	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range out[id] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed == len(ids) {
		return nil
	}
	stuck := make(map[string]bool)
	for _, id := range ids {
		if indeg[id] > 0 {
			stuck[id] = true
		}
	}
	return stuck
}

func reach(roots []string, edges []edge) map[string]bool {
	out := make(map[string][]string)
	for _, e := range edges {
		out[e.source] = append(out[e.source], e.target)
	}
	seen := make(map[string]bool, len(roots))
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, out[id]...)
	}
	return seen
}

// levelSubgraph assigns longest-path levels (max distance from any root of
// the subgraph) plus the given offset. Returns the maximum level assigned,
// or -1 for an empty subgraph.
func levelSubgraph(ids []string, edges []edge, levels map[string]int, offset int) int {
	if len(ids) == 0 {
		return -1
	}
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}

	indeg := make(map[string]int, len(ids))
	out := make(map[string][]string, len(ids))
	for _, e := range edges {
		if !member[e.source] || !member[e.target] {
			continue
		}
		indeg[e.target]++
		out[e.source] = append(out[e.source], e.target)
	}

	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		levels[id] = offset
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	maxLevel := offset
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if levels[id]+1 > levels[next] {
				levels[next] = levels[id] + 1
				if levels[next] > maxLevel {
					maxLevel = levels[next]
				}
			}
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return maxLevel
}

// orderWithinLevels assigns each node a slot on its level. Initial order is
// lexicographic; bounded barycenter passes then pull children under the mean
// slot of their parents to approximately reduce crossings.
func orderWithinLevels(ids []string, edges []edge, levels map[string]int) [][]string {
	maxLevel := 0
	for _, id := range ids {
		if levels[id] > maxLevel {
			maxLevel = levels[id]
		}
	}

	rows := make([][]string, maxLevel+1)
	for _, id := range ids {
		rows[levels[id]] = append(rows[levels[id]], id)
	}
	for _, row := range rows {
		sort.Strings(row)
	}

	if len(ids) > maxRefineNodes {
		return rows
	}

	parents := make(map[string][]string)
	for _, e := range edges {
		if levels[e.source] < levels[e.target] {
			parents[e.target] = append(parents[e.target], e.source)
		}
	}

	slot := make(map[string]int, len(ids))
	for pass := 0; pass < barycenterPasses; pass++ {
		for _, row := range rows {
			for i, id := range row {
				slot[id] = i
			}
		}
		for level := 1; level <= maxLevel; level++ {
			row := rows[level]
			key := make(map[string]float64, len(row))
			for i, id := range row {
				ps := parents[id]
				if len(ps) == 0 {
					key[id] = float64(i)
					continue
				}
				sum := 0.0
				for _, p := range ps {
					sum += float64(slot[p])
				}
				key[id] = sum / float64(len(ps))
			}
			sort.SliceStable(row, func(i, j int) bool { return key[row[i]] < key[row[j]] })
			for i, id := range row {
				slot[id] = i
			}
		}
	}
	return rows
}
