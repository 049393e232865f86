// Package validator checks a flow document for consistency problems beyond
// what structural validation on import catches: unreachable nodes, stale
// keyword handles, condition expressions that never parse.
package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbaleeiro/chatvine/pkg/condition"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

// ValidateFlow crawls the graph from its trigger nodes and aggregates every
// problem found. A nil return means the flow is clean.
func ValidateFlow(f *domain.Flow) error {
	var problems []string

	if err := flow.Validate(f); err != nil {
		return err
	}

	triggers := f.NodesByType(domain.NodeTypeTrigger)
	if len(triggers) == 0 {
		problems = append(problems, "flow has no trigger node")
	}

	// Crawl from triggers to find unreachable nodes.
	adjacent := make(map[string][]string)
	for _, e := range f.Edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
	}

	visited := make(map[string]bool)
	queue := make([]string, 0, len(triggers))
	for _, t := range triggers {
		queue = append(queue, t.ID)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, adjacent[id]...)
	}
	for _, n := range f.Nodes {
		if !visited[n.ID] {
			problems = append(problems, fmt.Sprintf("node %s (%s) is unreachable from any trigger", n.ID, n.Type))
		}
	}

	// Keyword handles referenced by edges must be live.
	g := flow.New(f)
	for _, n := range f.Nodes {
		kws, err := g.Keywords(n.ID)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		live := make(map[string]bool, len(kws))
		for _, kw := range kws {
			live[kw.HandleID] = true
		}
		for _, e := range f.Edges {
			if e.Source != n.ID || !strings.HasPrefix(e.SourceHandle, domain.KeywordHandlePrefix) {
				continue
			}
			if !live[e.SourceHandle] {
				problems = append(problems, fmt.Sprintf("edge %s uses stale keyword handle %q on node %s", e.ID, e.SourceHandle, n.ID))
			}
		}
	}

	// Wait durations must be valid Go duration strings.
	for _, n := range f.NodesByType(domain.NodeTypeWait) {
		data, err := flow.WaitData(n)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if data.Duration == "" {
			problems = append(problems, fmt.Sprintf("wait node %s has no duration", n.ID))
			continue
		}
		if _, err := time.ParseDuration(data.Duration); err != nil {
			problems = append(problems, fmt.Sprintf("wait node %s: invalid duration %q", n.ID, data.Duration))
		}
	}

	// Condition expressions must parse; evaluation problems are runtime
	// diagnostics, but a string that can never parse is an authoring error.
	for _, n := range f.Nodes {
		var expr string
		switch n.Type {
		case domain.NodeTypeCondition:
			data, err := flow.ConditionData(n)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			expr = data.Condition
		case domain.NodeTypeTrigger:
			data, err := flow.TriggerData(n)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			if data.ConditionType == domain.ConditionExpression {
				expr = data.Condition
			}
		}
		if expr == "" {
			continue
		}
		if _, err := condition.Parse(expr); err != nil {
			problems = append(problems, fmt.Sprintf("node %s: %v", n.ID, err))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("flow %s has %d problem(s):\n  - %s", f.ID, len(problems), strings.Join(problems, "\n  - "))
}
