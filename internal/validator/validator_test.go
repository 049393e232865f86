package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaleeiro/chatvine/internal/validator"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

func cleanFlow(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.NewFlow("clean")
	trig, err := g.AddNode(domain.NodeTypeTrigger, domain.Position{}, map[string]any{
		"channelTypes": []any{"whatsapp"},
	})
	require.NoError(t, err)
	msg, err := g.AddNode(domain.NodeTypeMessage, domain.Position{}, map[string]any{
		"message": "hello",
	})
	require.NoError(t, err)
	_, err = g.Connect(trig, "", msg, "")
	require.NoError(t, err)
	return g
}

func TestValidateFlow_Clean(t *testing.T) {
	g := cleanFlow(t)
	assert.NoError(t, validator.ValidateFlow(g.Flow()))
}

func TestValidateFlow_NoTrigger(t *testing.T) {
	g := flow.NewFlow("no-trigger")
	_, err := g.AddNode(domain.NodeTypeMessage, domain.Position{}, nil)
	require.NoError(t, err)

	err = validator.ValidateFlow(g.Flow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trigger node")
}

func TestValidateFlow_UnreachableNode(t *testing.T) {
	g := cleanFlow(t)
	orphan, err := g.AddNode(domain.NodeTypeMessage, domain.Position{}, nil)
	require.NoError(t, err)

	err = validator.ValidateFlow(g.Flow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), orphan)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestValidateFlow_StaleKeywordHandle(t *testing.T) {
	g := cleanFlow(t)
	msg := g.Flow().NodesByType(domain.NodeTypeMessage)[0].ID
	target, err := g.AddNode(domain.NodeTypeMessage, domain.Position{}, map[string]any{
		"message": "details",
	})
	require.NoError(t, err)

	kw, err := g.AddKeyword(msg, "more", false)
	require.NoError(t, err)
	_, err = g.Connect(msg, kw.HandleID, target, "")
	require.NoError(t, err)

	// Bypass the graph operations to plant a stale handle, the way a buggy
	// client writing raw documents could.
	g.Flow().Edges = append(g.Flow().Edges, domain.Edge{
		ID: "stale", Source: msg, SourceHandle: "keyword-gone", Target: target,
	})

	err = validator.ValidateFlow(g.Flow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale keyword handle")
}

func TestValidateFlow_BadConditions(t *testing.T) {
	t.Run("Condition Node", func(t *testing.T) {
		g := cleanFlow(t)
		trig := g.Flow().NodesByType(domain.NodeTypeTrigger)[0].ID
		cond, err := g.AddNode(domain.NodeTypeCondition, domain.Position{}, map[string]any{
			"condition": "Summon('demon')",
		})
		require.NoError(t, err)
		_, err = g.Connect(trig, "", cond, "")
		require.NoError(t, err)

		err = validator.ValidateFlow(g.Flow())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown function")
	})

	t.Run("Trigger Expression", func(t *testing.T) {
		g := flow.NewFlow("bad-trigger")
		_, err := g.AddNode(domain.NodeTypeTrigger, domain.Position{}, map[string]any{
			"channelTypes":  []any{"whatsapp"},
			"conditionType": "condition",
			"condition":     "Contains(broken",
		})
		require.NoError(t, err)

		err = validator.ValidateFlow(g.Flow())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed condition")
	})

	t.Run("Trigger With ConditionAny Skips Expression Check", func(t *testing.T) {
		g := flow.NewFlow("any")
		_, err := g.AddNode(domain.NodeTypeTrigger, domain.Position{}, map[string]any{
			"channelTypes": []any{"whatsapp"},
		})
		require.NoError(t, err)
		assert.NoError(t, validator.ValidateFlow(g.Flow()))
	})
}

func TestValidateFlow_WaitDuration(t *testing.T) {
	addWait := func(t *testing.T, g *flow.Graph, duration any) {
		t.Helper()
		trig := g.Flow().NodesByType(domain.NodeTypeTrigger)[0].ID
		wait, err := g.AddNode(domain.NodeTypeWait, domain.Position{}, map[string]any{
			"duration": duration,
		})
		require.NoError(t, err)
		_, err = g.Connect(trig, "", wait, "")
		require.NoError(t, err)
	}

	t.Run("Valid", func(t *testing.T) {
		g := cleanFlow(t)
		addWait(t, g, "90s")
		assert.NoError(t, validator.ValidateFlow(g.Flow()))
	})

	t.Run("Invalid", func(t *testing.T) {
		g := cleanFlow(t)
		addWait(t, g, "quarter past nine")
		err := validator.ValidateFlow(g.Flow())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid duration")
	})

	t.Run("Missing", func(t *testing.T) {
		g := cleanFlow(t)
		addWait(t, g, "")
		err := validator.ValidateFlow(g.Flow())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no duration")
	})
}

func TestValidateFlow_AggregatesProblems(t *testing.T) {
	g := flow.NewFlow("messy")
	_, err := g.AddNode(domain.NodeTypeMessage, domain.Position{}, nil)
	require.NoError(t, err)
	_, err = g.AddNode(domain.NodeTypeCondition, domain.Position{}, map[string]any{
		"condition": "Nope()",
	})
	require.NoError(t, err)

	err = validator.ValidateFlow(g.Flow())
	require.Error(t, err)
	// No trigger, two unreachable nodes, one bad condition.
	assert.Contains(t, err.Error(), "4 problem(s)")
}
