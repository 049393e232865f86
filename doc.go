/*
Package chatvine is the flow engine behind a visual chatbot-automation
builder. Users assemble a directed graph of typed nodes (triggers, messages,
conditions, media, waits) describing how an inbound conversational message is
routed and answered; this module implements the graph model and the engines
that give the graph meaning.

# Pieces

  - pkg/flow: the graph model: structural mutations, keyword routing
    handles, serialization.
  - pkg/condition: the fixed condition mini-language used by trigger and
    condition nodes.
  - pkg/interpolate: {{variable}} substitution in message templates.
  - pkg/router: keyword-based output selection.
  - pkg/trigger: trigger matching with TTL-based sticky sessions.
  - pkg/layout: automatic hierarchical arrangement of the canvas.

The Engine type in this package wires them together over pluggable stores
(see pkg/ports and pkg/adapters).

# Usage

	eng, err := chatvine.New(
		chatvine.WithFlowStore(store),
	)
	if err != nil {
		log.Fatal(err)
	}

	decision, err := eng.HandleMessage(ctx, domain.InboundMessage{
		ContactID:   "c-1",
		ChannelType: "whatsapp",
		Text:        "hello",
		Timestamp:   time.Now(),
	})

Rendering, per-node configuration dialogs, and transport are hosts'
responsibilities; the engine is deterministic and side-effect free outside
its stores.
*/
package chatvine
