package trigger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaleeiro/chatvine/pkg/adapters/memory"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/ports"
	"github.com/mbaleeiro/chatvine/pkg/session"
	"github.com/mbaleeiro/chatvine/pkg/trigger"
)

// clock is a settable time source for deterministic expiry tests.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

type triggerOpts struct {
	conditionType domain.ConditionType
	condition     string
	persistence   bool
	timeout       int
	resetKeyword  string
	resetCaseSens bool
	confirmation  string
	channels      []string
}

func flowWith(id string, status domain.FlowStatus, opts triggerOpts) *domain.Flow {
	channels := opts.channels
	if channels == nil {
		channels = []string{"whatsapp"}
	}
	data := map[string]any{
		"channelTypes": channels,
	}
	if opts.conditionType != "" {
		data["conditionType"] = string(opts.conditionType)
		data["condition"] = opts.condition
	}
	if opts.persistence {
		data["enableSessionPersistence"] = true
		data["sessionTimeout"] = opts.timeout
		data["sessionTimeoutUnit"] = "minutes"
	}
	if opts.resetKeyword != "" {
		data["hardResetKeyword"] = opts.resetKeyword
		data["hardResetCaseSensitive"] = opts.resetCaseSens
		data["hardResetConfirmation"] = opts.confirmation
	}

	return &domain.Flow{
		ID:     id,
		Name:   "flow " + id,
		Status: status,
		Nodes: []domain.Node{
			{ID: id + "-trigger", Type: domain.NodeTypeTrigger, Data: data},
			{ID: id + "-msg", Type: domain.NodeTypeMessage, Data: map[string]any{"message": "hi"}},
		},
		Edges: []domain.Edge{
			{ID: id + "-e1", Source: id + "-trigger", Target: id + "-msg"},
		},
	}
}

func msg(text string) domain.InboundMessage {
	return domain.InboundMessage{
		ContactID:   "contact-1",
		ChannelType: "whatsapp",
		Text:        text,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	engine   *trigger.Engine
	flows    *memory.FlowStore
	sessions *session.Manager
	clock    *clock
}

func newFixture(t *testing.T, flows ...*domain.Flow) *fixture {
	t.Helper()
	flowStore := memory.NewFlowStore()
	for _, f := range flows {
		require.NoError(t, flowStore.Put(context.Background(), f))
	}
	clk := newClock()
	sessions := session.NewManager(memory.NewStore())
	engine := trigger.New(flowStore, sessions, trigger.WithClock(clk.Now))
	return &fixture{engine: engine, flows: flowStore, sessions: sessions, clock: clk}
}

func TestHandleMessage_FreshMatch(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		persistence: true,
		timeout:     30,
	}))
	ctx := context.Background()

	decision, err := fx.engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)
	assert.False(t, decision.Sticky)
	assert.Equal(t, "f1", decision.FlowID)
	assert.Equal(t, "f1-trigger", decision.EntryNodeID)

	sess, err := fx.sessions.Get(ctx, "contact-1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", sess.ChannelType)
	assert.Equal(t, fx.clock.Now().Add(30*time.Minute), sess.ExpiresAt)
}

func TestHandleMessage_NoPersistenceNoSession(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{}))
	ctx := context.Background()

	decision, err := fx.engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)

	_, err = fx.sessions.Get(ctx, "contact-1", "f1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHandleMessage_StickyWithinTimeout(t *testing.T) {
	// Condition matches only the first message; subsequent ones ride the
	// session without any condition evaluation.
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "Contains('start')",
		persistence:   true,
		timeout:       30,
	}))
	ctx := context.Background()

	decision, err := fx.engine.HandleMessage(ctx, msg("start here"))
	require.NoError(t, err)
	require.True(t, decision.Matched)

	// 10 minutes later, a text the condition would reject.
	fx.clock.Advance(10 * time.Minute)
	decision, err = fx.engine.HandleMessage(ctx, msg("anything else"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)
	assert.True(t, decision.Sticky)
	assert.Equal(t, "f1-trigger", decision.EntryNodeID)

	// The sticky hit refreshed the deadline to 30 minutes from t=10.
	sess, err := fx.sessions.Get(ctx, "contact-1", "f1")
	require.NoError(t, err)
	assert.Equal(t, fx.clock.Now().Add(30*time.Minute), sess.ExpiresAt)

	// t=10+29: still inside the refreshed window.
	fx.clock.Advance(29 * time.Minute)
	decision, err = fx.engine.HandleMessage(ctx, msg("still here"))
	require.NoError(t, err)
	assert.True(t, decision.Sticky)
}

func TestHandleMessage_ExpiredSessionRestartsMatching(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "Contains('start')",
		persistence:   true,
		timeout:       30,
	}))
	ctx := context.Background()

	_, err := fx.engine.HandleMessage(ctx, msg("start here"))
	require.NoError(t, err)

	// 31 minutes of silence: the session is stale. The next message is
	// evaluated from scratch, and its text no longer satisfies the condition.
	fx.clock.Advance(31 * time.Minute)
	decision, err := fx.engine.HandleMessage(ctx, msg("anything else"))
	require.NoError(t, err)
	assert.False(t, decision.Matched)
	assert.True(t, decision.SessionExpired, "stale session observed and removed")

	_, err = fx.sessions.Get(ctx, "contact-1", "f1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// A qualifying message starts a brand new session.
	decision, err = fx.engine.HandleMessage(ctx, msg("start again"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)
	assert.False(t, decision.Sticky)
}

func TestHandleMessage_ExpiredFlagSurvivesOtherFlowMatch(t *testing.T) {
	// The stale session lives on a-sticky; the message then freshly matches
	// b-any. The expiry observation must still be visible on the decision.
	fx := newFixture(t,
		flowWith("a-sticky", domain.FlowStatusActive, triggerOpts{
			conditionType: domain.ConditionExpression,
			condition:     "Contains('start')",
			persistence:   true,
			timeout:       30,
		}),
		flowWith("b-any", domain.FlowStatusActive, triggerOpts{}),
	)
	ctx := context.Background()

	decision, err := fx.engine.HandleMessage(ctx, msg("start here"))
	require.NoError(t, err)
	require.Equal(t, "a-sticky", decision.FlowID)

	fx.clock.Advance(31 * time.Minute)
	decision, err = fx.engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)
	assert.Equal(t, "b-any", decision.FlowID)
	assert.True(t, decision.SessionExpired)
}

func TestMatch_ReportsExpiredSession(t *testing.T) {
	f := flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "Contains('start')",
		persistence:   true,
		timeout:       30,
	})
	fx := newFixture(t, f)
	ctx := context.Background()

	_, err := fx.engine.Match(ctx, f, msg("start here"))
	require.NoError(t, err)

	fx.clock.Advance(31 * time.Minute)
	decision, err := fx.engine.Match(ctx, f, msg("anything else"))
	require.NoError(t, err)
	assert.False(t, decision.Matched)
	assert.True(t, decision.SessionExpired)
}

func TestHandleMessage_ChannelAffinity(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		persistence: true,
		timeout:     30,
		channels:    []string{"whatsapp", "instagram"},
	}))
	ctx := context.Background()

	_, err := fx.engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)

	// Same contact, different channel: the whatsapp session must not carry
	// over. A fresh match happens on instagram instead.
	other := msg("hello again")
	other.ChannelType = "instagram"
	decision, err := fx.engine.HandleMessage(ctx, other)
	require.NoError(t, err)
	assert.True(t, decision.Matched)
	assert.False(t, decision.Sticky)
}

func TestHandleMessage_ChannelMismatchNoMatch(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{}))
	ctx := context.Background()

	other := msg("hello")
	other.ChannelType = "telegram"
	decision, err := fx.engine.HandleMessage(ctx, other)
	require.NoError(t, err)
	assert.False(t, decision.Matched)
}

func TestHandleMessage_HardReset(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		persistence:  true,
		timeout:      30,
		resetKeyword: "reset",
		confirmation: "Session cleared.",
	}))
	ctx := context.Background()

	_, err := fx.engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)
	_, err = fx.sessions.Get(ctx, "contact-1", "f1")
	require.NoError(t, err)

	t.Run("Exact Trimmed Case-Insensitive", func(t *testing.T) {
		decision, err := fx.engine.HandleMessage(ctx, msg("  RESET  "))
		require.NoError(t, err)
		assert.True(t, decision.HardReset)
		assert.False(t, decision.Matched, "the reset message is consumed, not routed")
		assert.Equal(t, "Session cleared.", decision.Confirmation)

		_, err = fx.sessions.Get(ctx, "contact-1", "f1")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Containment Is Not Enough", func(t *testing.T) {
		_, err := fx.engine.HandleMessage(ctx, msg("hello"))
		require.NoError(t, err)

		decision, err := fx.engine.HandleMessage(ctx, msg("please reset everything"))
		require.NoError(t, err)
		assert.False(t, decision.HardReset)
		assert.True(t, decision.Sticky, "a sentence mentioning the keyword rides the session")
	})

	t.Run("Beats Expired Session Too", func(t *testing.T) {
		fx.clock.Advance(90 * time.Minute)
		decision, err := fx.engine.HandleMessage(ctx, msg("reset"))
		require.NoError(t, err)
		assert.True(t, decision.HardReset)
	})
}

func TestHandleMessage_HardResetCaseSensitive(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		resetKeyword:  "RESET",
		resetCaseSens: true,
	}))
	ctx := context.Background()

	decision, err := fx.engine.HandleMessage(ctx, msg("reset"))
	require.NoError(t, err)
	assert.False(t, decision.HardReset)

	decision, err = fx.engine.HandleMessage(ctx, msg("RESET"))
	require.NoError(t, err)
	assert.True(t, decision.HardReset)
}

func TestHandleMessage_DraftFlowIgnored(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusDraft, triggerOpts{}))

	decision, err := fx.engine.HandleMessage(context.Background(), msg("hello"))
	require.NoError(t, err)
	assert.False(t, decision.Matched)
}

func TestHandleMessage_FlowOrderIsDeterministic(t *testing.T) {
	// Both flows match any whatsapp message; the smaller id wins every time.
	fx := newFixture(t,
		flowWith("b-flow", domain.FlowStatusActive, triggerOpts{}),
		flowWith("a-flow", domain.FlowStatusActive, triggerOpts{}),
	)

	for i := 0; i < 5; i++ {
		decision, err := fx.engine.HandleMessage(context.Background(), msg("hello"))
		require.NoError(t, err)
		assert.Equal(t, "a-flow", decision.FlowID)
	}
}

func TestHandleMessage_ConditionDiagnostics(t *testing.T) {
	fx := newFixture(t, flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "Summon('demon')",
	}))

	decision, err := fx.engine.HandleMessage(context.Background(), msg("hello"))
	require.NoError(t, err, "a broken condition is a diagnostic, not a failure")
	assert.False(t, decision.Matched)
	require.NotEmpty(t, decision.Diagnostics)
	assert.Contains(t, decision.Diagnostics[0].Detail, "unknown function")
}

// failingStore errors on writes to exercise the fail-closed path.
type failingStore struct {
	memory *memory.Store
}

func (s *failingStore) Get(ctx context.Context, contactID, flowID string) (*domain.Session, error) {
	return s.memory.Get(ctx, contactID, flowID)
}
func (s *failingStore) Put(ctx context.Context, sess *domain.Session) error {
	return errors.New("store down")
}
func (s *failingStore) Delete(ctx context.Context, contactID, flowID string) error {
	return errors.New("store down")
}
func (s *failingStore) List(ctx context.Context) ([]string, error) {
	return s.memory.List(ctx)
}

var _ ports.SessionStore = (*failingStore)(nil)

func TestHandleMessage_FailsClosedOnStoreError(t *testing.T) {
	flowStore := memory.NewFlowStore()
	require.NoError(t, flowStore.Put(context.Background(), flowWith("f1", domain.FlowStatusActive, triggerOpts{
		persistence: true,
		timeout:     30,
	})))

	sessions := session.NewManager(&failingStore{memory: memory.NewStore()})
	engine := trigger.New(flowStore, sessions)

	// The trigger matches, but the session cannot be persisted. Reporting a
	// match anyway would let the next message double-enter the flow.
	_, err := engine.HandleMessage(context.Background(), msg("hello"))
	assert.Error(t, err)
}

type staticContacts struct {
	contact domain.Contact
}

func (r staticContacts) Resolve(ctx context.Context, contactID string) (domain.Contact, error) {
	return r.contact, nil
}

func TestHandleMessage_ContactConditionsAndConfirmation(t *testing.T) {
	flowStore := memory.NewFlowStore()
	require.NoError(t, flowStore.Put(context.Background(), flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "Contact.tags == 'vip'",
		resetKeyword:  "reset",
		confirmation:  "Bye {{contact.name}}!",
	})))

	engine := trigger.New(flowStore, session.NewManager(memory.NewStore()),
		trigger.WithContactResolver(staticContacts{contact: domain.Contact{
			Name: "Alice",
			Tags: []string{"vip"},
		}}))
	ctx := context.Background()

	decision, err := engine.HandleMessage(ctx, msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)

	decision, err = engine.HandleMessage(ctx, msg("reset"))
	require.NoError(t, err)
	require.True(t, decision.HardReset)
	assert.Equal(t, "Bye Alice!", decision.Confirmation)
}

func TestMatch_SingleFlow(t *testing.T) {
	active := flowWith("f1", domain.FlowStatusActive, triggerOpts{})
	draft := flowWith("f2", domain.FlowStatusDraft, triggerOpts{})
	fx := newFixture(t, active, draft)
	ctx := context.Background()

	decision, err := fx.engine.Match(ctx, active, msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)

	_, err = fx.engine.Match(ctx, draft, msg("hello"))
	assert.ErrorIs(t, err, domain.ErrFlowInactive)
}

func TestHandleMessage_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	f := flowWith("f1", domain.FlowStatusActive, triggerOpts{
		conditionType: domain.ConditionExpression,
		condition:     "TimeBefore('13:00')",
	})
	f.Timezone = "Mars/Olympus_Mons"
	fx := newFixture(t, f)

	// Message timestamp is 12:00 UTC; with the broken zone ignored the
	// condition still evaluates in UTC and matches.
	decision, err := fx.engine.HandleMessage(context.Background(), msg("hello"))
	require.NoError(t, err)
	assert.True(t, decision.Matched)
}
