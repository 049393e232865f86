package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"log/slog"

	"github.com/mbaleeiro/chatvine/internal/logging"
	"github.com/mbaleeiro/chatvine/pkg/condition"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
	"github.com/mbaleeiro/chatvine/pkg/interpolate"
	"github.com/mbaleeiro/chatvine/pkg/ports"
	"github.com/mbaleeiro/chatvine/pkg/session"
)

// contactVariables is the variable set exposed to hard-reset confirmations.
var contactVariables = []string{"contact.name", "contact.phone", "contact.email"}

// Decision is the outcome of routing one inbound message against one flow.
type Decision struct {
	// Matched is true when the message enters the flow.
	Matched bool
	// FlowID and EntryNodeID identify where execution enters.
	FlowID      string
	EntryNodeID string

	// Sticky is true when entry happened through an active session,
	// bypassing condition evaluation.
	Sticky bool

	// HardReset is true when the message was consumed by the hard-reset
	// keyword. Confirmation carries the rendered confirmation message.
	HardReset    bool
	Confirmation string

	// SessionExpired is true when a stale session was observed and deleted
	// before matching restarted from scratch.
	SessionExpired bool

	// Diagnostics collects non-fatal evaluation problems (bad regex,
	// malformed conditions). They never abort matching.
	Diagnostics []condition.Diagnostic
}

// Engine evaluates trigger matching with sticky sessions.
type Engine struct {
	flows    ports.FlowStore
	sessions *session.Manager
	contacts ports.ContactResolver

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithContactResolver enables Contact.<attr> conditions and contact
// variables in confirmations.
func WithContactResolver(r ports.ContactResolver) Option {
	return func(e *Engine) { e.contacts = r }
}

// WithMetrics registers and attaches decision counters.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a trigger engine over the given stores.
func New(flows ports.FlowStore, sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		flows:    flows,
		sessions: sessions,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage routes an inbound message across all stored flows and
// returns the first decision that consumes it. Precedence: hard reset, then
// sticky sessions, then fresh trigger evaluation. Flows are visited in id
// order so the outcome is deterministic.
func (e *Engine) HandleMessage(ctx context.Context, msg domain.InboundMessage) (Decision, error) {
	flows, err := e.flows.List(ctx)
	if err != nil {
		e.count(outcomeStoreError)
		return Decision{}, fmt.Errorf("list flows: %w", err)
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })

	active := flows[:0]
	for _, f := range flows {
		if f.Active() {
			active = append(active, f)
		}
	}

	// Pass 1: hard reset beats everything, including other flows' sessions.
	for _, f := range active {
		decision, handled, err := e.tryHardReset(ctx, f, msg)
		if err != nil {
			return Decision{}, err
		}
		if handled {
			return decision, nil
		}
	}

	// Pass 2: sticky sessions. An expired-session observation must survive
	// into the final decision even when a later pass or another flow ends up
	// producing it.
	sessionExpired := false
	for _, f := range active {
		decision, handled, err := e.trySticky(ctx, f, msg)
		if err != nil {
			return Decision{}, err
		}
		if handled {
			decision.SessionExpired = decision.SessionExpired || sessionExpired
			return decision, nil
		}
		sessionExpired = sessionExpired || decision.SessionExpired
	}

	// Pass 3: fresh trigger evaluation.
	var diags []condition.Diagnostic
	for _, f := range active {
		decision, err := e.tryMatch(ctx, f, msg)
		if err != nil {
			return Decision{}, err
		}
		diags = append(diags, decision.Diagnostics...)
		if decision.Matched {
			decision.Diagnostics = diags
			decision.SessionExpired = sessionExpired
			return decision, nil
		}
	}

	e.count(outcomeNoMatch)
	return Decision{Diagnostics: diags, SessionExpired: sessionExpired}, nil
}

// Match routes a message against a single flow, applying the same precedence
// as HandleMessage. Draft flows never match.
func (e *Engine) Match(ctx context.Context, f *domain.Flow, msg domain.InboundMessage) (Decision, error) {
	if !f.Active() {
		return Decision{}, fmt.Errorf("flow %s: %w", f.ID, domain.ErrFlowInactive)
	}

	decision, handled, err := e.tryHardReset(ctx, f, msg)
	if err != nil || handled {
		return decision, err
	}
	decision, handled, err = e.trySticky(ctx, f, msg)
	if err != nil || handled {
		return decision, err
	}
	sessionExpired := decision.SessionExpired

	decision, err = e.tryMatch(ctx, f, msg)
	if err != nil {
		return Decision{}, err
	}
	decision.SessionExpired = sessionExpired
	if !decision.Matched {
		e.count(outcomeNoMatch)
	}
	return decision, nil
}

// tryHardReset checks every trigger node on the flow for a hard-reset hit.
// A hit deletes any session regardless of expiry and consumes the message.
func (e *Engine) tryHardReset(ctx context.Context, f *domain.Flow, msg domain.InboundMessage) (Decision, bool, error) {
	for _, node := range f.NodesByType(domain.NodeTypeTrigger) {
		data, err := flow.TriggerData(node)
		if err != nil {
			e.logger.Warn("skipping malformed trigger payload", "flow", f.ID, "node", node.ID, "err", err)
			continue
		}
		if data.HardResetKeyword == "" || !channelMatch(data.ChannelTypes, msg.ChannelType) {
			continue
		}
		if !resetKeywordHit(data, msg.Text) {
			continue
		}

		err = e.sessions.WithLock(ctx, domain.SessionKey(msg.ContactID, f.ID), func(ctx context.Context) error {
			return e.sessions.Store().Delete(ctx, msg.ContactID, f.ID)
		})
		if err != nil {
			e.count(outcomeStoreError)
			return Decision{}, false, fmt.Errorf("hard reset for flow %s: %w", f.ID, err)
		}

		e.count(outcomeHardReset)
		e.logger.Info("hard reset", "flow", f.ID, "contact", msg.ContactID)
		return Decision{
			FlowID:       f.ID,
			HardReset:    true,
			Confirmation: e.renderConfirmation(ctx, data.HardResetConfirmation, msg.ContactID),
		}, true, nil
	}
	return Decision{}, false, nil
}

// trySticky re-enters the flow through an unexpired session on the same
// channel, refreshing its deadline. Expired records are deleted here (lazy
// expiry) and matching falls through to fresh evaluation.
func (e *Engine) trySticky(ctx context.Context, f *domain.Flow, msg domain.InboundMessage) (Decision, bool, error) {
	var decision Decision
	handled := false

	err := e.sessions.WithLock(ctx, domain.SessionKey(msg.ContactID, f.ID), func(ctx context.Context) error {
		sess, err := e.sessions.Store().Get(ctx, msg.ContactID, f.ID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := e.now()
		if sess.Expired(now) {
			if err := e.sessions.Store().Delete(ctx, msg.ContactID, f.ID); err != nil {
				return err
			}
			decision.SessionExpired = true
			e.count(outcomeExpired)
			return nil
		}
		if sess.ChannelType != msg.ChannelType {
			return nil
		}

		sess.Refresh(now)
		if err := e.sessions.Store().Put(ctx, sess); err != nil {
			return err
		}

		entry, ok := e.entryNode(f, msg.ChannelType)
		if !ok {
			// Trigger was removed or re-channeled since the session opened.
			return nil
		}
		decision = Decision{
			Matched:     true,
			Sticky:      true,
			FlowID:      f.ID,
			EntryNodeID: entry,
		}
		handled = true
		return nil
	})
	if err != nil {
		e.count(outcomeStoreError)
		return Decision{}, false, fmt.Errorf("session check for flow %s: %w", f.ID, err)
	}
	if handled {
		e.count(outcomeSticky)
		e.logger.Debug("sticky re-entry", "flow", f.ID, "contact", msg.ContactID)
	}
	return decision, handled, nil
}

// tryMatch evaluates trigger conditions from the NoSession state and opens a
// session on success when persistence is enabled.
func (e *Engine) tryMatch(ctx context.Context, f *domain.Flow, msg domain.InboundMessage) (Decision, error) {
	var diags []condition.Diagnostic

	for _, node := range f.NodesByType(domain.NodeTypeTrigger) {
		data, err := flow.TriggerData(node)
		if err != nil {
			continue
		}
		if !channelMatch(data.ChannelTypes, msg.ChannelType) {
			continue
		}

		matched := true
		if data.ConditionType == domain.ConditionExpression && data.Condition != "" {
			var condDiags []condition.Diagnostic
			matched, condDiags = condition.Evaluate(data.Condition, e.conditionContext(ctx, f, msg))
			diags = append(diags, condDiags...)
		}
		if !matched {
			continue
		}

		if data.EnableSessionPersistence {
			now := e.now()
			sess := &domain.Session{
				ContactID:      msg.ContactID,
				FlowID:         f.ID,
				ChannelType:    msg.ChannelType,
				LastActivityAt: now,
				TimeoutValue:   data.SessionTimeout,
				TimeoutUnit:    data.SessionTimeoutUnit,
				ExpiresAt:      now.Add(data.SessionTimeoutUnit.Duration(data.SessionTimeout)),
			}
			if err := e.sessions.Put(ctx, sess); err != nil {
				// Fail closed: without a persisted session a second message
				// could double-enter the flow.
				e.count(outcomeStoreError)
				return Decision{}, fmt.Errorf("open session for flow %s: %w", f.ID, err)
			}
		}

		e.count(outcomeMatched)
		e.logger.Info("entered flow at trigger node", "flow", f.ID, "node", node.ID, "contact", msg.ContactID)
		return Decision{
			Matched:     true,
			FlowID:      f.ID,
			EntryNodeID: node.ID,
			Diagnostics: diags,
		}, nil
	}

	return Decision{Diagnostics: diags}, nil
}

// entryNode finds the trigger node serving the given channel.
func (e *Engine) entryNode(f *domain.Flow, channelType string) (string, bool) {
	for _, node := range f.NodesByType(domain.NodeTypeTrigger) {
		data, err := flow.TriggerData(node)
		if err != nil {
			continue
		}
		if channelMatch(data.ChannelTypes, channelType) {
			return node.ID, true
		}
	}
	return "", false
}

func (e *Engine) conditionContext(ctx context.Context, f *domain.Flow, msg domain.InboundMessage) condition.Context {
	cc := condition.Context{
		MessageText: msg.Text,
		MediaType:   msg.MediaType,
		Timestamp:   msg.Timestamp,
	}
	if f.Timezone != "" {
		if loc, err := time.LoadLocation(f.Timezone); err == nil {
			cc.Location = loc
		} else {
			e.logger.Warn("invalid flow timezone, using UTC", "flow", f.ID, "timezone", f.Timezone)
		}
	}
	if e.contacts != nil {
		if contact, err := e.contacts.Resolve(ctx, msg.ContactID); err == nil {
			cc.Contact = contact
		} else {
			e.logger.Warn("contact lookup failed", "contact", msg.ContactID, "err", err)
		}
	}
	return cc
}

// renderConfirmation interpolates contact variables into the configured
// hard-reset confirmation message.
func (e *Engine) renderConfirmation(ctx context.Context, template, contactID string) string {
	if template == "" {
		return ""
	}
	context := map[string]any{}
	if e.contacts != nil {
		if contact, err := e.contacts.Resolve(ctx, contactID); err == nil {
			context["contact"] = map[string]any{
				"name":  contact.Name,
				"phone": contact.Phone,
				"email": contact.Email,
			}
		}
	}
	return interpolate.Render(template, context, contactVariables).Result
}

func channelMatch(channels []string, channelType string) bool {
	for _, c := range channels {
		if strings.EqualFold(c, channelType) {
			return true
		}
	}
	return false
}

// resetKeywordHit compares the trimmed message text against the hard-reset
// keyword. Exact match, case-insensitive unless configured otherwise.
func resetKeywordHit(data domain.TriggerData, text string) bool {
	trimmed := strings.TrimSpace(text)
	if data.HardResetCaseSensitive {
		return trimmed == data.HardResetKeyword
	}
	return strings.EqualFold(trimmed, data.HardResetKeyword)
}
