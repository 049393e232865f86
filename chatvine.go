package chatvine

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/mbaleeiro/chatvine/internal/logging"
	"github.com/mbaleeiro/chatvine/internal/validator"
	"github.com/mbaleeiro/chatvine/pkg/adapters/memory"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/layout"
	"github.com/mbaleeiro/chatvine/pkg/ports"
	"github.com/mbaleeiro/chatvine/pkg/session"
	"github.com/mbaleeiro/chatvine/pkg/trigger"
)

// Version is the library version reported by the CLI.
const Version = "0.3.0"

// Engine is the high-level entry point: flow storage, session management and
// trigger routing behind one handle.
type Engine struct {
	flows    ports.FlowStore
	sessions *session.Manager
	trigger  *trigger.Engine
	logger   *slog.Logger

	sessionStore ports.SessionStore
	locker       ports.DistributedLocker
	contacts     ports.ContactResolver
	metrics      *trigger.Metrics
}

// Option configures the Engine.
type Option func(*Engine)

// WithFlowStore sets the flow document store. Defaults to in-memory.
func WithFlowStore(store ports.FlowStore) Option {
	return func(e *Engine) { e.flows = store }
}

// WithSessionStore sets the session store. Defaults to in-memory.
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) { e.sessionStore = store }
}

// WithLocker enables distributed session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithContactResolver enables contact-attribute conditions and variables.
func WithContactResolver(r ports.ContactResolver) Option {
	return func(e *Engine) { e.contacts = r }
}

// WithLogger sets a structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches trigger decision counters.
func WithMetrics(m *trigger.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New assembles an engine from the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.flows == nil {
		e.flows = memory.NewFlowStore()
	}
	if e.sessionStore == nil {
		e.sessionStore = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.sessionStore, sessionOpts...)

	triggerOpts := []trigger.Option{trigger.WithLogger(e.logger)}
	if e.contacts != nil {
		triggerOpts = append(triggerOpts, trigger.WithContactResolver(e.contacts))
	}
	if e.metrics != nil {
		triggerOpts = append(triggerOpts, trigger.WithMetrics(e.metrics))
	}
	e.trigger = trigger.New(e.flows, e.sessions, triggerOpts...)

	return e, nil
}

// HandleMessage routes an inbound message across all stored flows.
func (e *Engine) HandleMessage(ctx context.Context, msg domain.InboundMessage) (trigger.Decision, error) {
	return e.trigger.HandleMessage(ctx, msg)
}

// Arrange computes and persists the auto-layout for a flow, returning the
// new positions and any diagnostics.
func (e *Engine) Arrange(ctx context.Context, flowID string) (layout.Result, error) {
	f, err := e.flows.Get(ctx, flowID)
	if err != nil {
		return layout.Result{}, fmt.Errorf("arrange flow %s: %w", flowID, err)
	}
	res := layout.Arrange(f)
	layout.Apply(f, res)
	if err := e.flows.Put(ctx, f); err != nil {
		return layout.Result{}, fmt.Errorf("arrange flow %s: %w", flowID, err)
	}
	return res, nil
}

// Validate runs the consistency checks on a stored flow.
func (e *Engine) Validate(ctx context.Context, flowID string) error {
	f, err := e.flows.Get(ctx, flowID)
	if err != nil {
		return err
	}
	return validator.ValidateFlow(f)
}

// Trigger exposes the trigger engine (for sweeper control).
func (e *Engine) Trigger() *trigger.Engine { return e.trigger }

// Flows exposes the flow store.
func (e *Engine) Flows() ports.FlowStore { return e.flows }

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }
