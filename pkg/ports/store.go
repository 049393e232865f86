package ports

import (
	"context"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// SessionStore persists sticky-routing sessions keyed by (contactID, flowID).
// Implementations must return domain.ErrSessionNotFound for missing keys so
// the trigger engine can distinguish "no session" from store failure and
// fail closed on the latter.
type SessionStore interface {
	// Get retrieves the session for the pair.
	Get(ctx context.Context, contactID, flowID string) (*domain.Session, error)

	// Put persists the session under its key, overwriting any prior record.
	Put(ctx context.Context, session *domain.Session) error

	// Delete removes the session. Deleting a missing key is a no-op.
	Delete(ctx context.Context, contactID, flowID string) error

	// List returns the keys of all live sessions, for housekeeping sweeps.
	List(ctx context.Context) ([]string, error)
}

// FlowStore persists flow documents.
type FlowStore interface {
	// Get retrieves a flow by id. Returns domain.ErrFlowNotFound if missing.
	Get(ctx context.Context, flowID string) (*domain.Flow, error)

	// Put saves a flow document.
	Put(ctx context.Context, f *domain.Flow) error

	// List returns all stored flows.
	List(ctx context.Context) ([]*domain.Flow, error)
}

// ContactResolver looks up contact attributes for Contact.<attr> conditions
// and variable resolution.
type ContactResolver interface {
	Resolve(ctx context.Context, contactID string) (domain.Contact, error)
}
