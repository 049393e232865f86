package memory

import (
	"context"
	"sync"

	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

// FlowStore implements ports.FlowStore in memory. Documents are stored in
// their serialized form so callers never share mutable graph state.
type FlowStore struct {
	docs map[string][]byte
	mu   sync.RWMutex
}

// NewFlowStore creates an empty in-memory flow store.
func NewFlowStore() *FlowStore {
	return &FlowStore{docs: make(map[string][]byte)}
}

// Put saves a flow document.
func (s *FlowStore) Put(ctx context.Context, f *domain.Flow) error {
	data, err := flow.Serialize(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[f.ID] = data
	return nil
}

// Get retrieves a flow by id.
func (s *FlowStore) Get(ctx context.Context, flowID string) (*domain.Flow, error) {
	s.mu.RLock()
	data, ok := s.docs[flowID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow.Deserialize(data)
}

// List returns all stored flows.
func (s *FlowStore) List(ctx context.Context) ([]*domain.Flow, error) {
	s.mu.RLock()
	raw := make([][]byte, 0, len(s.docs))
	for _, data := range s.docs {
		raw = append(raw, data)
	}
	s.mu.RUnlock()

	flows := make([]*domain.Flow, 0, len(raw))
	for _, data := range raw {
		f, err := flow.Deserialize(data)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}
