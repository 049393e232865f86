// Package file provides a filesystem-backed flow store: one JSON document
// per flow, named <id>.json, in a configured directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

// FlowStore implements ports.FlowStore on a directory of JSON documents.
type FlowStore struct {
	dir string
}

// NewFlowStore creates the store, making the directory if needed.
func NewFlowStore(dir string) (*FlowStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flow store dir: %w", err)
	}
	return &FlowStore{dir: dir}, nil
}

func (s *FlowStore) path(flowID string) string {
	return filepath.Join(s.dir, flowID+".json")
}

// Get loads and validates a flow document.
func (s *FlowStore) Get(ctx context.Context, flowID string) (*domain.Flow, error) {
	data, err := os.ReadFile(s.path(flowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("read flow %s: %w", flowID, err)
	}
	return flow.Deserialize(data)
}

// Put writes the flow document atomically (temp file + rename).
func (s *FlowStore) Put(ctx context.Context, f *domain.Flow) error {
	data, err := flow.Serialize(f)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".flow-*")
	if err != nil {
		return fmt.Errorf("write flow %s: %w", f.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write flow %s: %w", f.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write flow %s: %w", f.ID, err)
	}
	return os.Rename(tmp.Name(), s.path(f.ID))
}

// List loads every flow document in the directory.
func (s *FlowStore) List(ctx context.Context) ([]*domain.Flow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	var flows []*domain.Flow
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		f, err := s.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}
