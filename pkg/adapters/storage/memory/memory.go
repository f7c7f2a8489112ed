package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/dualrate/pkg/adapters/storage"
	"github.com/aescanero/dualrate/pkg/ports"
)

// InMemoryStatusStorage implements StatusStore using an in-memory map
type InMemoryStatusStorage struct {
	snapshots map[string]*ports.Snapshot
	mu        sync.RWMutex
}

// NewInMemoryStatusStorage creates a new in-memory status storage
func NewInMemoryStatusStorage() *InMemoryStatusStorage {
	return &InMemoryStatusStorage{
		snapshots: make(map[string]*ports.Snapshot),
	}
}

// SaveSnapshot stores a copy of the snapshot, replacing the previous one for the run
func (s *InMemoryStatusStorage) SaveSnapshot(ctx context.Context, snapshot *ports.Snapshot) error {
	if snapshot == nil || snapshot.RunID == "" {
		return fmt.Errorf("snapshot must have a run id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Deep copy to avoid mutations
	snapshotCopy := copySnapshot(snapshot)
	s.snapshots[snapshot.RunID] = snapshotCopy

	return nil
}

// LoadSnapshot returns a copy of the latest snapshot for a run
func (s *InMemoryStatusStorage) LoadSnapshot(ctx context.Context, runID string) (*ports.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrSnapshotNotFound, runID)
	}

	return copySnapshot(snapshot), nil
}

// List returns all run IDs that have a snapshot, sorted
func (s *InMemoryStatusStorage) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runIDs := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		runIDs = append(runIDs, id)
	}
	sort.Strings(runIDs)

	return runIDs, nil
}

// Close clears all snapshots
func (s *InMemoryStatusStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = make(map[string]*ports.Snapshot)
	return nil
}

func copySnapshot(snapshot *ports.Snapshot) *ports.Snapshot {
	snapshotCopy := *snapshot
	snapshotCopy.Workers = make([]ports.WorkerSnapshot, len(snapshot.Workers))
	copy(snapshotCopy.Workers, snapshot.Workers)
	return &snapshotCopy
}
