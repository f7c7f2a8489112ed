// Package storage provides run status storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory, the default
package storage

import "errors"

// ErrSnapshotNotFound is returned when no snapshot exists for a run
var ErrSnapshotNotFound = errors.New("snapshot not found")
