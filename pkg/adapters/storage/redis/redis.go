package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dualrate/pkg/adapters/storage"
	"github.com/aescanero/dualrate/pkg/ports"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statusKeyPrefix = "dualrate:status:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusStorage implements StatusStore using Redis
type StatusStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStatusStorage creates a new Redis status storage
func NewStatusStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatusStorage {
	return &StatusStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveSnapshot persists the snapshot for its run, refreshing the TTL
func (s *StatusStorage) SaveSnapshot(ctx context.Context, snapshot *ports.Snapshot) error {
	if snapshot == nil || snapshot.RunID == "" {
		return fmt.Errorf("snapshot must have a run id")
	}

	key := getStatusKey(snapshot.RunID)

	// Serialize snapshot
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Save to Redis with TTL
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("snapshot saved",
		zap.String("run_id", snapshot.RunID),
		zap.Bool("healthy", snapshot.Healthy))

	return nil
}

// LoadSnapshot retrieves the latest snapshot for a run
func (s *StatusStorage) LoadSnapshot(ctx context.Context, runID string) (*ports.Snapshot, error) {
	key := getStatusKey(runID)

	// Get from Redis
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrSnapshotNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	// Deserialize snapshot
	var snapshot ports.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// List returns all run IDs that have a stored snapshot
func (s *StatusStorage) List(ctx context.Context) ([]string, error) {
	pattern := statusKeyPrefix + "*"

	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	// Extract run IDs from keys
	runIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(statusKeyPrefix) {
			runIDs = append(runIDs, key[len(statusKeyPrefix):])
		}
	}

	return runIDs, nil
}

// Close is a no-op; the Redis client is closed by the caller
func (s *StatusStorage) Close() error {
	return nil
}

// getStatusKey returns the Redis key for a run snapshot
func getStatusKey(runID string) string {
	return statusKeyPrefix + runID
}
