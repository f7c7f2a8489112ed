// Package ports defines the interfaces the worker pair depends on.
//
// Adapters under pkg/adapters implement these for stdout, Redis and
// Prometheus; tests use the in-memory variants.
package ports

import (
	"context"
	"time"
)

// Line is a single emit produced by a worker
type Line struct {
	Worker    string    `json:"worker"`
	Text      string    `json:"text"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// OutputSink is the shared output stream written by all workers.
//
// Emit is called concurrently from every worker with no extra locking.
type OutputSink interface {
	Emit(ctx context.Context, line Line) error
	Close() error
}

// MetricsCollector records worker pair metrics
type MetricsCollector interface {
	IncEmits(worker string)
	IncEmitErrors(worker string)
	IncLaunchFailures(worker string)
	SetSuspendInterval(worker string, interval time.Duration)
	RecordWorkerStatus(running, stopped int)
}

// WorkerSnapshot is the persisted view of one worker
type WorkerSnapshot struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Interval time.Duration `json:"interval"`
	Emits    uint64        `json:"emits"`
	ThreadID int           `json:"thread_id"`
}

// Snapshot is the persisted status of a run
type Snapshot struct {
	RunID     string           `json:"run_id"`
	Healthy   bool             `json:"healthy"`
	Timestamp time.Time        `json:"timestamp"`
	Workers   []WorkerSnapshot `json:"workers"`
}

// StatusStore persists run snapshots
type StatusStore interface {
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	LoadSnapshot(ctx context.Context, runID string) (*Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}
