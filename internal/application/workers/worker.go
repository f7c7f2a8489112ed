package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/dualrate/pkg/ports"
	"go.uber.org/zap"
)

// Identity names a worker
type Identity string

const (
	IdentityFast Identity = "fast"
	IdentitySlow Identity = "slow"
)

// Fixed worker output
const (
	FastMessage = "Fast function \n"
	SlowMessage = "Slow function \n"
)

// SlowFactor is the ratio between the slow and the fast interval
const SlowFactor = 4

// NoCPU leaves a worker thread unpinned
const NoCPU = -1

// Spec configures a single worker
type Spec struct {
	Identity Identity
	Message  string
	Interval time.Duration
	CPU      int
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusNotStarted WorkerStatus = "not_started"
	WorkerStatusRunning    WorkerStatus = "running"
	WorkerStatusStopped    WorkerStatus = "stopped"
	WorkerStatusFailed     WorkerStatus = "failed"
)

// WorkerInfo is a point-in-time view of a worker
type WorkerInfo struct {
	ID        Identity      `json:"id"`
	Status    WorkerStatus  `json:"status"`
	Interval  time.Duration `json:"interval"`
	CPU       int           `json:"cpu"`
	ThreadID  int           `json:"thread_id"`
	Emits     uint64        `json:"emits"`
	StartedAt time.Time     `json:"started_at,omitempty"`
}

// worker represents a single looping worker
type worker struct {
	spec  Spec
	pair  *Pair
	emits atomic.Uint64

	mu        sync.RWMutex
	status    WorkerStatus
	threadID  int
	startedAt time.Time
}

func newWorker(spec Spec, pair *Pair) *worker {
	return &worker{
		spec:     spec,
		pair:     pair,
		status:   WorkerStatusNotStarted,
		threadID: -1,
	}
}

// run is the main worker loop: emit, then suspend, until ctx is cancelled
// or the emit limit is reached
func (w *worker) run(ctx context.Context, threadID int) {
	defer w.pair.wg.Done()

	w.mu.Lock()
	w.threadID = threadID
	w.startedAt = time.Now()
	w.mu.Unlock()

	logger := w.pair.logger.With(zap.String("worker_id", string(w.spec.Identity)))
	logger.Info("worker started",
		zap.Int("thread_id", threadID),
		zap.Int("cpu", w.spec.CPU),
		zap.Duration("interval", w.spec.Interval))

	timer := time.NewTimer(w.spec.Interval)
	timer.Stop()

	defer func() {
		timer.Stop()
		w.setStatus(WorkerStatusStopped)
		logger.Info("worker stopped", zap.Uint64("emits", w.emits.Load()))
	}()

	maxEmits := w.pair.cfg.MaxEmits
	for {
		if ctx.Err() != nil {
			return
		}

		w.emit(ctx)

		if maxEmits > 0 && w.emits.Load() >= maxEmits {
			return
		}

		if !w.suspend(ctx, timer) {
			return
		}
	}
}

// emit writes the worker's line to the shared sink
func (w *worker) emit(ctx context.Context) {
	id := string(w.spec.Identity)
	line := ports.Line{
		Worker:    id,
		Text:      w.spec.Message,
		Seq:       w.emits.Add(1),
		Timestamp: time.Now(),
	}

	if err := w.pair.sink.Emit(ctx, line); err != nil {
		w.pair.metrics.IncEmitErrors(id)
		w.pair.logger.Debug("emit failed",
			zap.String("worker_id", id),
			zap.Uint64("seq", line.Seq),
			zap.Error(err))
		return
	}
	w.pair.metrics.IncEmits(id)
}

// suspend waits for the worker interval. It returns false if ctx was
// cancelled first.
func (w *worker) suspend(ctx context.Context, timer *time.Timer) bool {
	timer.Reset(w.spec.Interval)

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

func (w *worker) info() WorkerInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return WorkerInfo{
		ID:        w.spec.Identity,
		Status:    w.status,
		Interval:  w.spec.Interval,
		CPU:       w.spec.CPU,
		ThreadID:  w.threadID,
		Emits:     w.emits.Load(),
		StartedAt: w.startedAt,
	}
}
