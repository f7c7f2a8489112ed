package workers

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/dualrate/pkg/ports"
	"go.uber.org/zap"
)

// HealthMonitor monitors worker health
type HealthMonitor struct {
	pair     *Pair
	store    ports.StatusStore
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// HealthStatus represents the health status of the worker pair
type HealthStatus struct {
	RunID          string       `json:"run_id"`
	State          PairState    `json:"state"`
	TotalWorkers   int          `json:"total_workers"`
	RunningWorkers int          `json:"running_workers"`
	StoppedWorkers int          `json:"stopped_workers"`
	Healthy        bool         `json:"healthy"`
	Timestamp      time.Time    `json:"timestamp"`
	Workers        []WorkerInfo `json:"workers"`
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(pair *Pair, interval time.Duration, store ports.StatusStore, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pair:     pair,
		store:    store,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the health monitor. A non-positive interval disables it.
func (h *HealthMonitor) Start() {
	if h.interval <= 0 {
		return
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// run is the main health monitoring loop
func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth logs worker status, records metrics and saves a snapshot
func (h *HealthMonitor) checkHealth() {
	status := h.GetStatus()

	fields := []zap.Field{
		zap.String("run_id", status.RunID),
		zap.String("state", string(status.State)),
		zap.Int("running", status.RunningWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Bool("healthy", status.Healthy),
	}
	for _, w := range status.Workers {
		fields = append(fields, zap.Uint64(string(w.ID)+"_emits", w.Emits))
	}
	h.logger.Info("worker pair health check", fields...)

	// Record metrics
	h.pair.metrics.RecordWorkerStatus(status.RunningWorkers, status.StoppedWorkers)

	// Warn if pair is unhealthy
	if !status.Healthy {
		h.logger.Warn("worker pair is unhealthy",
			zap.Int("running", status.RunningWorkers),
			zap.Int("total", status.TotalWorkers))
	}

	if h.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	if err := h.store.SaveSnapshot(ctx, status.Snapshot()); err != nil {
		h.logger.Error("failed to save status snapshot",
			zap.String("run_id", status.RunID),
			zap.Error(err))
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	workers := h.pair.GetStatus()

	var running, stopped int
	for _, w := range workers {
		switch w.Status {
		case WorkerStatusRunning:
			running++
		case WorkerStatusStopped, WorkerStatusFailed:
			stopped++
		}
	}

	total := len(workers)
	healthy := total > 0 && running == total

	return &HealthStatus{
		RunID:          h.pair.RunID(),
		State:          h.pair.State(),
		TotalWorkers:   total,
		RunningWorkers: running,
		StoppedWorkers: stopped,
		Healthy:        healthy,
		Timestamp:      time.Now(),
		Workers:        workers,
	}
}

// IsHealthy returns true if both workers are running
func (h *HealthMonitor) IsHealthy() bool {
	status := h.GetStatus()
	return status.Healthy
}

// Snapshot converts the status into its persisted form
func (s *HealthStatus) Snapshot() *ports.Snapshot {
	snapshot := &ports.Snapshot{
		RunID:     s.RunID,
		Healthy:   s.Healthy,
		Timestamp: s.Timestamp,
		Workers:   make([]ports.WorkerSnapshot, 0, len(s.Workers)),
	}
	for _, w := range s.Workers {
		snapshot.Workers = append(snapshot.Workers, ports.WorkerSnapshot{
			ID:       string(w.ID),
			Status:   string(w.Status),
			Interval: w.Interval,
			Emits:    w.Emits,
			ThreadID: w.ThreadID,
		})
	}
	return snapshot
}
