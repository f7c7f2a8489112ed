package workers

import (
	"sync"
	"testing"
	"time"
)

// recordingMetrics is an in-memory MetricsCollector
type recordingMetrics struct {
	mu             sync.Mutex
	emits          map[string]int
	emitErrors     map[string]int
	launchFailures map[string]int
	intervals      map[string]time.Duration
	running        int
	stopped        int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		emits:          map[string]int{},
		emitErrors:     map[string]int{},
		launchFailures: map[string]int{},
		intervals:      map[string]time.Duration{},
	}
}

func (m *recordingMetrics) IncEmits(worker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emits[worker]++
}

func (m *recordingMetrics) IncEmitErrors(worker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitErrors[worker]++
}

func (m *recordingMetrics) IncLaunchFailures(worker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchFailures[worker]++
}

func (m *recordingMetrics) SetSuspendInterval(worker string, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals[worker] = interval
}

func (m *recordingMetrics) RecordWorkerStatus(running, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = running
	m.stopped = stopped
}

func (m *recordingMetrics) get(counter map[string]int, worker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[worker]
}

// waitDone fails the test if ch is not closed within timeout
func waitDone(t *testing.T, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("not done after %s", timeout)
	}
}
