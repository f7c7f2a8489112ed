package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/dualrate/internal/application/workers"
	"github.com/aescanero/dualrate/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/dualrate/pkg/adapters/output/memory"
	storagememory "github.com/aescanero/dualrate/pkg/adapters/storage/memory"
	"github.com/aescanero/dualrate/pkg/ports"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	server *Server
	pair   *workers.Pair
	store  *storagememory.InMemoryStatusStorage
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()

	reg := prom.NewRegistry()
	store := storagememory.NewInMemoryStatusStorage()

	var statusStore ports.StatusStore
	if withStore {
		statusStore = store
	}

	pair := workers.NewPair(workers.Config{
		RunID:               "run-1",
		FastInterval:        time.Millisecond,
		HealthCheckInterval: time.Hour,
	}, memory.NewSink(), prometheus.NewCollector(reg), statusStore, zap.NewNop())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pair.Shutdown(ctx)
	})

	server := NewServer(&Config{
		Pair:     pair,
		Store:    statusStore,
		Gatherer: reg,
		Logger:   zap.NewNop(),
	})

	return &testEnv{server: server, pair: pair, store: store}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, env.pair.Start())

	rec = env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status workers.HealthStatus
	decode(t, rec, &status)
	assert.True(t, status.Healthy)
	assert.Equal(t, "run-1", status.RunID)
	assert.Equal(t, 2, status.RunningWorkers)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, env.pair.Start())

	rec := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dualrate_suspend_interval_seconds{worker="slow"} 0.004`)
}

func TestListWorkers(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.get(t, "/api/v1/workers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID string               `json:"run_id"`
		State string               `json:"state"`
		Data  []workers.WorkerInfo `json:"data"`
	}
	decode(t, rec, &body)

	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "not_started", body.State)
	require.Len(t, body.Data, 2)
	assert.Equal(t, workers.IdentityFast, body.Data[0].ID)
	assert.Equal(t, workers.IdentitySlow, body.Data[1].ID)
	assert.Equal(t, 4*body.Data[0].Interval, body.Data[1].Interval)
}

func TestGetWorker(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.get(t, "/api/v1/workers/slow")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data workers.WorkerInfo `json:"data"`
	}
	decode(t, rec, &body)
	assert.Equal(t, workers.IdentitySlow, body.Data.ID)
	assert.Equal(t, 4*time.Millisecond, body.Data.Interval)

	rec = env.get(t, "/api/v1/workers/medium")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errBody ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, "WORKER_NOT_FOUND", errBody.Error.Code)
}

func TestRuns(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	rec := env.get(t, "/api/v1/runs/run-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, env.store.SaveSnapshot(ctx, &ports.Snapshot{
		RunID:   "run-1",
		Healthy: true,
		Workers: []ports.WorkerSnapshot{{ID: "fast", Status: "running", Emits: 12}},
	}))

	rec = env.get(t, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data  []string `json:"data"`
		Total int      `json:"total"`
	}
	decode(t, rec, &list)
	assert.Equal(t, []string{"run-1"}, list.Data)
	assert.Equal(t, 1, list.Total)

	rec = env.get(t, "/api/v1/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data ports.Snapshot `json:"data"`
	}
	decode(t, rec, &body)
	assert.True(t, body.Data.Healthy)
	require.Len(t, body.Data.Workers, 1)
	assert.Equal(t, uint64(12), body.Data.Workers[0].Emits)
}

func TestRuns_WithoutStore(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/api/v1/runs", "/api/v1/runs/run-1"} {
		rec := env.get(t, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.True(t, strings.Contains(rec.Body.String(), "STORE_NOT_AVAILABLE"), path)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.get(t, "/api/v1/threads")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
