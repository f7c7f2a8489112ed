package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/aescanero/dualrate/internal/application/workers"
	"github.com/aescanero/dualrate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// syncBuffer is a bytes.Buffer safe for the two workers to share
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Workers: config.WorkerConfig{
			FastInterval:        time.Millisecond,
			HealthCheckInterval: time.Hour,
		},
		Output: config.OutputConfig{
			Sinks:        []string{config.SinkStdout},
			SerialBuffer: 16,
			StreamBuffer: 16,
			StatusStore:  config.StoreMemory,
		},
		Redis: config.RedisConfig{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		},
		Timeouts: config.TimeoutConfig{ShutdownTimeout: 5 * time.Second},
	}
}

func runWithTimeout(t *testing.T, ctx context.Context, cfg *config.Config, out *syncBuffer, spawner workers.Spawner) int {
	t.Helper()
	require.NoError(t, cfg.Validate())

	result := make(chan int, 1)
	go func() {
		result <- run(ctx, cfg, zap.NewNop(), out, spawner)
	}()

	select {
	case code := <-result:
		return code
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
		return 0
	}
}

func TestRun_LaunchFailure(t *testing.T) {
	var calls int
	spawner := workers.SpawnerFunc(func(spec workers.Spec, body func(int)) error {
		calls++
		return syscall.EAGAIN
	})

	out := &syncBuffer{}
	code := runWithTimeout(t, context.Background(), testConfig(), out, spawner)

	assert.Equal(t, -1, code)
	assert.Equal(t, fmt.Sprintf("Error creating the thread. Code %d\n", int(syscall.EAGAIN)), out.String())
	assert.Equal(t, 1, calls)
}

func TestRun_BoundedEmits(t *testing.T) {
	cfg := testConfig()
	cfg.Workers.MaxEmits = 3

	out := &syncBuffer{}
	code := runWithTimeout(t, context.Background(), cfg, out, nil)
	require.Equal(t, 0, code)

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "Fast function \n"))
	assert.Equal(t, 3, strings.Count(text, "Slow function \n"))
	assert.Equal(t, 6, strings.Count(text, "\n"))
	assert.True(t, strings.HasPrefix(text, "Fast function \n") || strings.HasPrefix(text, "Slow function \n"))
}

func TestRun_SerialSinkFlushesOnShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Workers.MaxEmits = 4
	cfg.Output.Sinks = []string{config.SinkSerial}

	out := &syncBuffer{}
	code := runWithTimeout(t, context.Background(), cfg, out, nil)
	require.Equal(t, 0, code)

	assert.Equal(t, 4, strings.Count(out.String(), "Fast function \n"))
	assert.Equal(t, 4, strings.Count(out.String(), "Slow function \n"))
}

func TestRun_CancelledContextStopsWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}

	go func() {
		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), "Slow function \n")
		}, 5*time.Second, 5*time.Millisecond)
		cancel()
	}()

	code := runWithTimeout(t, ctx, testConfig(), out, nil)
	assert.Equal(t, 0, code)

	after := out.String()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, out.String())
}

func TestRun_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Sinks = []string{config.SinkStdout, config.SinkRedis}

	out := &syncBuffer{}
	code := runWithTimeout(t, context.Background(), cfg, out, nil)

	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
}

func TestRun_GRPCPortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := testConfig()
	cfg.API.GRPCPort = listener.Addr().(*net.TCPAddr).Port

	code := runWithTimeout(t, context.Background(), cfg, &syncBuffer{}, nil)
	assert.Equal(t, 1, code)
}

func TestInitLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger := initLogger(level)
		require.NotNil(t, logger)
	}

	assert.True(t, initLogger("debug").Core().Enabled(zap.DebugLevel))
	assert.False(t, initLogger("warn").Core().Enabled(zap.InfoLevel))
}
