package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultBatchSize     = 256
	defaultFlushInterval = 100 * time.Millisecond
	flushTimeout         = 5 * time.Second
)

// StreamSink mirrors emitted lines into a Redis Stream.
//
// Emit never waits on Redis: lines go into a bounded buffer and a background
// goroutine pipelines XADD calls in batches. When the buffer is full the line
// is dropped and Emit returns output.ErrDropped.
type StreamSink struct {
	client        *redis.Client
	logger        *zap.Logger
	streamKey     string
	runID         string
	maxLen        int64
	batchSize     int
	flushInterval time.Duration

	lines chan ports.Line
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewStreamSink creates a Redis Streams sink for one run and starts its flusher
func NewStreamSink(client *redis.Client, runID string, buffer int, maxLen int64, logger *zap.Logger) *StreamSink {
	if buffer < 1 {
		buffer = 1
	}

	s := &StreamSink{
		client:        client,
		logger:        logger,
		streamKey:     getStreamKey(runID),
		runID:         runID,
		maxLen:        maxLen,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		lines:         make(chan ports.Line, buffer),
		done:          make(chan struct{}),
	}

	go s.run()

	return s
}

// StreamKey returns the Redis key lines are written to
func (s *StreamSink) StreamKey() string {
	return s.streamKey
}

// Emit queues the line without blocking
func (s *StreamSink) Emit(ctx context.Context, line ports.Line) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return output.ErrSinkClosed
	}

	select {
	case s.lines <- line:
		return nil
	default:
		return output.ErrDropped
	}
}

// Close flushes what is buffered and stops the flusher.
// The Redis client is closed by the caller.
func (s *StreamSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.lines)
	s.mu.Unlock()

	<-s.done
	return nil
}

// run batches lines and flushes on size or interval
func (s *StreamSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]ports.Line, 0, s.batchSize)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.flush(batch)
				return
			}
			batch = append(batch, line)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// flush writes a batch with a single pipeline round trip
func (s *StreamSink) flush(batch []ports.Line) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	for _, line := range batch {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.streamKey,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"run_id":    s.runID,
				"worker":    line.Worker,
				"seq":       strconv.FormatUint(line.Seq, 10),
				"text":      line.Text,
				"timestamp": line.Timestamp.UnixNano(),
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("failed to flush output stream",
			zap.String("stream", s.streamKey),
			zap.Int("lines", len(batch)),
			zap.Error(err))
		return
	}

	s.logger.Debug("output stream flushed",
		zap.String("stream", s.streamKey),
		zap.Int("lines", len(batch)))
}

// getStreamKey returns the Redis stream key for a run
func getStreamKey(runID string) string {
	return fmt.Sprintf("dualrate:output:%s", runID)
}
