package serial

import (
	"context"
	"io"
	"sync"

	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/ports"
	"go.uber.org/zap"
)

// Sink hands lines to a single consumer goroutine that owns the writer.
//
// Workers never touch the writer directly, so whole lines never interleave.
// Emit blocks when the buffer is full, which slows the emitting worker down
// instead of dropping output.
type Sink struct {
	w      io.Writer
	logger *zap.Logger
	lines  chan ports.Line
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewSink creates a serial sink and starts its consumer
func NewSink(w io.Writer, buffer int, logger *zap.Logger) *Sink {
	if buffer < 1 {
		buffer = 1
	}

	s := &Sink{
		w:      w,
		logger: logger,
		lines:  make(chan ports.Line, buffer),
		done:   make(chan struct{}),
	}

	go s.consume()

	return s
}

// Emit queues the line for the consumer
func (s *Sink) Emit(ctx context.Context, line ports.Line) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return output.ErrSinkClosed
	}

	select {
	case s.lines <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lines and waits until the queued ones are written
func (s *Sink) Close() error {
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

// consume is the only goroutine writing to the underlying writer
func (s *Sink) consume() {
	defer close(s.done)

	for line := range s.lines {
		if _, err := io.WriteString(s.w, line.Text); err != nil {
			s.logger.Debug("serial sink write failed",
				zap.String("worker_id", line.Worker),
				zap.Error(err))
		}
	}
}
