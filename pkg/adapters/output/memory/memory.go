package memory

import (
	"context"
	"sync"

	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/ports"
)

// Sink records emitted lines in memory
// This is for testing purposes only
type Sink struct {
	mu     sync.RWMutex
	lines  []ports.Line
	closed bool
}

// NewSink creates a new in-memory sink
func NewSink() *Sink {
	return &Sink{}
}

// Emit appends the line
func (s *Sink) Emit(ctx context.Context, line ports.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return output.ErrSinkClosed
	}
	s.lines = append(s.lines, line)
	return nil
}

// Close marks the sink closed
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Lines returns a copy of everything emitted so far
func (s *Sink) Lines() []ports.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]ports.Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Count returns how many lines the given worker emitted
func (s *Sink) Count(worker string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, line := range s.lines {
		if line.Worker == worker {
			n++
		}
	}
	return n
}
