package broadcast

import (
	"context"
	"sync"

	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/ports"
)

// Sink fans lines out to live subscribers without ever blocking a worker.
// A subscriber whose channel is full misses lines.
type Sink struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	closed      bool
	done        chan struct{}
}

type subscriber struct {
	ch chan ports.Line
}

// NewSink creates a new broadcast sink
func NewSink() *Sink {
	return &Sink{
		subscribers: make(map[*subscriber]struct{}),
		done:        make(chan struct{}),
	}
}

// Emit delivers the line to every subscriber that has room
func (s *Sink) Emit(ctx context.Context, line ports.Line) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return output.ErrSinkClosed
	}

	for sub := range s.subscribers {
		select {
		case sub.ch <- line:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving emitted lines until ctx is done or
// the sink is closed, at which point the channel is closed.
func (s *Sink) Subscribe(ctx context.Context, buffer int) (<-chan ports.Line, error) {
	if buffer < 1 {
		buffer = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, output.ErrSinkClosed
	}

	sub := &subscriber{ch: make(chan ports.Line, buffer)}
	s.subscribers[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			s.unsubscribe(sub)
		case <-s.done:
		}
	}()

	return sub.ch, nil
}

// Subscribers returns the number of live subscribers
func (s *Sink) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Close closes every subscriber channel
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	for sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, sub)
	}
	return nil
}

func (s *Sink) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[sub]; !ok {
		return
	}
	delete(s.subscribers, sub)
	close(sub.ch)
}
