package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/dualrate/pkg/ports"
)

var (
	// ErrSinkClosed is returned when emitting to a closed sink
	ErrSinkClosed = errors.New("output sink closed")

	// ErrDropped is returned when a non-blocking sink had no room for a line
	ErrDropped = errors.New("output line dropped")
)

// Multi emits every line to each of its sinks in order
type Multi struct {
	sinks []ports.OutputSink
}

// NewMulti creates a sink that fans out to all given sinks
func NewMulti(sinks ...ports.OutputSink) *Multi {
	return &Multi{sinks: sinks}
}

// Emit writes the line to every sink. A failing sink does not stop the others.
func (m *Multi) Emit(ctx context.Context, line ports.Line) error {
	var errs []error
	for i, sink := range m.sinks {
		if err := sink.Emit(ctx, line); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors
func (m *Multi) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
