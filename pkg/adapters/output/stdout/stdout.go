package stdout

import (
	"context"
	"io"
	"os"

	"github.com/aescanero/dualrate/pkg/ports"
)

// Sink writes lines straight to a writer with no buffering or locking.
//
// Each line is a single Write call, so the writer's own write primitive is
// the only synchronization between workers. *os.File satisfies that.
type Sink struct {
	w io.Writer
}

// NewSink creates a sink writing to w, or to os.Stdout when w is nil
func NewSink(w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{w: w}
}

// Emit writes the line text as is
func (s *Sink) Emit(ctx context.Context, line ports.Line) error {
	_, err := io.WriteString(s.w, line.Text)
	return err
}

// Close is a no-op; the writer belongs to the caller
func (s *Sink) Close() error {
	return nil
}
