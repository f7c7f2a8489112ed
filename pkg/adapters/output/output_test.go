package output_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/adapters/output/memory"
	"github.com/aescanero/dualrate/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	closeErr error
}

func (f *failingSink) Emit(ctx context.Context, line ports.Line) error {
	return output.ErrDropped
}

func (f *failingSink) Close() error {
	return f.closeErr
}

func TestMulti_EmitsToEverySink(t *testing.T) {
	first := memory.NewSink()
	second := memory.NewSink()
	multi := output.NewMulti(first, second)

	line := ports.Line{Worker: "fast", Text: "Fast function \n", Seq: 1}
	require.NoError(t, multi.Emit(context.Background(), line))

	assert.Equal(t, []ports.Line{line}, first.Lines())
	assert.Equal(t, []ports.Line{line}, second.Lines())
}

func TestMulti_FailingSinkDoesNotStopOthers(t *testing.T) {
	good := memory.NewSink()
	multi := output.NewMulti(&failingSink{}, good)

	err := multi.Emit(context.Background(), ports.Line{Worker: "slow", Text: "Slow function \n"})
	require.Error(t, err)
	assert.ErrorIs(t, err, output.ErrDropped)
	assert.Equal(t, 1, good.Count("slow"))
}

func TestMulti_CloseJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	good := memory.NewSink()
	multi := output.NewMulti(&failingSink{closeErr: boom}, good)

	err := multi.Close()
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, good.Emit(context.Background(), ports.Line{}), output.ErrSinkClosed)
}
