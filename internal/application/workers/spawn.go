package workers

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"

	"github.com/aescanero/dualrate/internal/affinity"
)

// Spawner launches a worker body on a new unit of concurrent execution.
// Spawn returns only once the worker is either running or known to have failed.
type Spawner interface {
	Spawn(spec Spec, body func(threadID int)) error
}

// SpawnerFunc adapts a function to the Spawner interface
type SpawnerFunc func(spec Spec, body func(threadID int)) error

// Spawn calls f
func (f SpawnerFunc) Spawn(spec Spec, body func(threadID int)) error {
	return f(spec, body)
}

// ThreadSpawner runs each worker on a goroutine locked to its own OS thread,
// pinned to spec.CPU unless it is NoCPU.
type ThreadSpawner struct{}

// NewThreadSpawner creates the default spawner
func NewThreadSpawner() *ThreadSpawner {
	return &ThreadSpawner{}
}

// Spawn starts the worker thread and waits for it to report back
func (s *ThreadSpawner) Spawn(spec Spec, body func(threadID int)) error {
	ready := make(chan error, 1)

	go func() {
		// Never unlocked: the thread exits together with the worker.
		runtime.LockOSThread()

		if spec.CPU != NoCPU {
			if err := affinity.SetAffinity(spec.CPU); err != nil {
				ready <- err
				return
			}
		}

		ready <- nil
		body(affinity.ThreadID())
	}()

	return <-ready
}

// WorkerLaunchError is returned when a worker could not be created
type WorkerLaunchError struct {
	Worker Identity
	// Code is the OS error number when one is available, -1 otherwise
	Code int
	Err  error
}

func newWorkerLaunchError(id Identity, err error) *WorkerLaunchError {
	code := -1
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = int(errno)
	}

	return &WorkerLaunchError{
		Worker: id,
		Code:   code,
		Err:    err,
	}
}

func (e *WorkerLaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s worker (code %d): %v", e.Worker, e.Code, e.Err)
}

func (e *WorkerLaunchError) Unwrap() error {
	return e.Err
}
