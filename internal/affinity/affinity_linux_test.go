//go:build linux

package affinity

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestThreadID(t *testing.T) {
	assert.Greater(t, ThreadID(), 0)
}

func TestSetAffinity_CurrentCPU(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var original unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &original))
	defer func() { _ = unix.SchedSetaffinity(0, &original) }()

	cpu := -1
	for i := 0; i < 1024; i++ {
		if original.IsSet(i) {
			cpu = i
			break
		}
	}
	require.GreaterOrEqual(t, cpu, 0)

	require.NoError(t, SetAffinity(cpu))

	var pinned unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &pinned))
	assert.Equal(t, 1, pinned.Count())
	assert.True(t, pinned.IsSet(cpu))
}

func TestSetAffinity_UnknownCPU(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := SetAffinity(1023)
	require.Error(t, err)

	var errno unix.Errno
	require.True(t, errors.As(err, &errno))
	assert.Equal(t, unix.EINVAL, errno)
}
