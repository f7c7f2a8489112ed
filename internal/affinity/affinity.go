// Package affinity pins the calling OS thread to a CPU and reports thread ids.
//
// Platform-specific implementations live in files guarded by build tags.
// Callers must hold runtime.LockOSThread for the pin to mean anything.
package affinity

// SetAffinity pins the current OS thread to the given logical CPU.
// On unsupported platforms it returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// ThreadID returns the OS thread id of the caller, or -1 when unknown.
func ThreadID() int {
	return threadIDPlatform()
}
