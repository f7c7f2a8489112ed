// Package output provides output sink implementations.
//
// Implementations:
//   - stdout: direct writes, one Write call per line
//   - serial: single consumer goroutine owning the writer
//   - redis: Redis Streams mirror, batched and non-blocking
//   - broadcast: fan-out to live subscribers (websocket)
//   - memory: In-memory for testing
//
// Multi combines several sinks into one.
package output
