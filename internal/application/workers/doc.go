// Package workers implements the dual-rate worker pair.
//
// The pair runs two workers, fast and slow, each on its own goroutine locked
// to a dedicated OS thread. Every iteration a worker:
//   - Emits its fixed line to the shared output sink
//   - Suspends for its interval (slow is four times fast)
//
// Workers loop until the pair is shut down or, when configured, until they
// reach their emit limit. The health monitor logs worker status, records
// metrics and saves status snapshots.
package workers
