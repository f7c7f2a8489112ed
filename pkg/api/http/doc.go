// Package http provides the HTTP status API.
//
// The HTTP server exposes endpoints for:
//   - Health checks
//   - Prometheus metrics
//   - Worker status queries
//   - Persisted run snapshots
//
// The live output stream is mounted separately through SetupWebSocket.
package http
