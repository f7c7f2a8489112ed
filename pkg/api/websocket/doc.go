// Package websocket provides live worker output via WebSocket.
//
// Clients connect to /api/v1/output/ws to receive every line the workers
// emit as JSON. The optional worker query parameter narrows the stream to
// one worker, e.g. /api/v1/output/ws?worker=slow.
package websocket
