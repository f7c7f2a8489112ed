package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/dualrate/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// subscriberBuffer is the per-connection backlog before lines are skipped
	subscriberBuffer = 256
	writeWait        = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Source provides live output lines
type Source interface {
	Subscribe(ctx context.Context, buffer int) (<-chan ports.Line, error)
}

// Handler handles WebSocket connections
type Handler struct {
	source Source
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(source Source, logger *zap.Logger) *Handler {
	return &Handler{
		source: source,
		logger: logger,
	}
}

// HandleOutputStream streams worker output lines to the client
func (h *Handler) HandleOutputStream(c *gin.Context) {
	worker := c.Query("worker")

	// Upgrade connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("worker", worker),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	lines, err := h.source.Subscribe(ctx, subscriberBuffer)
	if err != nil {
		h.logger.Error("failed to subscribe to output", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "output closed"),
			time.Now().Add(writeWait))
		return
	}

	// The client never sends anything; reading detects when it goes away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	// Send lines to client
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}

			// Only send lines for the requested worker
			if worker != "" && line.Worker != worker {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(line); err != nil {
				h.logger.Debug("failed to write message", zap.Error(err))
				return
			}
		}
	}
}
