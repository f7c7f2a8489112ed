package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/dualrate/internal/application/workers"
	"github.com/aescanero/dualrate/pkg/adapters/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleHealth reports 200 while both workers run and 503 otherwise
func (s *Server) handleHealth(c *gin.Context) {
	status := s.pair.Health().GetStatus()

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// handleListWorkers handles listing both workers
func (s *Server) handleListWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id":    s.pair.RunID(),
		"state":     s.pair.State(),
		"data":      s.pair.GetStatus(),
		"timestamp": time.Now(),
	})
}

// handleGetWorker handles getting a single worker
func (s *Server) handleGetWorker(c *gin.Context) {
	workerID := c.Param("id")

	info, ok := s.pair.Worker(workers.Identity(workerID))
	if !ok {
		abortWithError(c, http.StatusNotFound, "WORKER_NOT_FOUND", "Worker not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      info,
		"timestamp": time.Now(),
	})
}

// handleListRuns handles listing runs with a persisted snapshot
func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		abortWithError(c, http.StatusServiceUnavailable, "STORE_NOT_AVAILABLE", "Status store is not configured")
		return
	}

	runs, err := s.store.List(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_ERROR",
				Message: "Failed to list runs",
				Details: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"total": len(runs),
	})
}

// handleGetRun handles getting the last snapshot of a run
func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		abortWithError(c, http.StatusServiceUnavailable, "STORE_NOT_AVAILABLE", "Status store is not configured")
		return
	}

	runID := c.Param("id")

	snapshot, err := s.store.LoadSnapshot(c.Request.Context(), runID)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		abortWithError(c, http.StatusNotFound, "RUN_NOT_FOUND", "Run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load snapshot", zap.String("run_id", runID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to load run")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snapshot,
	})
}
