package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error messages shared with clients.
const (
	msgNoSession       = "No session loaded"
	msgSessionNotFound = "Session not found"
	msgPathNotFound    = "Path not found"
	msgProcessNotFound = "Process not found"
	msgWindowNotFound  = "Window not found"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var invalid *manifest.ValidationError
	var corrupt *session.CorruptDataError
	// corrupt records wrap the decoder's ValidationError, so check them first
	switch {
	case errors.As(err, &corrupt):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, windows.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": ...} with its mapped status.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, session.ErrNotFound):
		msg = msgSessionNotFound
	case errors.Is(err, windows.ErrNotFound):
		msg = msgWindowNotFound
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func notFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msg})
}
