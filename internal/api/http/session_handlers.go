package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/shared/id"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var contentTypes = map[manifest.Format]string{
	manifest.FormatJSON: "application/json; charset=utf-8",
	manifest.FormatYAML: "application/yaml; charset=utf-8",
	manifest.FormatTOML: "application/toml; charset=utf-8",
}

// Import validates a posted manifest and stores it under a new id
func (h *Handlers) Import(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)
		return
	}

	m, err := manifest.Decode(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	sessionID := id.NewSessionID().String()
	if err := h.store.Save(c.Request.Context(), sessionID, m); err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.IncSessionsSaved()

	h.logger.Info("Session imported", zap.String("session_id", sessionID))
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID})
}

// Export returns a stored manifest and makes it the active session
func (h *Handlers) Export(c *gin.Context) {
	format, err := manifest.ParseFormat(c.Query("format"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.IncSessionsLoaded()

	data, err := manifest.EncodeAs(m, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypes[format], data)
}

// List summarizes every stored session
func (h *Handlers) List(c *gin.Context) {
	sessions, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Delete removes a stored session
func (h *Handlers) Delete(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), sessionID); err != nil {
		h.fail(c, err)
		return
	}
	h.broadcast(ws.Event{Type: ws.EventDeleted, SessionID: sessionID})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Inspect summarizes the active session
func (h *Handlers) Inspect(c *gin.Context) {
	overview, ok := h.inspector.Session()
	if !ok {
		notFound(c, msgNoSession)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// VFS lists the active session's files, or returns one node when path is set
func (h *Handlers) VFS(c *gin.Context) {
	if path := c.Query("path"); path != "" {
		node, ok := h.inspector.VFSNode(path)
		if !ok {
			if h.store.Active() == nil {
				notFound(c, msgNoSession)
			} else {
				notFound(c, msgPathNotFound)
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"vfs": node})
		return
	}

	entries, ok := h.inspector.VFS()
	if !ok {
		notFound(c, msgNoSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vfs": entries})
}

// VFSTree nests the active session's files under root
func (h *Handlers) VFSTree(c *gin.Context) {
	tree, ok := h.inspector.VFSTree(c.Query("root"))
	if !ok {
		notFound(c, msgNoSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": tree})
}

// Processes lists process summaries, or full descriptors of one app type
func (h *Handlers) Processes(c *gin.Context) {
	if appType := c.Query("type"); appType != "" {
		c.JSON(http.StatusOK, gin.H{"processes": h.inspector.ProcessesOfType(appType)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processes": h.inspector.Processes()})
}

// ProcessDetail returns one process descriptor by index
func (h *Handlers) ProcessDetail(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "process index must be an integer"})
		return
	}
	process, ok := h.inspector.ProcessDetail(index)
	if !ok {
		notFound(c, msgProcessNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"process": process})
}

// Capture snapshots the live desktop and stores it under a new id
func (h *Handlers) Capture(c *gin.Context) {
	ctx, end := h.span(c, "session.capture")
	start := time.Now()

	m, rep := h.capturer.CaptureSession(ctx)
	h.metrics.RecordCapture(rep, time.Since(start))

	sessionID := id.NewSessionID().String()
	if err := h.store.Save(ctx, sessionID, m); err != nil {
		end(err)
		h.fail(c, err)
		return
	}
	end(nil)
	h.metrics.IncSessionsSaved()

	h.logger.Info("Session captured",
		zap.String("session_id", sessionID),
		zap.Int("files", len(m.VFS)),
		zap.Int("processes", len(m.Processes)),
		zap.Int("lossy", report.Count(rep.VFS, report.StatusLossy)+report.Count(rep.Processes, report.StatusLossy)),
	)
	h.broadcast(ws.Event{Type: ws.EventCaptured, SessionID: sessionID, Data: m.Metadata})

	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID, "report": rep})
}

// Restore loads a stored session and recreates it on the live desktop.
// With replace=true, open windows are closed first.
func (h *Handlers) Restore(c *gin.Context) {
	sessionID := c.Param("id")
	replace, _ := strconv.ParseBool(c.Query("replace"))

	ctx, end := h.span(c, "session.restore")

	m, err := h.store.Load(ctx, sessionID)
	if err != nil {
		end(err)
		h.fail(c, err)
		return
	}
	h.metrics.IncSessionsLoaded()

	if replace && h.windows != nil {
		closed := h.windows.CloseAll()
		h.logger.Debug("Closed windows before restore", zap.Int("count", closed))
	}

	start := time.Now()
	rep, err := h.restorer.RestoreSession(ctx, m)
	h.metrics.RecordRestore(rep, time.Since(start))
	end(err)

	if err != nil {
		if rep == nil {
			h.fail(c, err)
			return
		}
		h.logger.Error("Restore aborted", zap.String("session_id", sessionID), zap.Error(err))
		_ = c.Error(err)
		c.AbortWithStatusJSON(statusFor(err), gin.H{
			"success":   false,
			"sessionId": sessionID,
			"error":     err.Error(),
			"report":    rep,
		})
		return
	}

	h.broadcast(ws.Event{Type: ws.EventRestored, SessionID: sessionID})
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID, "report": rep})
}
