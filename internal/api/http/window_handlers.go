package http

import (
	"net/http"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
	"github.com/gin-gonic/gin"
)

// ListWindows lists live windows in creation order
func (h *Handlers) ListWindows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"windows": h.windows.Views(),
		"stats":   h.windows.Stats(),
	})
}

// OpenWindow opens a new focused window
func (h *Handlers) OpenWindow(c *gin.Context) {
	var req windows.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.windows.Open(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	view, _ := h.windows.View(w.ID())
	c.JSON(http.StatusCreated, gin.H{"window": view})
}

// UpdateWindowState changes title, geometry or app state of a window
func (h *Handlers) UpdateWindowState(c *gin.Context) {
	var update windows.StateUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	windowID := c.Param("id")
	if err := h.windows.SetState(windowID, update); err != nil {
		h.fail(c, err)
		return
	}
	view, _ := h.windows.View(windowID)
	c.JSON(http.StatusOK, gin.H{"window": view})
}

// FocusWindow raises a window to the top
func (h *Handlers) FocusWindow(c *gin.Context) {
	if !h.windows.Focus(c.Param("id")) {
		notFound(c, msgWindowNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CloseWindow closes a window
func (h *Handlers) CloseWindow(c *gin.Context) {
	if !h.windows.Close(c.Param("id")) {
		notFound(c, msgWindowNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
