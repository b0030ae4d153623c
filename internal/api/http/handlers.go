package http

import (
	"context"
	"net/http"
	"time"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/capture"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/inspect"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/restore"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root and health endpoints.
const Version = "1.0.0"

// Deps are the collaborators the handlers drive.
type Deps struct {
	Store    *session.Store
	Capturer *capture.Capturer
	Restorer *restore.Restorer
	Windows  *windows.Manager
	VFS      *filesystem.VFS
	Metrics  *monitoring.Metrics
	Tracer   *tracing.Tracer
	Hub      *ws.Hub
	Logger   *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *session.Store
	inspector *inspect.Inspector
	capturer  *capture.Capturer
	restorer  *restore.Restorer
	windows   *windows.Manager
	vfs       *filesystem.VFS
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	hub       *ws.Hub
	logger    *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:     d.Store,
		inspector: inspect.New(d.Store),
		capturer:  d.Capturer,
		restorer:  d.Restorer,
		windows:   d.Windows,
		vfs:       d.VFS,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		hub:       d.Hub,
		logger:    logger,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.GET("/metrics/json", h.MetricsJSON)

	s := r.Group("/api/session")
	s.POST("/import", h.Import)
	s.GET("/export/:id", h.Export)
	s.GET("/list", h.List)
	s.DELETE("/delete/:id", h.Delete)
	s.GET("/inspect", h.Inspect)
	s.GET("/vfs", h.VFS)
	s.GET("/vfs/tree", h.VFSTree)
	s.GET("/processes", h.Processes)
	s.GET("/processes/:index", h.ProcessDetail)
	s.POST("/capture", h.Capture)
	s.POST("/restore/:id", h.Restore)
	if h.hub != nil {
		s.GET("/events", h.hub.HandleConnection)
	}

	w := r.Group("/api/windows")
	w.GET("", h.ListWindows)
	w.POST("", h.OpenWindow)
	w.POST("/:id/state", h.UpdateWindowState)
	w.POST("/:id/focus", h.FocusWindow)
	w.DELETE("/:id", h.CloseWindow)
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "sessiond",
		"version": Version,
	})
}

// Health reports store, window and VFS state
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	body := gin.H{
		"status":  "healthy",
		"version": Version,
		"store":   h.store.Stats(),
	}
	if h.windows != nil {
		body["windows"] = h.windows.Stats()
	}
	if h.vfs != nil {
		mounts := make([]gin.H, 0)
		for _, m := range h.vfs.Mounts() {
			usage, err := h.vfs.Usage(ctx, m.Name)
			if err != nil {
				mounts = append(mounts, gin.H{"mount": m.Name, "error": err.Error()})
				body["status"] = "degraded"
				continue
			}
			mounts = append(mounts, gin.H{"mount": m.Name, "usage": usage})
		}
		body["vfs"] = mounts
	}
	if h.hub != nil {
		body["subscribers"] = h.hub.Clients()
	}
	c.JSON(http.StatusOK, body)
}

// MetricsJSON returns the metrics snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// span starts a traced operation when a tracer is configured.
func (h *Handlers) span(c *gin.Context, name string) (context.Context, func(error)) {
	ctx := c.Request.Context()
	if h.tracer == nil {
		return ctx, func(error) {}
	}
	span, ctx := h.tracer.StartSpan(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.SetError(err)
		}
		h.tracer.Finish(span)
	}
}

func (h *Handlers) broadcast(ev ws.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}
