package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	api "github.com/GriffinCanCode/AgentOS/sessiond/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/capture"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/restore"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/settings"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/storage"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
)

const restoreOnStartKey = "session.restore_on_start"

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	httpServer *http.Server

	store    *session.Store
	restorer *restore.Restorer
	settings *settings.Provider
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	hub      *ws.Hub

	closeStorage func() error
}

// NewServer wires the providers, domain services and routes described by cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	logger.Info("Initializing sessiond",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.Strings("mounts", cfg.Desktop.Mounts),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("sessiond", logger.Component("tracing"))

	mounts, err := filesystem.ParseMounts(cfg.Desktop.Mounts)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("invalid VFS mounts: %w", err)
	}
	vfs, err := filesystem.New(mounts...)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open VFS: %w", err)
	}
	vfs.WithLogger(logger.Component("vfs"))

	prefs, err := settings.NewProvider(cfg.Desktop.SettingsFile)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	prefs.WithLogger(logger.Component("settings"))

	wm := windows.NewManager().WithMetrics(metrics)
	registry := serializer.NewRegistry()
	if err := windows.RegisterPassthrough(registry, wm, cfg.Desktop.AppTypes...); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to register serializers: %w", err)
	}
	logger.Info("Serializers registered", zap.Strings("app_types", registry.Types()))

	backend, closeStorage, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Dir, cfg.Storage.SQLitePath)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	hub := ws.NewHub(logger.Component("ws"), metrics)
	store := session.NewStore(storage.Instrument(backend, cfg.Storage.Driver, metrics)).
		WithLogger(logger.Component("store")).
		OnActivate(func(id string, m *manifest.Manifest) {
			metrics.SetSessionActive(true)
			hub.Broadcast(ws.Event{Type: ws.EventActivated, SessionID: id, Data: m.Metadata})
		})

	capturer := capture.New(vfs, wm, prefs, registry).
		WithLogger(logger.Component("capture")).
		WithRoot(cfg.Desktop.CaptureRoot)
	restorer := restore.New(vfs, prefs, wm, registry).
		WithLogger(logger.Component("restore"))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(api.Deps{
		Store:    store,
		Capturer: capturer,
		Restorer: restorer,
		Windows:  wm,
		VFS:      vfs,
		Metrics:  metrics,
		Tracer:   tracer,
		Hub:      hub,
		Logger:   logger.Component("http"),
	})
	handlers.Register(router)

	var handler http.Handler = router
	if cfg.Server.Compression {
		if handler, err = compress(router); err != nil {
			hub.Close()
			tracer.Close()
			_ = closeStorage()
			return nil, err
		}
	}

	logger.Info("Server initialized successfully")

	return &Server{
		config: cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        store,
		restorer:     restorer,
		settings:     prefs,
		metrics:      metrics,
		tracer:       tracer,
		hub:          hub,
		closeStorage: closeStorage,
	}, nil
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	if n := s.config.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			zap.String("addr", ln.Addr().String()),
			zap.Int("max_connections", s.config.Server.MaxConnections),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// RestoreLatest restores the most recent stored session when the
// session.restore_on_start setting is true. It returns "" when nothing ran.
func (s *Server) RestoreLatest(ctx context.Context) (string, *report.Report, error) {
	setting, ok := s.settings.Setting(restoreOnStartKey)
	if enabled, _ := setting.Value.(bool); !ok || !enabled {
		return "", nil, nil
	}

	sessions, err := s.store.List(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(sessions) == 0 {
		s.logger.Info("No stored session to restore")
		return "", nil, nil
	}

	latest := sessions[0]
	for _, sum := range sessions[1:] {
		if sum.Timestamp.After(latest.Timestamp) {
			latest = sum
		}
	}

	m, err := s.store.Load(ctx, latest.ID)
	if err != nil {
		return latest.ID, nil, err
	}
	start := time.Now()
	rep, err := s.restorer.RestoreSession(ctx, m)
	s.metrics.RecordRestore(rep, time.Since(start))
	if err != nil {
		return latest.ID, rep, fmt.Errorf("failed to restore %s: %w", latest.ID, err)
	}

	s.logger.Info("Restored last session", zap.String("session_id", latest.ID))
	return latest.ID, rep, nil
}

// Close releases everything NewServer opened.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.hub.Close()
	s.tracer.Close()

	var errs []error
	if err := s.closeStorage(); err != nil {
		s.logger.Error("Failed to close storage", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	if err := s.logger.Sync(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
