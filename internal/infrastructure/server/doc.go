// Package server assembles sessiond from configuration.
//
// NewServer opens the VFS mounts, settings file, window registry and
// session storage, registers passthrough serializers for the configured app
// types, and mounts the HTTP routes behind the middleware stack (recovery,
// tracing, metrics, CORS, rate limiting). Run serves until its context is
// cancelled; Close releases storage and background goroutines.
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
