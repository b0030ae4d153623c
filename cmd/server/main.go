package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessiond: %v\n", err)
		os.Exit(1)
	}

	port := flag.String("port", cfg.Server.Port, "Server port")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (console logs, debug level)")
	level := flag.String("log-level", cfg.Logging.Level, "Log level")
	storageDriver := flag.String("storage", cfg.Storage.Driver, "Storage driver: file, sqlite or memory")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Logging.Development = *dev
	cfg.Logging.Level = *level
	cfg.Storage.Driver = *storageDriver
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sessiond: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if !cfg.Logging.Development || flagSet("log-level") {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessiond: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if id, _, err := srv.RestoreLatest(ctx); err != nil {
		logger.Warn("Restore on start failed", zap.String("session_id", id), zap.Error(err))
	}

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if runErr != nil {
		logger.Fatal("Server error", zap.Error(runErr))
	}
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
