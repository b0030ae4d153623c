// Package logging builds the zap loggers used across sessiond.
//
// Production mode writes JSON for machine parsing; development mode writes
// colored console output. Domain packages take a plain *zap.Logger and the
// server hands each one a Component child so entries carry their origin.
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level})
//	store := session.NewStore(backend).WithLogger(logger.Component("store"))
package logging
