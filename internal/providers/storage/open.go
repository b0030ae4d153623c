package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
)

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates the backend named by driver. The returned close function is
// never nil.
func Open(driver, dir, sqlitePath string) (session.Backend, func() error, error) {
	noop := func() error { return nil }

	switch driver {
	case DriverFile, "":
		b, err := NewFileBackend(dir)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case DriverSQLite:
		b, err := OpenSQLite(sqlitePath)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case DriverMemory:
		return NewMemoryBackend(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// Instrument wraps backend so each call is timed and counted under name.
func Instrument(backend session.Backend, name string, metrics *monitoring.Metrics) session.Backend {
	if metrics == nil {
		return backend
	}
	return &instrumented{backend: backend, name: name, metrics: metrics}
}

type instrumented struct {
	backend session.Backend
	name    string
	metrics *monitoring.Metrics
}

func (i *instrumented) Write(ctx context.Context, id string, data []byte) error {
	timer := monitoring.NewTimer(i.metrics, i.name, "write")
	err := i.backend.Write(ctx, id, data)
	timer.Stop(status(err))
	return err
}

func (i *instrumented) Read(ctx context.Context, id string) ([]byte, error) {
	timer := monitoring.NewTimer(i.metrics, i.name, "read")
	data, err := i.backend.Read(ctx, id)
	timer.Stop(status(err))
	return data, err
}

func (i *instrumented) List(ctx context.Context) ([]string, error) {
	timer := monitoring.NewTimer(i.metrics, i.name, "list")
	ids, err := i.backend.List(ctx)
	timer.Stop(status(err))
	return ids, err
}

func (i *instrumented) Delete(ctx context.Context, id string) error {
	timer := monitoring.NewTimer(i.metrics, i.name, "delete")
	err := i.backend.Delete(ctx, id)
	timer.Stop(status(err))
	return err
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, session.ErrRecordNotFound):
		return "not_found"
	default:
		return "error"
	}
}
