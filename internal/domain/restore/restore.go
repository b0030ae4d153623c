// Package restore applies a session manifest to live state.
//
// Restore is not transactional. Each VFS entry and process is applied on its
// own; a failure is logged and reported, then the pass moves on. Settings are
// the exception: the first failing key stops the session restore before any
// window is reopened.
package restore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
)

// VFS is the write side of the virtual filesystem.
type VFS interface {
	WriteFile(ctx context.Context, path, content string) error
	// Mkdir must succeed when the directory already exists.
	Mkdir(ctx context.Context, path string) error
}

// SettingsSink applies one setting at a time.
type SettingsSink interface {
	Set(ctx context.Context, key string, value interface{}) error
}

// Restorer writes manifests back through its collaborators.
type Restorer struct {
	vfs      VFS
	settings SettingsSink
	env      serializer.Environment
	registry *serializer.Registry
	logger   *zap.Logger
}

func New(vfs VFS, settings SettingsSink, env serializer.Environment, registry *serializer.Registry) *Restorer {
	return &Restorer{
		vfs:      vfs,
		settings: settings,
		env:      env,
		registry: registry,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger for per-entry failures.
func (r *Restorer) WithLogger(logger *zap.Logger) *Restorer {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Depth is the number of non-empty "/" segments in path.
func Depth(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// Order returns the snapshot's paths shallowest first, ties by path, so a
// directory is always applied before anything inside it.
func Order(snapshot map[string]manifest.VFSNode) []string {
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		di, dj := Depth(paths[i]), Depth(paths[j])
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	return paths
}

// RestoreVFS recreates directories and writes file contents. Applying the
// same snapshot twice leaves the VFS as applying it once.
func (r *Restorer) RestoreVFS(ctx context.Context, snapshot map[string]manifest.VFSNode) []report.Outcome {
	outcomes := make([]report.Outcome, 0, len(snapshot))

	for _, path := range Order(snapshot) {
		node := snapshot[path]

		var err error
		switch {
		case node.IsDirectory:
			err = r.vfs.Mkdir(ctx, path)
		case !node.IsFile:
			outcomes = append(outcomes, report.Outcome{Path: path, Status: report.StatusSkipped, Reason: "not a file or directory"})
			continue
		case node.Content == nil:
			outcomes = append(outcomes, report.Outcome{Path: path, Status: report.StatusSkipped, Reason: "no captured content"})
			continue
		default:
			err = r.vfs.WriteFile(ctx, path, *node.Content)
		}

		if err != nil {
			r.logger.Error("Failed to restore VFS entry", zap.String("path", path), zap.Error(err))
			outcomes = append(outcomes, report.Failed(path, report.StatusFailed, err))
			continue
		}
		outcomes = append(outcomes, report.New(path, report.StatusRestored))
	}

	return outcomes
}

// RestoreProcesses reopens windows in manifest order.
func (r *Restorer) RestoreProcesses(ctx context.Context, processes []manifest.ProcessDescriptor) []report.Outcome {
	outcomes := make([]report.Outcome, 0, len(processes))

	for _, p := range processes {
		id := p.WindowState.ID

		s, ok := r.registry.Lookup(p.Type)
		if !ok {
			r.logger.Warn("No serializer registered for app type",
				zap.String("app_type", p.Type),
				zap.String("window_id", id),
			)
			outcomes = append(outcomes, report.Outcome{Path: id, Status: report.StatusSkipped, Reason: "no serializer for " + p.Type})
			continue
		}

		if err := r.deserialize(ctx, s, p); err != nil {
			r.logger.Error("Failed to restore process",
				zap.String("app_type", p.Type),
				zap.String("window_id", id),
				zap.Error(err),
			)
			outcomes = append(outcomes, report.Failed(id, report.StatusFailed, err))
			continue
		}
		outcomes = append(outcomes, report.New(id, report.StatusRestored))
	}

	return outcomes
}

// RestoreSettings applies settings in key order and stops at the first
// failure. Keys applied before the failure stay applied.
func (r *Restorer) RestoreSettings(ctx context.Context, settings map[string]interface{}) error {
	_, err := r.restoreSettings(ctx, settings)
	return err
}

func (r *Restorer) restoreSettings(ctx context.Context, settings map[string]interface{}) ([]report.Outcome, error) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outcomes := make([]report.Outcome, 0, len(keys))
	for _, k := range keys {
		if err := r.settings.Set(ctx, k, settings[k]); err != nil {
			outcomes = append(outcomes, report.Failed(k, report.StatusFailed, err))
			return outcomes, fmt.Errorf("failed to restore setting %q: %w", k, err)
		}
		outcomes = append(outcomes, report.New(k, report.StatusRestored))
	}
	return outcomes, nil
}

// RestoreSession validates m and then restores the VFS, settings, and
// processes in that order.
func (r *Restorer) RestoreSession(ctx context.Context, m *manifest.Manifest) (*report.Report, error) {
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}

	rep := &report.Report{}
	rep.VFS = r.RestoreVFS(ctx, m.VFS)

	var err error
	rep.Settings, err = r.restoreSettings(ctx, m.Settings)
	if err != nil {
		r.logger.Error("Session restore aborted", zap.Error(err))
		return rep, err
	}

	rep.Processes = r.RestoreProcesses(ctx, m.Processes)

	r.logger.Info("Session restored",
		zap.Int("vfs_restored", report.Count(rep.VFS, report.StatusRestored)),
		zap.Int("vfs_failed", report.Count(rep.VFS, report.StatusFailed)),
		zap.Int("processes_restored", report.Count(rep.Processes, report.StatusRestored)),
	)
	return rep, nil
}

func (r *Restorer) deserialize(ctx context.Context, s serializer.Serializer, p manifest.ProcessDescriptor) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("deserializer panicked: %v", rec)
		}
	}()
	return s.Deserialize(ctx, r.env, p.WindowState, p.AppState)
}
