package capture

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
)

// DefaultRoot is where VFS capture starts when no root is configured.
const DefaultRoot = "home:/"

// VFS is the read side of the virtual filesystem.
type VFS interface {
	ReadDir(ctx context.Context, path string) ([]manifest.Stat, error)
	// ReadFile returns the file as text, or manifest.ErrUnreadableContent.
	ReadFile(ctx context.Context, path string) (string, error)
}

// WindowSource enumerates open windows in creation order.
type WindowSource interface {
	Windows() []manifest.WindowHandle
}

// SettingsSource returns a snapshot of user settings.
type SettingsSource interface {
	Get(ctx context.Context) (map[string]interface{}, error)
}

// Capturer reads live state through its collaborators.
type Capturer struct {
	vfs      VFS
	windows  WindowSource
	settings SettingsSource
	registry *serializer.Registry
	root     string
	logger   *zap.Logger
}

// New creates a capturer rooted at DefaultRoot
func New(vfs VFS, windows WindowSource, settings SettingsSource, registry *serializer.Registry) *Capturer {
	return &Capturer{
		vfs:      vfs,
		windows:  windows,
		settings: settings,
		registry: registry,
		root:     DefaultRoot,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger used for skipped paths and serializer failures.
func (c *Capturer) WithLogger(logger *zap.Logger) *Capturer {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithRoot changes the VFS root used by CaptureSession.
func (c *Capturer) WithRoot(root string) *Capturer {
	if root != "" {
		c.root = root
	}
	return c
}

// CaptureVFS snapshots every node under root. Traversal is pre-order and
// sequential; siblings keep the order the backend listed them in.
func (c *Capturer) CaptureVFS(ctx context.Context, root string) (map[string]manifest.VFSNode, []report.Outcome) {
	snapshot := make(map[string]manifest.VFSNode)
	var outcomes []report.Outcome

	entries, err := c.vfs.ReadDir(ctx, root)
	if err != nil {
		c.logger.Warn("Failed to traverse", zap.String("path", root), zap.Error(err))
		return snapshot, append(outcomes, report.Failed(root, report.StatusSkipped, err))
	}

	seen := make(map[string]bool)
	stack := pushReversed(nil, entries)

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[entry.Path] {
			outcomes = append(outcomes, report.Outcome{Path: entry.Path, Status: report.StatusSkipped, Reason: "already visited"})
			continue
		}
		seen[entry.Path] = true

		switch {
		case entry.IsDirectory:
			children, err := c.vfs.ReadDir(ctx, entry.Path)
			if err != nil {
				c.logger.Warn("Failed to traverse", zap.String("path", entry.Path), zap.Error(err))
				outcomes = append(outcomes, report.Failed(entry.Path, report.StatusSkipped, err))
				continue
			}
			snapshot[entry.Path] = manifest.SerializeVFSNode(entry, nil)
			outcomes = append(outcomes, report.New(entry.Path, report.StatusCaptured))
			stack = pushReversed(stack, children)

		case entry.IsFile:
			content, err := c.vfs.ReadFile(ctx, entry.Path)
			switch {
			case err == nil:
				snapshot[entry.Path] = manifest.SerializeVFSNode(entry, &content)
				outcomes = append(outcomes, report.New(entry.Path, report.StatusCaptured))
			case errors.Is(err, manifest.ErrUnreadableContent):
				snapshot[entry.Path] = manifest.SerializeVFSNode(entry, nil)
				outcomes = append(outcomes, report.Failed(entry.Path, report.StatusLossy, err))
			default:
				c.logger.Warn("Failed to read file", zap.String("path", entry.Path), zap.Error(err))
				outcomes = append(outcomes, report.Failed(entry.Path, report.StatusSkipped, err))
			}

		default:
			outcomes = append(outcomes, report.Outcome{Path: entry.Path, Status: report.StatusSkipped, Reason: "not a file or directory"})
		}
	}

	return snapshot, outcomes
}

// CaptureProcesses describes every open window. Windows are never dropped:
// a missing or failing serializer only costs the window its app state.
func (c *Capturer) CaptureProcesses(ctx context.Context) ([]manifest.ProcessDescriptor, []report.Outcome) {
	windows := c.windows.Windows()
	processes := make([]manifest.ProcessDescriptor, 0, len(windows))
	outcomes := make([]report.Outcome, 0, len(windows))

	for _, w := range windows {
		ws := manifest.SerializeWindowState(w)
		appType := w.AppType()
		if appType == "" {
			appType = manifest.GenericAppType
		}

		var appState map[string]interface{}
		outcome := report.New(ws.ID, report.StatusCaptured)

		if s, ok := c.registry.Lookup(appType); ok {
			state, err := serialize(s, w)
			if err != nil {
				c.logger.Error("Failed to serialize app",
					zap.String("app_type", appType),
					zap.String("window_id", ws.ID),
					zap.Error(err),
				)
				outcome = report.Failed(ws.ID, report.StatusLossy, err)
			} else {
				appState = state
			}
		} else {
			c.logger.Warn("No serializer registered for app type",
				zap.String("app_type", appType),
				zap.String("window_id", ws.ID),
			)
			outcome = report.Outcome{Path: ws.ID, Status: report.StatusLossy, Reason: "no serializer for " + appType}
		}

		processes = append(processes, manifest.NewProcessDescriptor(appType, ws, appState))
		outcomes = append(outcomes, outcome)
	}

	return processes, outcomes
}

// CaptureSettings snapshots settings; nothing or an error yields an empty map.
func (c *Capturer) CaptureSettings(ctx context.Context) map[string]interface{} {
	settings, err := c.settings.Get(ctx)
	if err != nil {
		c.logger.Warn("Failed to read settings", zap.Error(err))
		return map[string]interface{}{}
	}
	if settings == nil {
		return map[string]interface{}{}
	}
	return settings
}

// CaptureSession captures the VFS, then windows, then settings, and derives
// the manifest metadata from the result.
func (c *Capturer) CaptureSession(ctx context.Context) (*manifest.Manifest, *report.Report) {
	m := manifest.New()
	rep := &report.Report{}

	m.VFS, rep.VFS = c.CaptureVFS(ctx, c.root)
	m.Processes, rep.Processes = c.CaptureProcesses(ctx)
	m.Settings = c.CaptureSettings(ctx)

	size, err := manifest.EncodedSize(m)
	if err != nil {
		c.logger.Warn("Failed to measure capture size", zap.Error(err))
	}
	m.Metadata = map[string]interface{}{
		"windowCount": len(m.Processes),
		"fileCount":   len(m.VFS),
		"captureSize": size,
	}

	c.logger.Info("Session captured",
		zap.Int("windows", len(m.Processes)),
		zap.Int("files", len(m.VFS)),
		zap.Int("skipped", report.Count(rep.VFS, report.StatusSkipped)),
		zap.Int("bytes", size),
	)

	return m, rep
}

func serialize(s serializer.Serializer, w manifest.WindowHandle) (state map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serializer panicked: %v", r)
		}
	}()
	return s.Serialize(w)
}

// pushReversed appends entries so that the first entry is popped first.
func pushReversed(stack []manifest.Stat, entries []manifest.Stat) []manifest.Stat {
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, entries[i])
	}
	return stack
}
