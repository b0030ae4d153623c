package restore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
)

var errNoParent = errors.New("parent directory does not exist")

type memEntry struct {
	dir     bool
	content string
}

// memVFS is an in-memory tree rooted at "home:/". Writes fail unless the
// parent directory already exists.
type memVFS struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ops     []string
}

func newMemVFS() *memVFS {
	return &memVFS{entries: map[string]memEntry{"home:/": {dir: true}}}
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	parent := path[:i]
	if strings.HasSuffix(parent, ":") {
		return parent + "/"
	}
	return parent
}

func (v *memVFS) ReadDir(_ context.Context, path string) ([]manifest.Stat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []manifest.Stat
	for p, e := range v.entries {
		if p == path || parentOf(p) != path {
			continue
		}
		out = append(out, manifest.Stat{
			Path:        p,
			Filename:    p[strings.LastIndex(p, "/")+1:],
			Size:        int64(len(e.content)),
			IsDirectory: e.dir,
			IsFile:      !e.dir,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (v *memVFS) ReadFile(_ context.Context, path string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entries[path].content, nil
}

func (v *memVFS) Mkdir(_ context.Context, path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops = append(v.ops, "mkdir "+path)
	if _, ok := v.entries[parentOf(path)]; !ok {
		return errNoParent
	}
	v.entries[path] = memEntry{dir: true}
	return nil
}

func (v *memVFS) WriteFile(_ context.Context, path, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops = append(v.ops, "write "+path)
	if _, ok := v.entries[parentOf(path)]; !ok {
		return errNoParent
	}
	v.entries[path] = memEntry{content: content}
	return nil
}

func (v *memVFS) snapshot() map[string]memEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]memEntry, len(v.entries))
	for k, e := range v.entries {
		out[k] = e
	}
	return out
}

type memWindow struct {
	ws      manifest.WindowState
	appType string
	state   map[string]interface{}
}

func (w *memWindow) ID() string                    { return w.ws.ID }
func (w *memWindow) Title() string                 { return w.ws.Title }
func (w *memWindow) Position() manifest.Position   { return w.ws.Position }
func (w *memWindow) Dimension() manifest.Dimension { return w.ws.Dimension }
func (w *memWindow) Maximized() bool               { return w.ws.Maximized }
func (w *memWindow) Minimized() bool               { return w.ws.Minimized }
func (w *memWindow) ZIndex() int                   { return w.ws.ZIndex }
func (w *memWindow) AppType() string               { return w.appType }

// memDesktop is both the window source for capture and the environment
// serializers reopen windows through.
type memDesktop struct {
	windows []*memWindow
}

func (d *memDesktop) Windows() []manifest.WindowHandle {
	out := make([]manifest.WindowHandle, len(d.windows))
	for i, w := range d.windows {
		out[i] = w
	}
	return out
}

func (d *memDesktop) OpenWindow(_ context.Context, appType string, ws manifest.WindowState) (manifest.WindowHandle, error) {
	w := &memWindow{ws: ws, appType: appType}
	d.windows = append(d.windows, w)
	return w, nil
}

type memSettings struct {
	values  map[string]interface{}
	failOn  string
	applied []string
}

func newMemSettings() *memSettings {
	return &memSettings{values: map[string]interface{}{}}
}

func (s *memSettings) Get(context.Context) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *memSettings) Set(_ context.Context, key string, value interface{}) error {
	if key == s.failOn {
		return errors.New("settings store is read-only")
	}
	s.values[key] = value
	s.applied = append(s.applied, key)
	return nil
}

type mockVFS struct {
	mock.Mock
}

func (m *mockVFS) WriteFile(ctx context.Context, path, content string) error {
	return m.Called(ctx, path, content).Error(0)
}

func (m *mockVFS) Mkdir(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// notesSerializer keeps a window's state map as its app state.
func notesSerializer() serializer.Funcs {
	return serializer.Funcs{
		SerializeFunc: func(w manifest.WindowHandle) (map[string]interface{}, error) {
			mw := w.(*memWindow)
			out := make(map[string]interface{}, len(mw.state))
			for k, v := range mw.state {
				out[k] = v
			}
			return out, nil
		},
		DeserializeFunc: func(ctx context.Context, env serializer.Environment, ws manifest.WindowState, appState map[string]interface{}) error {
			h, err := env.OpenWindow(ctx, "notes", ws)
			if err != nil {
				return err
			}
			h.(*memWindow).state = appState
			return nil
		},
	}
}

func strPtr(s string) *string { return &s }
