package windows

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
)

// ErrNotFound is returned for unknown window ids.
var ErrNotFound = errors.New("window not found")

const (
	defaultWidth  = 800
	defaultHeight = 600
)

// Window is a snapshot of one open window.
type Window struct {
	id        string
	appType   string
	title     string
	position  manifest.Position
	dimension manifest.Dimension
	maximized bool
	minimized bool
	zIndex    int
	appState  map[string]interface{}
	createdAt time.Time
	seq       uint64
}

func (w *Window) ID() string                    { return w.id }
func (w *Window) AppType() string               { return w.appType }
func (w *Window) Title() string                 { return w.title }
func (w *Window) Position() manifest.Position   { return w.position }
func (w *Window) Dimension() manifest.Dimension { return w.dimension }
func (w *Window) Maximized() bool               { return w.maximized }
func (w *Window) Minimized() bool               { return w.minimized }
func (w *Window) ZIndex() int                   { return w.zIndex }
func (w *Window) CreatedAt() time.Time          { return w.createdAt }

// AppState returns a copy of the app's opaque state.
func (w *Window) AppState() map[string]interface{} {
	return copyState(w.appState)
}

// View is the JSON form of a window.
type View struct {
	ID        string                 `json:"id"`
	AppType   string                 `json:"appType"`
	Title     string                 `json:"title"`
	Position  manifest.Position      `json:"position"`
	Dimension manifest.Dimension     `json:"dimension"`
	Maximized bool                   `json:"maximized"`
	Minimized bool                   `json:"minimized"`
	ZIndex    int                    `json:"zIndex"`
	Focused   bool                   `json:"focused"`
	AppState  map[string]interface{} `json:"appState"`
	CreatedAt time.Time              `json:"createdAt"`
}

// OpenRequest describes a new window.
type OpenRequest struct {
	AppType   string                 `json:"appType"`
	Title     string                 `json:"title"`
	Position  manifest.Position      `json:"position"`
	Dimension manifest.Dimension     `json:"dimension"`
	AppState  map[string]interface{} `json:"appState"`
}

// StateUpdate changes selected fields of a window. Nil fields are left alone.
type StateUpdate struct {
	Title     *string                `json:"title,omitempty"`
	Position  *manifest.Position     `json:"position,omitempty"`
	Dimension *manifest.Dimension    `json:"dimension,omitempty"`
	Maximized *bool                  `json:"maximized,omitempty"`
	Minimized *bool                  `json:"minimized,omitempty"`
	AppState  map[string]interface{} `json:"appState,omitempty"`
}

// Stats summarizes the registry.
type Stats struct {
	Total     int     `json:"total"`
	Minimized int     `json:"minimized"`
	FocusedID *string `json:"focusedId,omitempty"`
}

// Manager tracks open windows
type Manager struct {
	mu        sync.RWMutex
	windows   map[string]*Window // Protected by mu
	focusedID *string            // Protected by mu
	topZ      int                // Protected by mu
	seq       uint64             // Protected by mu
	metrics   *monitoring.Metrics
}

// NewManager creates an empty registry
func NewManager() *Manager {
	return &Manager{windows: make(map[string]*Window)}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Open creates a focused window on top of the stack.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	appType := req.AppType
	if appType == "" {
		appType = manifest.GenericAppType
	}
	title := req.Title
	if title == "" {
		title = "Untitled"
	}
	dim := req.Dimension
	if dim.Width <= 0 || dim.Height <= 0 {
		dim = manifest.Dimension{Width: defaultWidth, Height: defaultHeight}
	}

	m.mu.Lock()
	m.topZ++
	w := &Window{
		id:        uuid.New().String(),
		appType:   appType,
		title:     title,
		position:  req.Position,
		dimension: dim,
		zIndex:    m.topZ,
		appState:  copyState(req.AppState),
		createdAt: time.Now(),
	}
	m.insertLocked(w)
	m.focusedID = &w.id
	snapshot := *w
	snapshot.appState = copyState(w.appState)
	count := len(m.windows)
	m.mu.Unlock()

	m.recordOpened(count)
	return &snapshot, nil
}

// OpenWindow reopens a window from saved chrome state. The saved id is kept
// unless a live window already uses it.
func (m *Manager) OpenWindow(ctx context.Context, appType string, ws manifest.WindowState) (manifest.WindowHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if appType == "" {
		appType = manifest.GenericAppType
	}

	m.mu.Lock()
	id := ws.ID
	if _, taken := m.windows[id]; taken || id == "" {
		id = uuid.New().String()
	}
	w := &Window{
		id:        id,
		appType:   appType,
		title:     ws.Title,
		position:  ws.Position,
		dimension: ws.Dimension,
		maximized: ws.Maximized,
		minimized: ws.Minimized,
		zIndex:    ws.ZIndex,
		appState:  map[string]interface{}{},
		createdAt: time.Now(),
	}
	if w.zIndex > m.topZ {
		m.topZ = w.zIndex
	}
	m.insertLocked(w)
	m.refocusLocked()
	snapshot := *w
	snapshot.appState = copyState(w.appState)
	count := len(m.windows)
	m.mu.Unlock()

	m.recordOpened(count)
	return &snapshot, nil
}

// Get retrieves a window by ID
func (m *Manager) Get(id string) (*Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[id]
	if !ok {
		return nil, false
	}
	snapshot := *w
	snapshot.appState = copyState(w.appState)
	return &snapshot, true
}

// List returns snapshots of every window in creation order.
func (m *Manager) List() []*Window {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Window, 0, len(m.windows))
	for _, w := range m.windows {
		snapshot := *w
		snapshot.appState = copyState(w.appState)
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Windows returns every window as a handle, in creation order.
func (m *Manager) Windows() []manifest.WindowHandle {
	list := m.List()
	out := make([]manifest.WindowHandle, len(list))
	for i, w := range list {
		out[i] = w
	}
	return out
}

// Views returns the JSON form of every window, in creation order.
func (m *Manager) Views() []View {
	list := m.List()

	m.mu.RLock()
	var focused string
	if m.focusedID != nil {
		focused = *m.focusedID
	}
	m.mu.RUnlock()

	out := make([]View, len(list))
	for i, w := range list {
		out[i] = w.view(w.id == focused)
	}
	return out
}

// View returns the JSON form of one window.
func (m *Manager) View(id string) (View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[id]
	if !ok {
		return View{}, false
	}
	return w.view(m.focusedID != nil && *m.focusedID == id), true
}

// Focus raises a window to the top and focuses it. A minimized window is
// restored.
func (m *Manager) Focus(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return false
	}
	if w.zIndex < m.topZ || (m.focusedID != nil && *m.focusedID != id) {
		m.topZ++
		w.zIndex = m.topZ
	}
	w.minimized = false
	m.focusedID = &w.id
	return true
}

// SetState applies an update to a window.
func (m *Manager) SetState(id string, update StateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return ErrNotFound
	}
	if update.Title != nil {
		w.title = *update.Title
	}
	if update.Position != nil {
		w.position = *update.Position
	}
	if update.Dimension != nil {
		w.dimension = *update.Dimension
	}
	if update.Maximized != nil {
		w.maximized = *update.Maximized
	}
	if update.Minimized != nil {
		w.minimized = *update.Minimized
		if w.minimized && m.focusedID != nil && *m.focusedID == id {
			m.focusedID = nil
			m.refocusLocked()
		}
	}
	if update.AppState != nil {
		w.appState = copyState(update.AppState)
	}
	return nil
}

// SetAppState replaces a window's app state.
func (m *Manager) SetAppState(id string, state map[string]interface{}) bool {
	return m.SetState(id, StateUpdate{AppState: nonNil(state)}) == nil
}

// Close destroys a window
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	if _, ok := m.windows[id]; !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.windows, id)

	// Update focus if this was the focused window
	if m.focusedID != nil && *m.focusedID == id {
		m.focusedID = nil
		m.refocusLocked()
	}
	count := len(m.windows)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetWindowsOpen(count)
	}
	return true
}

// CloseAll closes every window and returns how many were open.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	n := len(m.windows)
	m.windows = make(map[string]*Window)
	m.focusedID = nil
	m.topZ = 0
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetWindowsOpen(0)
	}
	return n
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Total: len(m.windows)}
	for _, w := range m.windows {
		if w.minimized {
			stats.Minimized++
		}
	}
	if m.focusedID != nil {
		id := *m.focusedID
		stats.FocusedID = &id
	}
	return stats
}

// insertLocked adds w with the next creation sequence number; callers hold m.mu.
func (m *Manager) insertLocked(w *Window) {
	m.seq++
	w.seq = m.seq
	m.windows[w.id] = w
}

// refocusLocked focuses the topmost visible window; callers hold m.mu.
func (m *Manager) refocusLocked() {
	var top *Window
	for _, w := range m.windows {
		if w.minimized {
			continue
		}
		if top == nil || w.zIndex > top.zIndex || (w.zIndex == top.zIndex && w.seq > top.seq) {
			top = w
		}
	}
	if top != nil {
		m.focusedID = &top.id
	}
}

func (m *Manager) recordOpened(count int) {
	if m.metrics == nil {
		return
	}
	m.metrics.IncWindowsOpened()
	m.metrics.SetWindowsOpen(count)
}

func (w *Window) view(focused bool) View {
	return View{
		ID:        w.id,
		AppType:   w.appType,
		Title:     w.title,
		Position:  w.position,
		Dimension: w.dimension,
		Maximized: w.maximized,
		Minimized: w.minimized,
		ZIndex:    w.zIndex,
		Focused:   focused,
		AppState:  copyState(w.appState),
		CreatedAt: w.createdAt,
	}
}

func copyState(state map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

func nonNil(state map[string]interface{}) map[string]interface{} {
	if state == nil {
		return map[string]interface{}{}
	}
	return state
}
