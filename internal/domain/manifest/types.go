package manifest

import "time"

// Version is the only manifest version this build reads or writes.
const Version = "1.0.0"

// GenericAppType tags windows that carry no app type of their own.
const GenericAppType = "generic"

// Manifest is one captured desktop session.
type Manifest struct {
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	VFS       map[string]VFSNode     `json:"vfs"`
	Processes []ProcessDescriptor    `json:"processes"`
	Settings  map[string]interface{} `json:"settings"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// VFSNode is a single filesystem entry. Content is nil for directories and
// for files whose bytes could not be captured as text.
type VFSNode struct {
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	Mime        string     `json:"mime,omitempty"`
	Size        int64      `json:"size"`
	IsDirectory bool       `json:"isDirectory"`
	IsFile      bool       `json:"isFile"`
	Mtime       *time.Time `json:"mtime,omitempty"`
	Content     *string    `json:"content"`
}

// Type returns "directory" or "file".
func (n VFSNode) Type() string {
	if n.IsDirectory {
		return "directory"
	}
	return "file"
}

// Position is a window's top-left corner in desktop coordinates.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dimension is a window's outer size.
type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowState is the chrome state of a window at capture time.
type WindowState struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Position  Position  `json:"position"`
	Dimension Dimension `json:"dimension"`
	Maximized bool      `json:"maximized"`
	Minimized bool      `json:"minimized"`
	ZIndex    int       `json:"zIndex"`
}

// ProcessDescriptor is one captured window. AppState is opaque here; its
// shape belongs to the serializer registered for Type.
type ProcessDescriptor struct {
	Type        string                 `json:"type"`
	WindowState WindowState            `json:"windowState"`
	AppState    map[string]interface{} `json:"appState"`
	Timestamp   int64                  `json:"timestamp"`
}

// HasAppState reports whether the serializer recorded any state.
func (p ProcessDescriptor) HasAppState() bool {
	return len(p.AppState) > 0
}

// Stat is what a VFS backend reports for one directory entry.
type Stat struct {
	Path        string
	Filename    string
	Mime        string
	Size        int64
	IsDirectory bool
	IsFile      bool
	Mtime       time.Time
}

// WindowHandle is a live window as exposed by the window registry.
type WindowHandle interface {
	ID() string
	Title() string
	Position() Position
	Dimension() Dimension
	Maximized() bool
	Minimized() bool
	ZIndex() int
	// AppType returns the registry key of the owning app, or "" if unknown.
	AppType() string
}
