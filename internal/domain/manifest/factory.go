package manifest

import "time"

// New returns an empty manifest stamped with the current version and time.
func New() *Manifest {
	return &Manifest{
		Version:   Version,
		Timestamp: time.Now().UTC(),
		VFS:       map[string]VFSNode{},
		Processes: []ProcessDescriptor{},
		Settings:  map[string]interface{}{},
		Metadata:  map[string]interface{}{},
	}
}

// SerializeVFSNode converts a backend stat into a manifest node.
func SerializeVFSNode(stat Stat, content *string) VFSNode {
	node := VFSNode{
		Path:        stat.Path,
		Filename:    stat.Filename,
		Mime:        stat.Mime,
		Size:        stat.Size,
		IsDirectory: stat.IsDirectory,
		IsFile:      stat.IsFile,
		Content:     content,
	}
	if !stat.Mtime.IsZero() {
		mtime := stat.Mtime.UTC()
		node.Mtime = &mtime
	}
	return node
}

// SerializeWindowState reads the chrome state of a live window.
func SerializeWindowState(w WindowHandle) WindowState {
	return WindowState{
		ID:        w.ID(),
		Title:     w.Title(),
		Position:  w.Position(),
		Dimension: w.Dimension(),
		Maximized: w.Maximized(),
		Minimized: w.Minimized(),
		ZIndex:    w.ZIndex(),
	}
}

// NewProcessDescriptor stamps a descriptor with the current time in unix
// milliseconds. A nil appState is stored as an empty map.
func NewProcessDescriptor(appType string, ws WindowState, appState map[string]interface{}) ProcessDescriptor {
	if appState == nil {
		appState = map[string]interface{}{}
	}
	return ProcessDescriptor{
		Type:        appType,
		WindowState: ws,
		AppState:    appState,
		Timestamp:   time.Now().UnixMilli(),
	}
}
