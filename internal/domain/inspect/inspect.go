// Package inspect answers read-only queries about the active session.
//
// An Inspector never mutates the manifest it reads. With no active session
// every query reports "not found" through its boolean result or returns an
// empty collection; none of them fail.
package inspect

import (
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
)

// DefaultTreeRoot is the root VFSTree uses when callers pass none.
const DefaultTreeRoot = "home:/"

// Source supplies the manifest to inspect.
type Source interface {
	Active() *manifest.Manifest
}

type fixed struct{ m *manifest.Manifest }

func (f fixed) Active() *manifest.Manifest { return f.m }

// Of returns a Source that always yields m.
func Of(m *manifest.Manifest) Source {
	return fixed{m: m}
}

// Overview summarizes a whole session.
type Overview struct {
	Version      string                 `json:"version"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata"`
	ProcessCount int                    `json:"processCount"`
	FileCount    int                    `json:"fileCount"`

	// Processes are the full descriptors, app state included.
	Processes []manifest.ProcessDescriptor `json:"processes"`
}

// VFSEntry is a VFS node without its content.
type VFSEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Mime string `json:"mime,omitempty"`
}

// ProcessSummary is a process without its app state.
type ProcessSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Timestamp   int64  `json:"timestamp"`
	HasAppState bool   `json:"hasAppState"`
}

// Inspector queries whatever manifest its Source currently holds.
type Inspector struct {
	source Source
}

func New(source Source) *Inspector {
	return &Inspector{source: source}
}

// Session returns the overview of the active session.
func (i *Inspector) Session() (Overview, bool) {
	m := i.source.Active()
	if m == nil {
		return Overview{}, false
	}
	return Overview{
		Version:      m.Version,
		Timestamp:    m.Timestamp,
		Metadata:     m.Metadata,
		ProcessCount: len(m.Processes),
		FileCount:    len(m.VFS),
		Processes:    m.Processes,
	}, true
}

// VFS lists every node sorted by path.
func (i *Inspector) VFS() ([]VFSEntry, bool) {
	m := i.source.Active()
	if m == nil {
		return nil, false
	}

	entries := make([]VFSEntry, 0, len(m.VFS))
	for _, path := range sortedPaths(m.VFS) {
		node := m.VFS[path]
		entries = append(entries, VFSEntry{
			Path: path,
			Type: node.Type(),
			Size: node.Size,
			Mime: node.Mime,
		})
	}
	return entries, true
}

// VFSNode returns the raw node at path, content included.
func (i *Inspector) VFSNode(path string) (manifest.VFSNode, bool) {
	m := i.source.Active()
	if m == nil {
		return manifest.VFSNode{}, false
	}
	node, ok := m.VFS[path]
	return node, ok
}

// VFSTree nests every node under root by path segment. The root prefix is
// not part of the tree; "/" selects every node and keeps full paths.
//
// Nodes are applied in path order. When a path is both a leaf and a prefix
// of later paths, the later entries are added into the leaf's map; no
// consistency check is made.
func (i *Inspector) VFSTree(root string) (map[string]interface{}, bool) {
	m := i.source.Active()
	if m == nil {
		return nil, false
	}
	if root == "" {
		root = DefaultTreeRoot
	}

	tree := make(map[string]interface{})
	for _, path := range sortedPaths(m.VFS) {
		rel := path
		if root != "/" {
			if !underRoot(path, root) {
				continue
			}
			rel = strings.TrimPrefix(path, root)
		}

		parts := segments(rel)
		if len(parts) == 0 {
			continue
		}

		node := m.VFS[path]
		current := tree
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = leaf(node)
	}
	return tree, true
}

// underRoot reports whether path is root or lies beneath it. A root without
// a trailing slash only matches whole segments, so "home:/dir" excludes
// "home:/dir2".
func underRoot(path, root string) bool {
	if strings.HasSuffix(root, "/") {
		return strings.HasPrefix(path, root)
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// Processes summarizes every process in capture order.
func (i *Inspector) Processes() []ProcessSummary {
	m := i.source.Active()
	if m == nil {
		return []ProcessSummary{}
	}
	return summarize(m.Processes)
}

// ProcessesOfType returns the raw descriptors whose type is appType.
func (i *Inspector) ProcessesOfType(appType string) []manifest.ProcessDescriptor {
	out := []manifest.ProcessDescriptor{}
	m := i.source.Active()
	if m == nil {
		return out
	}
	for _, p := range m.Processes {
		if p.Type == appType {
			out = append(out, p)
		}
	}
	return out
}

// ProcessDetail returns the descriptor at index in capture order.
func (i *Inspector) ProcessDetail(index int) (manifest.ProcessDescriptor, bool) {
	m := i.source.Active()
	if m == nil || index < 0 || index >= len(m.Processes) {
		return manifest.ProcessDescriptor{}, false
	}
	return m.Processes[index], true
}

func summarize(processes []manifest.ProcessDescriptor) []ProcessSummary {
	out := make([]ProcessSummary, len(processes))
	for i, p := range processes {
		out[i] = ProcessSummary{
			Type:        p.Type,
			Title:       p.WindowState.Title,
			Timestamp:   p.Timestamp,
			HasAppState: p.HasAppState(),
		}
	}
	return out
}

func leaf(node manifest.VFSNode) map[string]interface{} {
	var content interface{}
	if node.Content != nil {
		content = *node.Content
	}
	return map[string]interface{}{
		"type":    node.Type(),
		"mime":    node.Mime,
		"size":    node.Size,
		"content": content,
	}
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortedPaths(vfs map[string]manifest.VFSNode) []string {
	paths := make([]string, 0, len(vfs))
	for p := range vfs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
