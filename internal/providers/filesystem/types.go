package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mount maps a VFS root onto a host directory.
type Mount struct {
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

// ParseMount parses "name=dir", e.g. "home:/=./vfs/home".
func ParseMount(raw string) (Mount, error) {
	name, dir, ok := strings.Cut(raw, "=")
	if !ok {
		return Mount{}, fmt.Errorf("invalid mount %q: expected name=dir", raw)
	}
	m := Mount{Name: strings.TrimSpace(name), Dir: strings.TrimSpace(dir)}
	if err := m.validate(); err != nil {
		return Mount{}, err
	}
	return m, nil
}

// ParseMounts parses each "name=dir" entry in order.
func ParseMounts(raws []string) ([]Mount, error) {
	mounts := make([]Mount, 0, len(raws))
	for _, raw := range raws {
		m, err := ParseMount(raw)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

func (m Mount) validate() error {
	if !strings.HasSuffix(m.Name, ":/") || len(m.Name) < 3 {
		return fmt.Errorf("invalid mount name %q: expected form name:/", m.Name)
	}
	if m.Dir == "" {
		return fmt.Errorf("mount %s has no directory", m.Name)
	}
	return nil
}

// Usage summarizes what a mount holds on disk.
type Usage struct {
	Mount string `json:"mount"`
	Files int64  `json:"files"`
	Dirs  int64  `json:"dirs"`
	Bytes int64  `json:"bytes"`
}

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
