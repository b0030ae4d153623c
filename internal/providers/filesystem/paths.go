package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolve maps a VFS path to its mount and host path.
func (v *VFS) resolve(path string) (Mount, string, error) {
	for _, m := range v.mounts {
		if !strings.HasPrefix(path, m.Name) {
			continue
		}
		rel := strings.TrimPrefix(path, m.Name)
		if err := validateRelative(rel); err != nil {
			return Mount{}, "", fmt.Errorf("path %s: %w", path, err)
		}
		return m, filepath.Join(m.Dir, filepath.FromSlash(rel)), nil
	}
	return Mount{}, "", fmt.Errorf("path %s is not under any mount", path)
}

// validateRelative rejects paths that could leave the mount directory.
func validateRelative(rel string) error {
	if strings.Contains(rel, `\`) {
		return fmt.Errorf("backslash in path")
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return fmt.Errorf("path cannot contain .. components")
		}
	}
	return nil
}

// child joins a directory's VFS path and an entry name.
func child(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
