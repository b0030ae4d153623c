package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
)

// VFS is a mount table over host directories.
type VFS struct {
	mounts []Mount
	logger *zap.Logger
}

// New creates a VFS. Mount directories are created if missing.
func New(mounts ...Mount) (*VFS, error) {
	if len(mounts) == 0 {
		return nil, fmt.Errorf("at least one mount is required")
	}

	seen := make(map[string]bool)
	resolved := make([]Mount, 0, len(mounts))
	for _, m := range mounts {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate mount %s", m.Name)
		}
		seen[m.Name] = true

		dir, err := absDir(m.Dir)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create mount %s: %w", m.Name, err)
		}
		resolved = append(resolved, Mount{Name: m.Name, Dir: dir})
	}

	// longest name first so nested roots win
	sort.Slice(resolved, func(i, j int) bool { return len(resolved[i].Name) > len(resolved[j].Name) })

	return &VFS{mounts: resolved, logger: zap.NewNop()}, nil
}

// WithLogger sets the logger.
func (v *VFS) WithLogger(logger *zap.Logger) *VFS {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Mounts returns the mount table sorted by name.
func (v *VFS) Mounts() []Mount {
	out := append([]Mount(nil), v.mounts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReadDir lists a directory in filename order.
func (v *VFS) ReadDir(ctx context.Context, path string) ([]manifest.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, host, err := v.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(host)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	stats := make([]manifest.Stat, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			v.logger.Debug("Entry vanished during listing", zap.String("path", child(path, entry.Name())), zap.Error(err))
			continue
		}

		stat := manifest.Stat{
			Path:        child(path, entry.Name()),
			Filename:    entry.Name(),
			IsDirectory: info.IsDir(),
			IsFile:      info.Mode().IsRegular(),
			Mtime:       info.ModTime(),
		}
		if stat.IsFile {
			stat.Size = info.Size()
			if mtype, err := mimetype.DetectFile(filepath.Join(host, entry.Name())); err == nil {
				stat.Mime = mtype.String()
			}
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// ReadFile returns a file's content as text.
func (v *VFS) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, host, err := v.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// WriteFile replaces a file's content, creating parent directories.
func (v *VFS) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, host, err := v.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", path, err)
	}
	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Mkdir creates a directory and any missing parents. Existing directories
// are not an error.
func (v *VFS) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, host, err := v.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(host, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// Usage walks a mount and counts its files, directories and bytes.
func (v *VFS) Usage(ctx context.Context, name string) (Usage, error) {
	var mount Mount
	for _, m := range v.mounts {
		if m.Name == name {
			mount = m
		}
	}
	if mount.Name == "" {
		return Usage{}, fmt.Errorf("unknown mount %s", name)
	}

	var files, dirs, size atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, mount.Dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || p == mount.Dir {
			return nil
		}
		if d.IsDir() {
			dirs.Add(1)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files.Add(1)
		size.Add(info.Size())
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("usage walk of %s failed: %w", name, err)
	}

	return Usage{Mount: name, Files: files.Load(), Dirs: dirs.Load(), Bytes: size.Load()}, nil
}

// decodeText returns data as a string when it is UTF-8 text. Anything else
// is ErrUnreadableContent; for non-UTF-8 text the detected charset is named
// in the error. Content is never transcoded so a restore writes back the
// exact bytes that were read.
func decodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		if charset := detectCharset(data); charset != "" {
			return "", fmt.Errorf("charset %s: %w", charset, manifest.ErrUnreadableContent)
		}
		return "", manifest.ErrUnreadableContent
	}
	if !isTextual(mimetype.Detect(data)) {
		return "", manifest.ErrUnreadableContent
	}
	return string(data), nil
}

// detectCharset guesses the charset of non-UTF-8 text, returning its IANA
// name, or "" for binary data.
func detectCharset(data []byte) string {
	if bytes.IndexByte(data, 0) >= 0 {
		return ""
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return ""
	}
	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		return strings.ToLower(result.Charset)
	}
	name, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return strings.ToLower(result.Charset)
	}
	return strings.ToLower(name)
}

func isTextual(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

