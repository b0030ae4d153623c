// Package settings holds desktop user settings.
//
// Settings start from a table of defaults. Values set at runtime overlay the
// defaults and, when the provider has a file, are written back to it as a
// flat JSON object of key to value.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Setting is one configuration entry.
type Setting struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Type        string      `json:"type"` // "string", "number", "boolean", "json"
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// Provider is a settings store safe for concurrent use.
type Provider struct {
	mu       sync.RWMutex
	settings map[string]Setting
	path     string
	logger   *zap.Logger
}

// NewProvider creates a provider seeded with defaults. When path is set,
// values persisted there are loaded over the defaults.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{
		settings: defaults(),
		path:     path,
		logger:   zap.NewNop(),
	}
	if path == "" {
		return p, nil
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// WithLogger sets the logger.
func (p *Provider) WithLogger(logger *zap.Logger) *Provider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func defaults() map[string]Setting {
	table := []Setting{
		// General
		{Key: "general.theme", Value: "dark", Type: "string", Category: "general", Description: "UI theme", Default: "dark"},
		{Key: "general.language", Value: "en", Type: "string", Category: "general", Description: "Interface language", Default: "en"},
		{Key: "general.notifications", Value: true, Type: "boolean", Category: "general", Description: "Enable notifications", Default: true},

		// Desktop
		{Key: "desktop.wallpaper", Value: "default", Type: "string", Category: "desktop", Description: "Wallpaper name", Default: "default"},
		{Key: "desktop.show_icons", Value: true, Type: "boolean", Category: "desktop", Description: "Show desktop icons", Default: true},
		{Key: "desktop.snap_windows", Value: true, Type: "boolean", Category: "desktop", Description: "Snap windows to edges", Default: true},

		// Appearance
		{Key: "appearance.font_size", Value: 14.0, Type: "number", Category: "appearance", Description: "Font size (px)", Default: 14.0},
		{Key: "appearance.font_family", Value: "Inter", Type: "string", Category: "appearance", Description: "Font family", Default: "Inter"},
		{Key: "appearance.accent_color", Value: "#3b82f6", Type: "string", Category: "appearance", Description: "Accent color", Default: "#3b82f6"},

		// Session
		{Key: "session.restore_on_start", Value: false, Type: "boolean", Category: "session", Description: "Restore the last session at startup", Default: false},
	}

	out := make(map[string]Setting, len(table))
	for _, s := range table {
		out[s.Key] = s
	}
	return out
}

// Get returns a snapshot of every key and its current value.
func (p *Provider) Get(ctx context.Context) (map[string]interface{}, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]interface{}, len(p.settings))
	for k, s := range p.settings {
		out[k] = s.Value
	}
	return out, nil
}

// Set stores value under key and persists the table.
func (p *Provider) Set(ctx context.Context, key string, value interface{}) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	setting, ok := p.settings[key]
	if ok {
		setting.Value = value
	} else {
		setting = Setting{
			Key:      key,
			Value:    value,
			Type:     inferType(value),
			Category: "custom",
		}
	}
	p.settings[key] = setting

	return p.persistLocked()
}

// Setting returns the full entry for key.
func (p *Provider) Setting(key string) (Setting, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.settings[key]
	return s, ok
}

// List returns entries sorted by key, optionally filtered by category.
func (p *Provider) List(category string) []Setting {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Setting, 0, len(p.settings))
	for _, s := range p.settings {
		if category == "" || s.Category == category {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Reset restores key to its default value.
func (p *Provider) Reset(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.settings[key]
	if !ok {
		return fmt.Errorf("setting not found: %s", key)
	}
	s.Value = s.Default
	p.settings[key] = s

	return p.persistLocked()
}

// Categories returns the distinct categories in sorted order.
func (p *Provider) Categories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := make(map[string]bool)
	for _, s := range p.settings {
		set[s.Category] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (p *Provider) load() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var values map[string]interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse settings %s: %w", p.path, err)
	}

	for k, v := range values {
		s, ok := p.settings[k]
		if !ok {
			s = Setting{Key: k, Type: inferType(v), Category: "custom"}
		}
		s.Value = v
		p.settings[k] = s
	}
	return nil
}

// persistLocked writes the table; callers hold p.mu.
func (p *Provider) persistLocked() error {
	if p.path == "" {
		return nil
	}

	values := make(map[string]interface{}, len(p.settings))
	for k, s := range p.settings {
		values[k] = s.Value
	}
	data, err := sonic.ConfigStd.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	p.logger.Debug("Settings persisted", zap.String("path", p.path), zap.Int("count", len(values)))
	return nil
}

func inferType(value interface{}) string {
	switch value.(type) {
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		return "string"
	default:
		return "json"
	}
}
