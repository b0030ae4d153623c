// Package serializer maps app types to the code that captures and rebuilds
// their opaque state.
package serializer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
)

// Environment is handed to deserializers during restore.
type Environment interface {
	OpenWindow(ctx context.Context, appType string, state manifest.WindowState) (manifest.WindowHandle, error)
}

// Serializer captures and rebuilds the state of one app type.
type Serializer interface {
	Serialize(w manifest.WindowHandle) (map[string]interface{}, error)
	Deserialize(ctx context.Context, env Environment, ws manifest.WindowState, appState map[string]interface{}) error
}

// Funcs adapts a pair of functions to Serializer. Both must be set.
type Funcs struct {
	SerializeFunc   func(w manifest.WindowHandle) (map[string]interface{}, error)
	DeserializeFunc func(ctx context.Context, env Environment, ws manifest.WindowState, appState map[string]interface{}) error
}

func (f Funcs) Serialize(w manifest.WindowHandle) (map[string]interface{}, error) {
	return f.SerializeFunc(w)
}

func (f Funcs) Deserialize(ctx context.Context, env Environment, ws manifest.WindowState, appState map[string]interface{}) error {
	return f.DeserializeFunc(ctx, env, ws, appState)
}

func (f Funcs) missing() string {
	switch {
	case f.SerializeFunc == nil:
		return "serialize"
	case f.DeserializeFunc == nil:
		return "deserialize"
	}
	return ""
}

// ConfigurationError reports a serializer that cannot be registered.
type ConfigurationError struct {
	Type   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid serializer for type %s: %s", e.Type, e.Reason)
}

// Registry holds one serializer per app type.
type Registry struct {
	mu          sync.RWMutex
	serializers map[string]Serializer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{serializers: make(map[string]Serializer)}
}

// Register stores s for appType, replacing any previous registration.
func (r *Registry) Register(appType string, s Serializer) error {
	if appType == "" {
		return &ConfigurationError{Type: appType, Reason: "app type cannot be empty"}
	}
	if s == nil {
		return &ConfigurationError{Type: appType, Reason: "must have serialize and deserialize"}
	}
	if f, ok := s.(Funcs); ok {
		if missing := f.missing(); missing != "" {
			return &ConfigurationError{Type: appType, Reason: "missing " + missing}
		}
	}
	if f, ok := s.(*Funcs); ok {
		if f == nil {
			return &ConfigurationError{Type: appType, Reason: "must have serialize and deserialize"}
		}
		if missing := f.missing(); missing != "" {
			return &ConfigurationError{Type: appType, Reason: "missing " + missing}
		}
	}

	r.mu.Lock()
	r.serializers[appType] = s
	r.mu.Unlock()
	return nil
}

// Lookup returns the serializer for appType.
func (r *Registry) Lookup(appType string) (Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.serializers[appType]
	return s, ok
}

// Types returns the registered app types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.serializers))
	for t := range r.serializers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
