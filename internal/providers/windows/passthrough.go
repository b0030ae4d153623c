package windows

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
)

// Passthrough is a serializer that stores a window's app state verbatim and
// hands it back unchanged on restore. It suits apps whose state is already
// plain JSON.
type Passthrough struct {
	AppType string
	Windows *Manager
}

// Serialize copies the window's app state.
func (p Passthrough) Serialize(w manifest.WindowHandle) (map[string]interface{}, error) {
	live, ok := p.Windows.Get(w.ID())
	if !ok {
		return nil, fmt.Errorf("window %s: %w", w.ID(), ErrNotFound)
	}
	return live.AppState(), nil
}

// Deserialize reopens the window and puts the saved state back.
func (p Passthrough) Deserialize(ctx context.Context, env serializer.Environment, ws manifest.WindowState, appState map[string]interface{}) error {
	handle, err := env.OpenWindow(ctx, p.AppType, ws)
	if err != nil {
		return fmt.Errorf("failed to open %s window: %w", p.AppType, err)
	}
	if !p.Windows.SetAppState(handle.ID(), appState) {
		return fmt.Errorf("window %s: %w", handle.ID(), ErrNotFound)
	}
	return nil
}

// RegisterPassthrough registers a Passthrough serializer for each app type.
func RegisterPassthrough(registry *serializer.Registry, wm *Manager, appTypes ...string) error {
	for _, t := range appTypes {
		if err := registry.Register(t, Passthrough{AppType: t, Windows: wm}); err != nil {
			return err
		}
	}
	return nil
}
