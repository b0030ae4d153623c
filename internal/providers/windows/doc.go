// Package windows is the in-process window registry.
//
// The Manager tracks open windows in creation order, stacks them by z-index,
// and moves focus the way a desktop does: opening or focusing a window
// raises it, closing the focused window hands focus to the topmost
// remaining one.
//
// Manager implements the two collaborator roles session capture and restore
// need: it enumerates live windows as manifest.WindowHandle values and it
// reopens windows from a saved manifest.WindowState.
//
// Example Usage:
//
//	wm := windows.NewManager().WithMetrics(metrics)
//	w, err := wm.Open(ctx, windows.OpenRequest{AppType: "notes", Title: "Notes"})
//	wm.Focus(w.ID())
package windows
