// Package capture turns live desktop state into a session manifest.
//
// Capture walks three collaborators in a fixed order:
//  1. The VFS, pre-order from a root path, one subtree at a time
//  2. The window registry, in enumeration order
//  3. The settings store
//
// Every step tolerates partial failure. An unreadable directory drops its
// subtree, a failing serializer leaves its window with empty app state, and
// none of these abort the capture. Each visited path and window produces an
// report.Outcome so callers can see what was skipped without parsing logs.
package capture
