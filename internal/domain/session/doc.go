// Package session persists manifests and tracks the active session.
//
// A Store sits on top of a Backend that holds opaque records keyed by id.
// Saving or loading a record makes its manifest the active session; the
// swap is a single atomic pointer store, so readers never see a partially
// replaced manifest.
//
// State machine:
//
//	NoActiveSession --Save/Load--> ActiveSession(m) --Save/Load--> ActiveSession(m')
//
// Failures are typed:
//   - ErrNotFound: no record under the id
//   - *CorruptDataError: the record does not decode to a valid manifest
//   - *StorageError: the backend failed
//   - *manifest.ValidationError: bad id or bad manifest on Save
//
// Example Usage:
//
//	store := session.NewStore(backend).WithLogger(logger)
//	err := store.Save(ctx, "session-01J...", m)
//	m, err = store.Load(ctx, "session-01J...")
package session
