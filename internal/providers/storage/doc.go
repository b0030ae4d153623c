// Package storage provides record backends for the session store.
//
// Backends hold opaque byte records keyed by session id:
//   - FileBackend: one "<id>.json" file per record, written via temp file
//     and rename so readers never see a partial record
//   - SQLiteBackend: one row per record in a "sessions" table
//   - MemoryBackend: process-local, for tests and throwaway servers
//
// Instrument wraps any backend with Prometheus call timing.
package storage
