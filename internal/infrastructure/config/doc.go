// Package config provides 12-factor configuration for sessiond.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags on cmd/server override the port and log settings.
//
// Sections:
//   - Server: HTTP listen address
//   - Logging: level and output format
//   - RateLimit: per-IP limiting for the HTTP API
//   - Storage: record backend (file, sqlite or memory)
//   - Desktop: VFS mounts, capture root, settings file, passthrough app types
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - STORAGE_DRIVER, STORAGE_DIR, STORAGE_SQLITE_PATH
//   - VFS_MOUNTS (comma separated), CAPTURE_ROOT, SETTINGS_FILE, APP_TYPES
package config
