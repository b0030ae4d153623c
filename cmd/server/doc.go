// Package main runs sessiond, the desktop session capture and restore
// service.
//
// Configuration comes from the environment (see internal/infrastructure/config);
// flags override the most common settings.
//
// Usage:
//
//	sessiond -port 8000 -storage sqlite
//	sessiond -dev                     # colored logs, debug level
//	VFS_MOUNTS=home:/=/srv/home,docs:/=/srv/docs sessiond
//
// When the session.restore_on_start setting is true the most recent stored
// session is restored before the listener starts.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
