// Package http serves the session API with gin.
//
// Routes under /api/session import, export, list, delete, capture, restore
// and inspect sessions; routes under /api/windows drive the live window
// registry. Domain errors map to status codes: invalid manifests 400,
// unknown sessions 404, corrupt records 422, anything else 500.
package http
