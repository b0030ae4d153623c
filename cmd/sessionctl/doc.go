/*
Sessionctl is a command line client for sessiond.

It lists, inspects, imports, exports, captures and restores desktop
sessions over the HTTP API, and can convert manifests between formats
without a server.

Usage:

	sessionctl [--server URL] [--json] <command>

The server defaults to $SESSIOND_URL, then http://localhost:8000.
*/
package main
