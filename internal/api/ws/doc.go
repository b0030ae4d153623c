// Package ws streams session events to websocket subscribers.
//
// Each connection gets a "connected" greeting followed by every Event the
// hub broadcasts: captures, restores, deletions and active-session changes.
// Clients may send {"type":"ping"} and receive {"type":"pong"}. Slow clients
// whose send buffer fills are disconnected rather than stalling the hub.
package ws
