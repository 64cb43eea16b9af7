// Package server owns the HTTP server lifecycle: startup, signal
// handling, and graceful shutdown. Routing and request handling live in
// the gateway package; this package only runs the listener around them.
package server
