// Package server implements the Halo Nusantara chat relay: a WebSocket hub
// that tracks connected sessions, keeps a bounded shared message history,
// and fans out chat, presence, and typing events to connected channels in
// arrival order.
//
// The implementation is organized into specialized files: the wire-event
// contract (events.go), the bounded message log, the session registry, the
// broadcast router, the per-channel lifecycle and dispatch table (hub.go,
// client.go), and the HTTP surface that exposes the WebSocket endpoint and
// a read-only status document.
package server
