// Package server hosts the linechat network surfaces.
//
// The implementation is organized into specialized files: configuration,
// the generic TCP accept loop and its chat service, the websocket gateway,
// origin checks, routing, and HTTP handlers. Chat semantics live in the chat
// package; this package only frames connections and manages their lifetime.
package server
