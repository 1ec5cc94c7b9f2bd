// Package ipc carries the JSON-RPC protocol between the CLI and the daemon
// over a Unix socket.
//
// The server side registers the daemon's operations and manages the socket's
// lifecycle; the client side dials and wraps each RPC in a typed method.
// Request and response types here are the wire contract, kept deliberately
// flat so store models never leak across the socket directly.
//
// New daemon operations get a request/response pair and a client method in
// this package before any command uses them.
package ipc
