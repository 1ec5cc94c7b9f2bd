// Package daemon wires the capture, compression, storage, and sync
// components into a single long-running background service and enforces
// single-instance execution with a file lock.
package daemon
