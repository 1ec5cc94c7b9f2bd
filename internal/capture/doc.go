// Package capture acquires camera and microphone devices and produces
// bounded-duration recordings.
//
// A Controller owns at most one active session at a time. The session
// advances on a one second tick; reaching the configured maximum duration
// triggers the same stop path as a manual stop, exactly once. Recording
// hardware is driven through the Recorder interface so tests can substitute
// a fake device.
package capture
