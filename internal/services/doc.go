// Package services defines the shared error taxonomy for fieldkit components.
//
// Components wrap failures with one of the exported sentinel errors so that
// callers can classify them without string matching: device access problems
// are user-recoverable, unsupported formats are not, compression failures
// trigger the fall-back-to-original policy, storage failures are surfaced
// immediately, and sync failures stay on the affected record.
package services
