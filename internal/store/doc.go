// Package store implements the local durable store backing offline-first
// submission.
//
// Three SQLite tables hold complaint records, media attachments, and the
// sync work queue. The store is the single source of truth for whether a
// report has left the device: the sync coordinator transitions record
// statuses, and nothing is purged until the server has acknowledged it.
package store
