// Package syncer reconciles the local durable store with the remote
// ingestion API.
//
// A Coordinator runs one sync pass at a time. Passes are triggered by a
// periodic poll, by an offline-to-online connectivity transition, or by an
// explicit manual request. Within a pass, queue entries drain sequentially
// in insertion order and each record's failure is isolated: a rejected
// complaint schedules its own retry and the pass moves on. Records remain
// pending until the server acknowledges them, giving at-least-once delivery.
package syncer
