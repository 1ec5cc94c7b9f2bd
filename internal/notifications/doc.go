// Package notifications delivers push notifications about capture and sync
// events through ntfy. With no topic configured every notification is a
// silent no-op.
package notifications
