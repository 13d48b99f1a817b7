// Package notifications delivers optional ntfy push notifications for sync
// and error events. Without a configured topic every call is a noop.
package notifications
