// Package daemon runs the resident watch-progress engine: it owns the store,
// tracker, and pending-sync queue, serves the local HTTP API, and drives the
// optional backend import and flush loops. A lock file in the state directory
// keeps the engine single-instance per machine.
package daemon
