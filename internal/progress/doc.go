// Package progress defines the watch-progress data model and its pure core:
// record keys and recency comparison, completion math, the continue-watching
// projection, and the loader/sanitizer that recovers records from corrupted
// persisted blobs.
package progress
