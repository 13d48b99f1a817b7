// Package api defines the wire-format types for the HTTP layer and the
// ProgressService that validates requests before handing them to the tracker.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Record and
// episode payloads reuse the progress package's persisted shapes directly,
// which keeps the HTTP surface and the stored blob from drifting apart.
package api
