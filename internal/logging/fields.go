package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTitleKey is the standardized structured logging key for progress record keys (e.g. "movie-603").
	FieldTitleKey = "title_key"
	// FieldKind is the standardized structured logging key for media kinds.
	FieldKind = "kind"
	// FieldTitleID is the standardized structured logging key for external catalog identifiers.
	FieldTitleID = "title_id"
	// FieldEpisodeKey is the standardized structured logging key for episode identifiers (e.g. s2e3).
	FieldEpisodeKey = "episode_key"
	// FieldSlot is the standardized structured logging key for storage slot names.
	FieldSlot = "slot"
	// FieldCount is the standardized structured logging key for record counts.
	FieldCount = "count"
)
