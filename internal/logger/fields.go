package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRunID is the indexing run ID (UUID)
	FieldRunID = "run_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldPath is the image file path being processed
	FieldPath = "path"

	// FieldQuery is the search query text
	FieldQuery = "query"
)

// Standard metric fields used in run summaries.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"
)
