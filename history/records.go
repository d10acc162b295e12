package history

// Severity classifies an application-level error observed by a source.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SpanStatus is the outcome of a completed tracing span.
type SpanStatus string

const (
	SpanStatusOK      SpanStatus = "ok"
	SpanStatusError   SpanStatus = "error"
	SpanStatusUnset   SpanStatus = "unset"
)

// ErrorEvent is an application-level error observed at a given tick,
// optionally attributed to a single entity.
type ErrorEvent struct {
	ID       string   `json:"id"`
	Tick     int      `json:"tick"`
	EntityID *int     `json:"entity_id,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// SpanEvent is a single tracing span. Tick is carried in Attributes
// under the "agentecs.tick" key and also denormalized onto the
// struct so the store can index it.
type SpanEvent struct {
	SpanID       string         `json:"span_id"`
	TraceID      string         `json:"trace_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	Name         string         `json:"name"`
	StartTime    float64        `json:"start_time"`
	EndTime      float64        `json:"end_time"`
	Status       SpanStatus     `json:"status"`
	Attributes   map[string]any `json:"attributes"`
	Tick         int            `json:"-"`
}

// EntityLifecycle summarizes one entity's observed lifetime within
// retained history: the tick it was first seen and, if observed to
// leave, the first tick at which it was no longer present.
type EntityLifecycle struct {
	EntityID   int     `json:"entity_id"`
	SpawnTick  int     `json:"spawn_tick"`
	DespawnTick *int   `json:"despawn_tick"`
	Archetype  string  `json:"archetype"`
}
