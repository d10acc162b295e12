package protocol

import (
	"encoding/json"

	"tickstream/memory"
	"tickstream/snapshot"
)

// Event is a server-to-client message, tagged by its "type" field on
// the wire. Each concrete type below marshals itself with that tag
// via an alias-embedding MarshalJSON, so the tag can never drift out
// of sync with the Go type dispatching it.
type Event interface {
	isEvent()
}

// MetadataEvent is sent exactly once, immediately after connect.
type MetadataEvent struct {
	Tick                int                  `json:"tick"`
	VisualizationConfig *VisualizationConfig `json:"visualization_config"`
	TickRange           *[2]int              `json:"tick_range"`
	SupportsReplay      bool                 `json:"supports_replay"`
	IsPaused            bool                 `json:"is_paused"`
}

func (MetadataEvent) isEvent() {}

func (e MetadataEvent) MarshalJSON() ([]byte, error) {
	type alias MetadataEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"metadata", alias(e)})
}

// SnapshotEvent carries a full world snapshot, either as part of the
// handshake or in response to a seek.
type SnapshotEvent struct {
	Tick     int                    `json:"tick"`
	Snapshot snapshot.WorldSnapshot `json:"snapshot"`
}

func (SnapshotEvent) isEvent() {}

func (e SnapshotEvent) MarshalJSON() ([]byte, error) {
	type alias SnapshotEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"snapshot", alias(e)})
}

// DeltaEvent carries a bandwidth-efficient tick delta.
type DeltaEvent struct {
	Tick  int                  `json:"tick"`
	Delta snapshot.TickDelta `json:"delta"`
}

func (DeltaEvent) isEvent() {}

func (e DeltaEvent) MarshalJSON() ([]byte, error) {
	type alias DeltaEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"delta", alias(e)})
}

// TickUpdateEvent acknowledges a pause/resume/step command.
type TickUpdateEvent struct {
	Tick        int  `json:"tick"`
	EntityCount int  `json:"entity_count"`
	IsPaused    bool `json:"is_paused"`
}

func (TickUpdateEvent) isEvent() {}

func (e TickUpdateEvent) MarshalJSON() ([]byte, error) {
	type alias TickUpdateEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"tick_update", alias(e)})
}

// ErrorEvent (wire tag "error_event") reports an application-level
// error observed by the driver at a given tick.
type ErrorEvent struct {
	Tick     int    `json:"tick"`
	EntityID *int   `json:"entity_id,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (ErrorEvent) isEvent() {}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"error_event", alias(e)})
}

// SpanEvent (wire tag "span_event") reports one tracing span.
type SpanEvent struct {
	SpanID       string         `json:"span_id"`
	TraceID      string         `json:"trace_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	Name         string         `json:"name"`
	StartTime    float64        `json:"start_time"`
	EndTime      float64        `json:"end_time"`
	Status       string         `json:"status"`
	Attributes   map[string]any `json:"attributes"`
}

func (SpanEvent) isEvent() {}

func (e SpanEvent) MarshalJSON() ([]byte, error) {
	type alias SpanEvent
	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	e.Attributes = attrs
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"span_event", alias(e)})
}

// ProtocolErrorEvent (wire tag "error") reports a malformed or
// rejected client command.
type ProtocolErrorEvent struct {
	Tick    int    `json:"tick"`
	Message string `json:"message"`
}

func (ProtocolErrorEvent) isEvent() {}

func (e ProtocolErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ProtocolErrorEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"error", alias(e)})
}

// Encode serializes an Event to its wire JSON form. The session
// writer uses this directly rather than a generic framework encoder,
// so fields like TickRange's two-element array survive losslessly.
// Encoding goes through a pooled buffer since every tick potentially
// serializes one event per subscriber.
func Encode(e Event) ([]byte, error) {
	buf := memory.GetBuffer()
	defer memory.PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(e); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
