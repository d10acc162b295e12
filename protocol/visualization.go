package protocol

// VisualizationConfig carries optional per-world display hints to the
// frontend. A nil *VisualizationConfig means the client falls back to
// its own defaults.
type VisualizationConfig struct {
	WorldName         string                   `json:"world_name,omitempty"`
	Archetypes        []ArchetypeConfig        `json:"archetypes"`
	ColorPalette      []string                 `json:"color_palette,omitempty"`
	ComponentMetrics  []ComponentMetricConfig  `json:"component_metrics"`
	FieldHints        FieldHints               `json:"field_hints"`
	ChatEnabled       bool                     `json:"chat_enabled"`
	EntityLabelTemplate string                 `json:"entity_label_template,omitempty"`
}

// ArchetypeConfig is the visual appearance configuration for one
// archetype (a sorted, comma-joined tuple of component names).
type ArchetypeConfig struct {
	Key         string `json:"key"`
	Label       string `json:"label,omitempty"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// ComponentMetricConfig configures how a component's key field should
// be surfaced as a headline metric in the UI.
type ComponentMetricConfig struct {
	Component   string `json:"component"`
	MetricField string `json:"metric_field,omitempty"`
	Format      string `json:"format,omitempty"`
}

// FieldHints are heuristics the frontend uses to auto-detect which
// component fields are status- or error-shaped when no explicit
// ComponentMetricConfig is given.
type FieldHints struct {
	StatusFields []string `json:"status_fields"`
	ErrorFields  []string `json:"error_fields"`
}

// DefaultFieldHints mirrors the conventional field names used across
// mock and real sources when no config file overrides them.
func DefaultFieldHints() FieldHints {
	return FieldHints{
		StatusFields: []string{"status", "state", "phase"},
		ErrorFields:  []string{"error", "error_message", "last_error"},
	}
}
