package snapshot

import "encoding/json"

// ComponentDiff describes the change to a single component between
// two consecutive entity states. Exactly one shape is valid:
// OldValue==nil (added), NewValue==nil (removed), or both non-nil and
// unequal (modified).
type ComponentDiff struct {
	ComponentType string         `json:"component_type"`
	TypeName      string         `json:"type_name"`
	OldValue      map[string]any `json:"old_value"`
	NewValue      map[string]any `json:"new_value"`
}

// Clone returns a deep copy of the diff.
func (d ComponentDiff) Clone() ComponentDiff {
	clone := ComponentDiff{ComponentType: d.ComponentType, TypeName: d.TypeName}
	if d.OldValue != nil {
		clone.OldValue = cloneValue(d.OldValue).(map[string]any)
	}
	if d.NewValue != nil {
		clone.NewValue = cloneValue(d.NewValue).(map[string]any)
	}
	return clone
}

// TickDelta is the difference between two consecutive world
// snapshots: entities spawned, entities destroyed, and per-entity
// component modifications.
type TickDelta struct {
	Tick      int                      `json:"tick"`
	Timestamp float64                  `json:"timestamp"`
	Spawned   []EntitySnapshot         `json:"spawned"`
	Destroyed []int                    `json:"destroyed"`
	Modified  map[int][]ComponentDiff  `json:"modified"`
}

// Clone returns a deep copy of the delta.
func (d TickDelta) Clone() TickDelta {
	spawned := make([]EntitySnapshot, len(d.Spawned))
	for i, e := range d.Spawned {
		spawned[i] = e.Clone()
	}
	destroyed := make([]int, len(d.Destroyed))
	copy(destroyed, d.Destroyed)
	modified := make(map[int][]ComponentDiff, len(d.Modified))
	for id, diffs := range d.Modified {
		cloned := make([]ComponentDiff, len(diffs))
		for i, diff := range diffs {
			cloned[i] = diff.Clone()
		}
		modified[id] = cloned
	}
	return TickDelta{
		Tick:      d.Tick,
		Timestamp: d.Timestamp,
		Spawned:   spawned,
		Destroyed: destroyed,
		Modified:  modified,
	}
}

type tickDeltaJSON struct {
	Tick      int                     `json:"tick"`
	Timestamp float64                 `json:"timestamp"`
	Spawned   []EntitySnapshot        `json:"spawned"`
	Destroyed []int                   `json:"destroyed"`
	Modified  map[int][]ComponentDiff `json:"modified"`
}

// MarshalJSON normalizes nil slices/maps to empty ones so the wire
// payload never carries JSON null where the client expects a
// collection.
func (d TickDelta) MarshalJSON() ([]byte, error) {
	aux := tickDeltaJSON{Tick: d.Tick, Timestamp: d.Timestamp}
	aux.Spawned = d.Spawned
	if aux.Spawned == nil {
		aux.Spawned = []EntitySnapshot{}
	}
	aux.Destroyed = d.Destroyed
	if aux.Destroyed == nil {
		aux.Destroyed = []int{}
	}
	aux.Modified = d.Modified
	if aux.Modified == nil {
		aux.Modified = map[int][]ComponentDiff{}
	}
	return json.Marshal(aux)
}
