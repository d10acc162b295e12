package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityArchetypeIsSorted(t *testing.T) {
	e := EntitySnapshot{
		ID: 1,
		Components: []ComponentSnapshot{
			{TypeName: "mock.Velocity", TypeShort: "Velocity"},
			{TypeName: "mock.Position", TypeShort: "Position"},
		},
	}
	assert.Equal(t, []string{"Position", "Velocity"}, e.Archetype())
}

func TestWorldArchetypesDeduplicatedAndSorted(t *testing.T) {
	w := WorldSnapshot{
		Entities: []EntitySnapshot{
			{ID: 1, Components: []ComponentSnapshot{{TypeShort: "Position"}, {TypeShort: "Velocity"}}},
			{ID: 2, Components: []ComponentSnapshot{{TypeShort: "Velocity"}, {TypeShort: "Position"}}},
			{ID: 3, Components: []ComponentSnapshot{{TypeShort: "Agent"}}},
		},
	}
	assert.Equal(t, []string{"Agent", "Position,Velocity"}, w.Archetypes())
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	w := WorldSnapshot{
		Tick: 1,
		Entities: []EntitySnapshot{
			{ID: 1, Components: []ComponentSnapshot{{TypeShort: "Position", Data: map[string]any{"x": 1.0}}}},
		},
		Metadata: map[string]any{"source": "mock"},
	}
	clone := w.Clone()
	clone.Entities[0].Components[0].Data["x"] = 999.0
	clone.Metadata["source"] = "changed"

	assert.Equal(t, 1.0, w.Entities[0].Components[0].Data["x"])
	assert.Equal(t, "mock", w.Metadata["source"])
}

func TestWorldSnapshotJSONRoundTrip(t *testing.T) {
	w := WorldSnapshot{
		Tick:      5,
		Timestamp: 123.5,
		Entities: []EntitySnapshot{
			{ID: 1, Components: []ComponentSnapshot{{TypeName: "mock.Position", TypeShort: "Position", Data: map[string]any{"x": 1.0, "y": 2.0}}}},
		},
		Metadata: map[string]any{"source": "mock"},
	}

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(1), decoded["entity_count"])
	assert.Equal(t, []any{[]any{"Position"}}, decoded["archetypes"])

	var roundTripped WorldSnapshot
	require.NoError(t, json.Unmarshal(raw, &roundTripped))
	assert.Equal(t, w.Tick, roundTripped.Tick)
	assert.Equal(t, w.Entities[0].ID, roundTripped.Entities[0].ID)
	assert.Equal(t, w.Entities[0].Components[0].Data["x"], roundTripped.Entities[0].Components[0].Data["x"])
}

func TestEmptyWorldSnapshotMarshalsEmptyCollectionsNotNull(t *testing.T) {
	w := WorldSnapshot{Tick: 0}
	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["entities"])
	assert.Equal(t, map[string]any{}, decoded["metadata"])
}

func TestTickDeltaMarshalNormalizesNilCollections(t *testing.T) {
	d := TickDelta{Tick: 1}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["spawned"])
	assert.Equal(t, []any{}, decoded["destroyed"])
	assert.Equal(t, map[string]any{}, decoded["modified"])
}
