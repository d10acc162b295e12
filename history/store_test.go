package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickstream/snapshot"
)

func snapshotAt(tick int, x float64) snapshot.WorldSnapshot {
	return snapshot.WorldSnapshot{
		Tick: tick,
		Entities: []snapshot.EntitySnapshot{
			{ID: 1, Components: []snapshot.ComponentSnapshot{
				{TypeName: "mock.Position", TypeShort: "Position", Data: map[string]any{"x": x}},
			}},
		},
	}
}

func TestCheckpointReconstruction(t *testing.T) {
	store := New(10_000, 5)
	for tick := 0; tick < 10; tick++ {
		store.RecordTick(snapshotAt(tick, float64(tick*10)))
	}

	for tick := 0; tick < 10; tick++ {
		ws, ok := store.GetSnapshot(tick)
		require.True(t, ok, "tick %d", tick)
		entity, ok := ws.EntityByID(1)
		require.True(t, ok)
		comp, ok := entity.ComponentByType("Position")
		require.True(t, ok)
		assert.Equal(t, float64(tick*10), comp.Data["x"], "tick %d", tick)
	}
}

func TestEvictionPromotesNextDeltaToCheckpoint(t *testing.T) {
	store := New(3, 5)
	for tick := 0; tick <= 3; tick++ {
		store.RecordTick(snapshotAt(tick, float64(tick*10)))
	}

	assert.Equal(t, 3, store.TickCount())
	minTick, maxTick, ok := store.GetTickRange()
	require.True(t, ok)
	assert.Equal(t, 1, minTick)
	assert.Equal(t, 3, maxTick)

	ws, ok := store.GetSnapshot(1)
	require.True(t, ok)
	entity, ok := ws.EntityByID(1)
	require.True(t, ok)
	comp, ok := entity.ComponentByType("Position")
	require.True(t, ok)
	assert.Equal(t, 10.0, comp.Data["x"])
}

func TestRecordTickIsIdempotent(t *testing.T) {
	store := New(10_000, 5)
	store.RecordTick(snapshotAt(0, 0))
	store.RecordTick(snapshotAt(1, 10))
	store.RecordTick(snapshotAt(1, 999))

	assert.Equal(t, 2, store.TickCount())
	ws, ok := store.GetSnapshot(1)
	require.True(t, ok)
	entity, _ := ws.EntityByID(1)
	comp, _ := entity.ComponentByType("Position")
	assert.Equal(t, 10.0, comp.Data["x"])
}

func TestGetSnapshotUnknownTickReturnsFalse(t *testing.T) {
	store := New(10_000, 5)
	store.RecordTick(snapshotAt(0, 0))
	_, ok := store.GetSnapshot(99)
	assert.False(t, ok)
}

func TestErrorsRangeQueryAndEntityFilter(t *testing.T) {
	store := New(10_000, 5)
	entity1 := 1
	store.RecordError(ErrorEvent{ID: "e1", Tick: 1, EntityID: &entity1, Severity: SeverityWarning, Message: "slow"})
	store.RecordError(ErrorEvent{ID: "e2", Tick: 5, Severity: SeverityCritical, Message: "boom"})
	store.RecordError(ErrorEvent{ID: "e3", Tick: 10, EntityID: &entity1, Severity: SeverityInfo, Message: "noted"})

	inRange := store.GetErrors(1, 5)
	assert.Len(t, inRange, 2)

	forEntity := store.GetErrorsForEntity(1, 0, 100)
	assert.Len(t, forEntity, 2)
}

func TestSpansIndexedByTickAndTrace(t *testing.T) {
	store := New(10_000, 5)
	store.RecordSpan(SpanEvent{SpanID: "s1", TraceID: "t1", Name: "llm.call", Tick: 2})
	store.RecordSpan(SpanEvent{SpanID: "s2", TraceID: "t1", Name: "tool.call", Tick: 3})
	store.RecordSpan(SpanEvent{SpanID: "s3", TraceID: "t2", Name: "llm.call", Tick: 20})

	byTick := store.GetSpans(0, 5)
	assert.Len(t, byTick, 2)

	byTrace := store.GetSpansForTrace("t1")
	assert.Len(t, byTrace, 2)
}

func TestEvictionRemovesSideRecordsAtEvictedTick(t *testing.T) {
	store := New(2, 5)
	store.RecordError(ErrorEvent{ID: "e0", Tick: 0, Severity: SeverityInfo, Message: "at tick 0"})
	store.RecordTick(snapshotAt(0, 0))
	store.RecordTick(snapshotAt(1, 10))
	store.RecordTick(snapshotAt(2, 20))

	assert.Empty(t, store.GetErrors(0, 0))
}

func TestEntityLifecyclesTracksSpawnAndDespawn(t *testing.T) {
	store := New(10_000, 5)
	store.RecordTick(snapshot.WorldSnapshot{Tick: 0, Entities: []snapshot.EntitySnapshot{{ID: 1, Components: []snapshot.ComponentSnapshot{{TypeShort: "Position"}}}}})
	store.RecordTick(snapshot.WorldSnapshot{Tick: 1, Entities: []snapshot.EntitySnapshot{{ID: 1, Components: []snapshot.ComponentSnapshot{{TypeShort: "Position"}}}, {ID: 2, Components: []snapshot.ComponentSnapshot{{TypeShort: "Agent"}}}}})
	store.RecordTick(snapshot.WorldSnapshot{Tick: 2, Entities: []snapshot.EntitySnapshot{{ID: 1, Components: []snapshot.ComponentSnapshot{{TypeShort: "Position"}}}}})

	lifecycles := store.EntityLifecycles()
	byID := make(map[int]EntityLifecycle)
	for _, lc := range lifecycles {
		byID[lc.EntityID] = lc
	}

	require.Contains(t, byID, 2)
	assert.Equal(t, 1, byID[2].SpawnTick)
	require.NotNil(t, byID[2].DespawnTick)
	assert.Equal(t, 2, *byID[2].DespawnTick)

	require.Contains(t, byID, 1)
	assert.Nil(t, byID[1].DespawnTick)
}
