// Package history implements the bounded, checkpoint+delta compressed
// time series of world snapshots, plus side-indexed error and span
// telemetry keyed by tick.
package history

import (
	"sort"
	"sync"

	memdb "github.com/hashicorp/go-memdb"

	"tickstream/delta"
	"tickstream/snapshot"
)

// Store is a bounded, ordered history of world snapshots. The zero
// value is not usable; construct with New. A Store is safe for
// concurrent use, though the contract assumes a single writer
// (RecordTick) and any number of readers.
type Store struct {
	mu sync.RWMutex

	maxTicks          int
	checkpointInterval int

	checkpoints map[int]snapshot.WorldSnapshot
	deltas      map[int]snapshot.TickDelta

	// tickOrder grows at its end, loses entries only from its front on
	// eviction, and is strictly increasing; checkpointTicks
	// is the sorted subsequence of tickOrder that are checkpoints, kept
	// separately so get_snapshot's floor lookup is a binary search
	// rather than a scan of the full tick order.
	tickOrder      []int
	checkpointTicks []int

	lastSnapshot *snapshot.WorldSnapshot

	sideDB *memdb.MemDB
}

// New constructs an empty Store. maxTicks bounds the number of
// retained ticks; checkpointInterval controls how often a full
// snapshot is stored instead of a delta.
func New(maxTicks, checkpointInterval int) *Store {
	if maxTicks <= 0 {
		maxTicks = 10_000
	}
	if checkpointInterval <= 0 {
		checkpointInterval = 100
	}
	return &Store{
		maxTicks:           maxTicks,
		checkpointInterval: checkpointInterval,
		checkpoints:        make(map[int]snapshot.WorldSnapshot),
		deltas:             make(map[int]snapshot.TickDelta),
		sideDB:             newSideStore(),
	}
}

// MaxTicks returns the configured eviction limit.
func (s *Store) MaxTicks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTicks
}

// CheckpointInterval returns the configured checkpoint cadence.
func (s *Store) CheckpointInterval() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpointInterval
}

// TickCount returns the number of currently retained ticks.
func (s *Store) TickCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickOrder)
}

// RecordTick stores a world snapshot as a checkpoint or a delta
// against the most recently recorded snapshot. Re-recording an
// already-retained tick is a no-op.
func (s *Store) RecordTick(ws snapshot.WorldSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := ws.Tick
	if s.isRetainedLocked(tick) {
		return
	}

	isFirst := len(s.tickOrder) == 0
	isCheckpoint := isFirst || tick%s.checkpointInterval == 0

	if isCheckpoint {
		s.checkpoints[tick] = ws.Clone()
		s.checkpointTicks = append(s.checkpointTicks, tick)
	} else if s.lastSnapshot != nil {
		s.deltas[tick] = delta.ComputeTick(*s.lastSnapshot, ws)
	}

	s.tickOrder = append(s.tickOrder, tick)
	last := ws.Clone()
	s.lastSnapshot = &last

	for len(s.tickOrder) > s.maxTicks {
		s.evictOldestLocked()
	}
}

func (s *Store) isRetainedLocked(tick int) bool {
	_, isCheckpoint := s.checkpoints[tick]
	_, isDelta := s.deltas[tick]
	return isCheckpoint || isDelta
}

func (s *Store) evictOldestLocked() {
	if len(s.tickOrder) == 0 {
		return
	}
	oldTick := s.tickOrder[0]
	s.tickOrder = s.tickOrder[1:]

	oldSnapshot, wasCheckpoint := s.checkpoints[oldTick]
	if wasCheckpoint {
		delete(s.checkpoints, oldTick)
		s.removeCheckpointTickLocked(oldTick)

		if len(s.tickOrder) > 0 {
			nextTick := s.tickOrder[0]
			if nextDelta, ok := s.deltas[nextTick]; ok {
				delete(s.deltas, nextTick)
				promoted := delta.Apply(oldSnapshot, nextDelta)
				s.checkpoints[nextTick] = promoted
				s.insertCheckpointTickLocked(nextTick)
			}
		}
	} else {
		delete(s.deltas, oldTick)
	}

	s.evictSideRecordsLocked(oldTick)
}

func (s *Store) removeCheckpointTickLocked(tick int) {
	idx := sort.SearchInts(s.checkpointTicks, tick)
	if idx < len(s.checkpointTicks) && s.checkpointTicks[idx] == tick {
		s.checkpointTicks = append(s.checkpointTicks[:idx], s.checkpointTicks[idx+1:]...)
	}
}

func (s *Store) insertCheckpointTickLocked(tick int) {
	idx := sort.SearchInts(s.checkpointTicks, tick)
	s.checkpointTicks = append(s.checkpointTicks, 0)
	copy(s.checkpointTicks[idx+1:], s.checkpointTicks[idx:])
	s.checkpointTicks[idx] = tick
}

// GetSnapshot reconstructs the world snapshot at tick, returning
// false if tick is not retained.
func (s *Store) GetSnapshot(tick int) (snapshot.WorldSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ws, ok := s.checkpoints[tick]; ok {
		return ws.Clone(), true
	}
	if _, ok := s.deltas[tick]; !ok {
		return snapshot.WorldSnapshot{}, false
	}

	checkpointTick, ok := s.floorCheckpointLocked(tick)
	if !ok {
		return snapshot.WorldSnapshot{}, false
	}

	current := s.checkpoints[checkpointTick].Clone()
	startIdx := sort.SearchInts(s.tickOrder, checkpointTick+1)
	for i := startIdx; i < len(s.tickOrder); i++ {
		t := s.tickOrder[i]
		if t > tick {
			break
		}
		if d, ok := s.deltas[t]; ok {
			current = delta.Apply(current, d)
		}
	}
	return current, true
}

// floorCheckpointLocked returns the greatest checkpoint tick <= tick,
// via binary search over the sorted checkpoint-tick list.
func (s *Store) floorCheckpointLocked(tick int) (int, bool) {
	idx := sort.Search(len(s.checkpointTicks), func(i int) bool {
		return s.checkpointTicks[i] > tick
	})
	if idx == 0 {
		return 0, false
	}
	return s.checkpointTicks[idx-1], true
}

// GetTickRange returns the oldest and newest retained ticks.
func (s *Store) GetTickRange() (min, max int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tickOrder) == 0 {
		return 0, 0, false
	}
	return s.tickOrder[0], s.tickOrder[len(s.tickOrder)-1], true
}

// Clear empties the store entirely, including side-indexed telemetry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = make(map[int]snapshot.WorldSnapshot)
	s.deltas = make(map[int]snapshot.TickDelta)
	s.tickOrder = nil
	s.checkpointTicks = nil
	s.lastSnapshot = nil
	s.sideDB = newSideStore()
}

// EntityLifecycles derives spawn/despawn ticks for every entity that
// appears anywhere in retained history, by replaying every retained
// tick in order and watching the entity-id set change.
func (s *Store) EntityLifecycles() []EntityLifecycle {
	minTick, maxTick, ok := s.GetTickRange()
	if !ok {
		return nil
	}

	lifecycles := make(map[int]*EntityLifecycle)
	order := make([]int, 0)
	previous := make(map[int]struct{})

	for tick := minTick; tick <= maxTick; tick++ {
		ws, ok := s.GetSnapshot(tick)
		if !ok {
			continue
		}
		current := make(map[int]struct{}, len(ws.Entities))
		for _, e := range ws.Entities {
			current[e.ID] = struct{}{}
		}

		for id := range current {
			if _, existed := previous[id]; existed {
				continue
			}
			entity, _ := ws.EntityByID(id)
			lc := &EntityLifecycle{
				EntityID:  id,
				SpawnTick: tick,
				Archetype: joinComma(entity.Archetype()),
			}
			lifecycles[id] = lc
			order = append(order, id)
		}
		for id := range previous {
			if _, stillPresent := current[id]; stillPresent {
				continue
			}
			if lc, ok := lifecycles[id]; ok {
				despawn := tick
				lc.DespawnTick = &despawn
			}
		}
		previous = current
	}

	out := make([]EntityLifecycle, 0, len(order))
	for _, id := range order {
		out = append(out, *lifecycles[id])
	}
	return out
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
