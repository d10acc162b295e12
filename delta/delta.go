// Package delta computes and applies the component-level differences
// between two consecutive world snapshots.
package delta

import (
	"reflect"
	"sort"

	"tickstream/snapshot"
)

// Diff computes the component-level differences between two snapshots
// of the same entity, one ComponentDiff per TypeShort that was added,
// removed, or whose payload changed. TypeName is always the resolved
// name from whichever side of the pair is present, never fabricated.
func Diff(old, new snapshot.EntitySnapshot) []snapshot.ComponentDiff {
	oldComps := make(map[string]snapshot.ComponentSnapshot, len(old.Components))
	for _, c := range old.Components {
		oldComps[c.TypeShort] = c
	}
	newComps := make(map[string]snapshot.ComponentSnapshot, len(new.Components))
	for _, c := range new.Components {
		newComps[c.TypeShort] = c
	}

	types := make(map[string]struct{}, len(oldComps)+len(newComps))
	for t := range oldComps {
		types[t] = struct{}{}
	}
	for t := range newComps {
		types[t] = struct{}{}
	}
	sorted := make([]string, 0, len(types))
	for t := range types {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	var diffs []snapshot.ComponentDiff
	for _, compType := range sorted {
		oldComp, hasOld := oldComps[compType]
		newComp, hasNew := newComps[compType]

		switch {
		case !hasOld:
			diffs = append(diffs, snapshot.ComponentDiff{
				ComponentType: compType,
				TypeName:      newComp.TypeName,
				NewValue:      newComp.Data,
			})
		case !hasNew:
			diffs = append(diffs, snapshot.ComponentDiff{
				ComponentType: compType,
				TypeName:      oldComp.TypeName,
				OldValue:      oldComp.Data,
			})
		case !reflect.DeepEqual(oldComp.Data, newComp.Data):
			diffs = append(diffs, snapshot.ComponentDiff{
				ComponentType: compType,
				TypeName:      newComp.TypeName,
				OldValue:      oldComp.Data,
				NewValue:      newComp.Data,
			})
		}
	}
	return diffs
}

// ComputeTick computes the TickDelta between two consecutive world
// snapshots. Spawned entities keep their order in new, destroyed ids
// keep their order in old, and each entity's component diffs are
// sorted by component type.
func ComputeTick(old, new snapshot.WorldSnapshot) snapshot.TickDelta {
	oldByID := make(map[int]snapshot.EntitySnapshot, len(old.Entities))
	for _, e := range old.Entities {
		oldByID[e.ID] = e
	}
	newByID := make(map[int]snapshot.EntitySnapshot, len(new.Entities))
	for _, e := range new.Entities {
		newByID[e.ID] = e
	}

	var spawned []snapshot.EntitySnapshot
	for _, e := range new.Entities {
		if _, ok := oldByID[e.ID]; !ok {
			spawned = append(spawned, e)
		}
	}

	var destroyed []int
	for _, e := range old.Entities {
		if _, ok := newByID[e.ID]; !ok {
			destroyed = append(destroyed, e.ID)
		}
	}

	modified := make(map[int][]snapshot.ComponentDiff)
	for _, newEntity := range new.Entities {
		oldEntity, ok := oldByID[newEntity.ID]
		if !ok {
			continue
		}
		if diffs := Diff(oldEntity, newEntity); len(diffs) > 0 {
			modified[newEntity.ID] = diffs
		}
	}

	return snapshot.TickDelta{
		Tick:      new.Tick,
		Timestamp: new.Timestamp,
		Spawned:   spawned,
		Destroyed: destroyed,
		Modified:  modified,
	}
}

// Apply applies a TickDelta to a base snapshot, producing the
// snapshot at the delta's tick. A modification targeting an entity
// that is simultaneously destroyed, or that is otherwise absent from
// base, is silently skipped.
func Apply(base snapshot.WorldSnapshot, d snapshot.TickDelta) snapshot.WorldSnapshot {
	order := make([]int, 0, len(base.Entities))
	byID := make(map[int]snapshot.EntitySnapshot, len(base.Entities))
	for _, e := range base.Entities {
		clone := e.Clone()
		byID[clone.ID] = clone
		order = append(order, clone.ID)
	}

	destroyedSet := make(map[int]struct{}, len(d.Destroyed))
	for _, id := range d.Destroyed {
		destroyedSet[id] = struct{}{}
		delete(byID, id)
	}

	for id, diffs := range d.Modified {
		entity, ok := byID[id]
		if !ok {
			continue
		}
		applyComponentDiffs(&entity, diffs)
		byID[id] = entity
	}

	filtered := make([]int, 0, len(order))
	for _, id := range order {
		if _, destroyed := destroyedSet[id]; destroyed {
			continue
		}
		filtered = append(filtered, id)
	}

	entities := make([]snapshot.EntitySnapshot, 0, len(filtered)+len(d.Spawned))
	for _, id := range filtered {
		entities = append(entities, byID[id])
	}
	for _, e := range d.Spawned {
		entities = append(entities, e.Clone())
	}

	var metadata map[string]any
	if base.Metadata != nil {
		metadata = base.Clone().Metadata
	}

	return snapshot.WorldSnapshot{
		Tick:      d.Tick,
		Timestamp: d.Timestamp,
		Entities:  entities,
		Metadata:  metadata,
	}
}

func applyComponentDiffs(entity *snapshot.EntitySnapshot, diffs []snapshot.ComponentDiff) {
	order := make([]string, 0, len(entity.Components))
	byType := make(map[string]snapshot.ComponentSnapshot, len(entity.Components))
	for _, c := range entity.Components {
		byType[c.TypeShort] = c
		order = append(order, c.TypeShort)
	}

	for _, diff := range diffs {
		switch {
		case diff.NewValue == nil:
			delete(byType, diff.ComponentType)
		default:
			if _, existed := byType[diff.ComponentType]; !existed {
				order = append(order, diff.ComponentType)
			}
			byType[diff.ComponentType] = snapshot.ComponentSnapshot{
				TypeName:  diff.TypeName,
				TypeShort: diff.ComponentType,
				Data:      diff.NewValue,
			}
		}
	}

	components := make([]snapshot.ComponentSnapshot, 0, len(order))
	for _, t := range order {
		if c, ok := byType[t]; ok {
			components = append(components, c)
		}
	}
	entity.Components = components
}
