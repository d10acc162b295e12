package worldsource

import (
	"fmt"

	"tickstream/protocol"
	"tickstream/snapshot"
)

const (
	taskCompletionProbability  = 0.05
	entitySpawnProbability     = 0.02
	entityDespawnProbability   = 0.02
	maxEntityMultiplier        = 1.5
	minEntityCount             = 10
	errorProbability           = 0.10
)

func defaultArchetypes() [][]string {
	return [][]string{
		{"Agent", "Position"},
		{"Agent", "Task", "Priority"},
		{"Agent", "Memory", "Goals"},
		{"Task", "Deadline"},
		{"Position", "Velocity"},
	}
}

func defaultVisualizationConfig() protocol.VisualizationConfig {
	return protocol.VisualizationConfig{
		WorldName: "Mock World",
		Archetypes: []protocol.ArchetypeConfig{
			{Key: "Agent,Position", Label: "Positioned Agent", Color: "#06b6d4", Description: "Agents with spatial position"},
			{Key: "Agent,Priority,Task", Label: "Task Agent", Color: "#f97316", Description: "Agents processing tasks"},
			{Key: "Agent,Goals,Memory", Label: "Planning Agent", Color: "#8b5cf6", Description: "Agents with memory and goals"},
			{Key: "Deadline,Task", Label: "Timed Task", Color: "#f43f5e", Description: "Tasks with deadlines"},
			{Key: "Position,Velocity", Label: "Moving Entity", Color: "#22c55e", Description: "Basic moving entities"},
		},
		FieldHints:  protocol.DefaultFieldHints(),
		ChatEnabled: true,
	}
}

func (m *MockSource) generateEntities() []snapshot.EntitySnapshot {
	entities := make([]snapshot.EntitySnapshot, 0, m.cfg.EntityCount)
	for i := 0; i < m.cfg.EntityCount; i++ {
		archetype := m.cfg.Archetypes[m.rng.Intn(len(m.cfg.Archetypes))]
		components := make([]snapshot.ComponentSnapshot, len(archetype))
		for j, compType := range archetype {
			components[j] = m.generateComponent(compType)
		}
		entities = append(entities, snapshot.EntitySnapshot{ID: i, Components: components})
	}
	return entities
}

func (m *MockSource) generateComponent(typeShort string) snapshot.ComponentSnapshot {
	return snapshot.ComponentSnapshot{
		TypeName:  "mock.components." + typeShort,
		TypeShort: typeShort,
		Data:      m.mockComponentData(typeShort),
	}
}

func (m *MockSource) mockComponentData(typeShort string) map[string]any {
	switch typeShort {
	case "Position":
		return map[string]any{"x": m.rng.Float64()*200 - 100, "y": m.rng.Float64()*200 - 100}
	case "Velocity":
		return map[string]any{"dx": m.rng.Float64()*10 - 5, "dy": m.rng.Float64()*10 - 5}
	case "Agent":
		states := []string{"idle", "working", "waiting"}
		return map[string]any{"name": fmt.Sprintf("Agent_%d", m.rng.Intn(100)+1), "state": states[m.rng.Intn(len(states))]}
	case "Task":
		statuses := []string{"pending", "in_progress", "completed"}
		return map[string]any{"description": fmt.Sprintf("Task %d", m.rng.Intn(1000)+1), "status": statuses[m.rng.Intn(len(statuses))]}
	case "Priority":
		return map[string]any{"level": m.rng.Intn(5) + 1}
	case "Deadline":
		return map[string]any{"remaining_ticks": m.rng.Intn(100) + 1}
	case "Memory":
		return map[string]any{"entries": m.rng.Intn(51)}
	case "Goals":
		return map[string]any{"count": m.rng.Intn(5) + 1}
	default:
		return map[string]any{"value": m.rng.Float64()}
	}
}

func (m *MockSource) updateEntitiesLocked() {
	for i := range m.entities {
		entity := &m.entities[i]
		byType := make(map[string]*snapshot.ComponentSnapshot, len(entity.Components))
		for j := range entity.Components {
			byType[entity.Components[j].TypeShort] = &entity.Components[j]
		}

		if pos, ok := byType["Position"]; ok {
			if vel, ok := byType["Velocity"]; ok {
				pos.Data["x"] = toFloat(pos.Data["x"]) + toFloat(vel.Data["dx"])
				pos.Data["y"] = toFloat(pos.Data["y"]) + toFloat(vel.Data["dy"])
			}
		}

		if deadline, ok := byType["Deadline"]; ok {
			remaining := int(toFloat(deadline.Data["remaining_ticks"]))
			if remaining > 0 {
				remaining--
			}
			deadline.Data["remaining_ticks"] = remaining
		}

		if task, ok := byType["Task"]; ok {
			if m.rng.Float64() < taskCompletionProbability {
				task.Data["status"] = "completed"
			}
		}
	}

	maxEntities := float64(m.cfg.EntityCount) * maxEntityMultiplier
	if m.rng.Float64() < entitySpawnProbability && float64(len(m.entities)) < maxEntities {
		newID := 0
		for _, e := range m.entities {
			if e.ID >= newID {
				newID = e.ID + 1
			}
		}
		archetype := m.cfg.Archetypes[m.rng.Intn(len(m.cfg.Archetypes))]
		components := make([]snapshot.ComponentSnapshot, len(archetype))
		for j, compType := range archetype {
			components[j] = m.generateComponent(compType)
		}
		m.entities = append(m.entities, snapshot.EntitySnapshot{ID: newID, Components: components})
	}

	if m.rng.Float64() < entityDespawnProbability && len(m.entities) > minEntityCount {
		idx := m.rng.Intn(len(m.entities))
		m.entities = append(m.entities[:idx], m.entities[idx+1:]...)
	}
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
