package worldsource

import (
	"time"

	"github.com/google/uuid"

	"tickstream/history"
	"tickstream/protocol"
	"tickstream/snapshot"
)

type errorTemplate struct {
	message  string
	severity history.Severity
}

var errorTemplates = []errorTemplate{
	{"LLM rate limit exceeded", history.SeverityCritical},
	{"Tool execution failed: timeout", history.SeverityCritical},
	{"Memory limit approaching threshold", history.SeverityWarning},
	{"Task retry count exceeded", history.SeverityWarning},
	{"Stale context detected, refreshing", history.SeverityWarning},
	{"Goal evaluation returned low confidence", history.SeverityInfo},
	{"Unexpected API response format", history.SeverityWarning},
	{"Duplicate task assignment detected", history.SeverityInfo},
}

// executionGroups run sequentially; systems within one group overlap.
var executionGroups = [][]string{
	{"PerceptionSystem"},
	{"GoalPlanner", "TaskScheduler"},
	{"MemoryConsolidation"},
	{"MovementSystem"},
}

var complexSystems = map[string]bool{
	"GoalPlanner":         true,
	"TaskScheduler":       true,
	"MemoryConsolidation": true,
}

type llmProfile struct {
	model               string
	promptTokenRange    [2]int
	completionTokenRange [2]int
	inputMessages       []map[string]string
	outputMessages      []map[string]string
}

var llmProfiles = []llmProfile{
	{
		model:                "gpt-4o",
		promptTokenRange:     [2]int{100, 2000},
		completionTokenRange: [2]int{50, 500},
		inputMessages: []map[string]string{
			{"role": "system", "content": "You are a helpful agent."},
			{"role": "user", "content": "Analyze the current task."},
		},
		outputMessages: []map[string]string{{"role": "assistant", "content": "I'll analyze the task."}},
	},
	{
		model:                "claude-sonnet-4-20250514",
		promptTokenRange:     [2]int{200, 3000},
		completionTokenRange: [2]int{100, 800},
		inputMessages: []map[string]string{
			{"role": "system", "content": "You are a planning agent."},
			{"role": "user", "content": "What should we do next?"},
		},
		outputMessages: []map[string]string{{"role": "assistant", "content": "I recommend the following."}},
	},
	{
		model:                "gpt-4o-mini",
		promptTokenRange:     [2]int{50, 500},
		completionTokenRange: [2]int{20, 200},
		inputMessages:        []map[string]string{{"role": "user", "content": "Summarize the results."}},
		outputMessages:       []map[string]string{{"role": "assistant", "content": "Here is a brief summary."}},
	},
}

type toolTemplate struct {
	name   string
	input  map[string]any
	output map[string]any
}

var toolTemplates = []toolTemplate{
	{"web_search", map[string]any{"query": "latest research on agents"}, map[string]any{"results": []map[string]string{{"title": "Survey", "url": "https://example.com"}}}},
	{"code_interpreter", map[string]any{"code": "import pandas as pd\ndf.describe()"}, map[string]any{"stdout": "count  mean\nval  100  42.5"}},
	{"file_read", map[string]any{"path": "/data/config.json"}, map[string]any{"content": `{"setting": "value"}`}},
}

// pendingSpan is a span awaiting indexing/broadcast; it carries the
// protocol wire shape alongside the history side-record.
type pendingSpan struct {
	wire    protocol.SpanEvent
	history history.SpanEvent
}

func (m *MockSource) generateSpans(tick int, entities []snapshot.EntitySnapshot) {
	var agents []snapshot.EntitySnapshot
	for _, e := range entities {
		if _, ok := e.ComponentByType("Agent"); ok {
			agents = append(agents, e)
		}
	}
	if len(agents) == 0 {
		return
	}

	now := float64(time.Now().UnixNano()) / 1e9
	cursor := now
	var spans []pendingSpan

	for _, group := range executionGroups {
		groupStart := cursor
		groupEnd := groupStart

		for _, systemName := range group {
			entity := agents[m.rng.Intn(len(agents))]
			traceID := uuid.New().String()
			rootSpanID := uuid.New().String()
			sysStart := groupStart + m.rng.Float64()*0.005

			var duration float64
			var hasError bool
			if complexSystems[systemName] {
				var children []pendingSpan
				childCursor := sysStart + 0.005 + m.rng.Float64()*0.015
				roll := m.rng.Float64()
				switch {
				case roll < 0.50:
					childCursor = m.generateChildSpans(&children, traceID, rootSpanID, entity.ID, childCursor, 1+m.rng.Intn(3), 0)
				case roll < 0.80:
					childCursor = m.generateChildSpans(&children, traceID, rootSpanID, entity.ID, childCursor, 3+m.rng.Intn(3), 0)
				default:
					childCursor = m.generateDeepTrace(&children, traceID, rootSpanID, entity.ID, childCursor)
				}
				duration = childCursor - sysStart
				for _, c := range children {
					if c.wire.Status == string(history.SpanStatusError) {
						hasError = true
					}
				}
				spans = append(spans, children...)
			} else {
				duration = 0.005 + m.rng.Float64()*0.035
				hasError = false
			}

			status := history.SpanStatusOK
			if hasError {
				status = history.SpanStatusError
			}
			root := m.makeSpan(rootSpanID, traceID, "", systemName, sysStart, sysStart+duration, status, map[string]any{
				"agentecs.tick":      tick,
				"agentecs.entity_id": entity.ID,
				"agentecs.system":    systemName,
			})
			spans = append(spans, root)
			if end := sysStart + duration; end > groupEnd {
				groupEnd = end
			}
		}

		cursor = groupEnd + 0.005 + m.rng.Float64()*0.010
	}

	for _, s := range spans {
		// Child spans are built without the tick; the attributes map is
		// shared by the wire and history records, so this sets both.
		s.history.Attributes["agentecs.tick"] = tick
		s.history.Tick = tick
		m.history.RecordSpan(s.history)
		m.fan.broadcast(s.wire)
	}
}

func (m *MockSource) makeSpan(spanID, traceID, parentID, name string, start, end float64, status history.SpanStatus, attrs map[string]any) pendingSpan {
	wire := protocol.SpanEvent{
		SpanID:       spanID,
		TraceID:      traceID,
		ParentSpanID: parentID,
		Name:         name,
		StartTime:    start,
		EndTime:      end,
		Status:       string(status),
		Attributes:   attrs,
	}
	return pendingSpan{
		wire: wire,
		history: history.SpanEvent{
			SpanID:       spanID,
			TraceID:      traceID,
			ParentSpanID: parentID,
			Name:         name,
			StartTime:    start,
			EndTime:      end,
			Status:       status,
			Attributes:   attrs,
		},
	}
}

func (m *MockSource) makeLLMSpan(traceID, parentID string, entityID int, start, duration float64) pendingSpan {
	profile := llmProfiles[m.rng.Intn(len(llmProfiles))]
	status := history.SpanStatusOK
	if m.rng.Float64() < 0.08 {
		status = history.SpanStatusError
	}
	return m.makeSpan(uuid.New().String(), traceID, parentID, "llm."+profile.model, start, start+duration, status, map[string]any{
		"agentecs.tick":                   0,
		"agentecs.entity_id":              entityID,
		"gen_ai.request.model":            profile.model,
		"gen_ai.usage.prompt_tokens":      profile.promptTokenRange[0] + m.rng.Intn(profile.promptTokenRange[1]-profile.promptTokenRange[0]+1),
		"gen_ai.usage.completion_tokens":  profile.completionTokenRange[0] + m.rng.Intn(profile.completionTokenRange[1]-profile.completionTokenRange[0]+1),
		"gen_ai.request.messages":         profile.inputMessages,
		"gen_ai.response.messages":        profile.outputMessages,
	})
}

func (m *MockSource) makeToolSpan(traceID, parentID string, entityID int, start, duration float64) pendingSpan {
	tmpl := toolTemplates[m.rng.Intn(len(toolTemplates))]
	status := history.SpanStatusOK
	if m.rng.Float64() < 0.1 {
		status = history.SpanStatusError
	}
	return m.makeSpan(uuid.New().String(), traceID, parentID, "tool."+tmpl.name, start, start+duration, status, map[string]any{
		"agentecs.tick":      0,
		"agentecs.entity_id": entityID,
		"tool.name":          tmpl.name,
		"tool.input":         tmpl.input,
		"tool.output":        tmpl.output,
	})
}

func (m *MockSource) generateChildSpans(spans *[]pendingSpan, traceID, parentID string, entityID int, cursor float64, count, depth int) float64 {
	for i := 0; i < count; i++ {
		isLLM := m.rng.Float64() < 0.6
		var duration float64
		if depth > 0 {
			duration = 0.02 + m.rng.Float64()*0.13
		} else {
			duration = 0.05 + m.rng.Float64()*0.45
		}

		var span pendingSpan
		if isLLM {
			span = m.makeLLMSpan(traceID, parentID, entityID, cursor, duration)
		} else {
			span = m.makeToolSpan(traceID, parentID, entityID, cursor, duration)
		}
		*spans = append(*spans, span)
		cursor = span.wire.EndTime + 0.005 + m.rng.Float64()*0.025
	}
	return cursor
}

func (m *MockSource) generateDeepTrace(spans *[]pendingSpan, traceID, parentID string, entityID int, cursor float64) float64 {
	llmDuration := 0.3 + m.rng.Float64()*0.9
	llm := m.makeLLMSpan(traceID, parentID, entityID, cursor, llmDuration)
	*spans = append(*spans, llm)
	cursor = llm.wire.EndTime + 0.01 + m.rng.Float64()*0.02

	toolCount := 1 + m.rng.Intn(3)
	for i := 0; i < toolCount; i++ {
		toolDuration := 0.1 + m.rng.Float64()*0.5
		tool := m.makeToolSpan(traceID, llm.wire.SpanID, entityID, cursor, toolDuration)
		*spans = append(*spans, tool)

		if m.rng.Float64() < 0.3 {
			subStart := tool.wire.StartTime + toolDuration*0.2
			subDuration := toolDuration * 0.5
			sub := m.makeLLMSpan(traceID, tool.wire.SpanID, entityID, subStart, subDuration)
			*spans = append(*spans, sub)
		}

		cursor = tool.wire.EndTime + 0.01 + m.rng.Float64()*0.03

		if tool.wire.Status == string(history.SpanStatusError) && i < toolCount-1 {
			retryDuration := 0.1 + m.rng.Float64()*0.3
			retry := m.makeLLMSpan(traceID, parentID, entityID, cursor, retryDuration)
			retry.wire.Status = string(history.SpanStatusOK)
			retry.history.Status = history.SpanStatusOK
			*spans = append(*spans, retry)
			cursor = retry.wire.EndTime + 0.01 + m.rng.Float64()*0.02
		}
	}

	return cursor
}
