package worldsource

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tickstream/history"
	"tickstream/protocol"
	"tickstream/snapshot"
)

// MockSourceConfig configures a MockSource at construction time.
type MockSourceConfig struct {
	EntityCount          int
	TickInterval         time.Duration
	Archetypes           [][]string
	VisualizationConfig  *protocol.VisualizationConfig
	MaxHistoryTicks      int
	CheckpointInterval   int
	SubscriberCapacity   int
}

func (c MockSourceConfig) withDefaults() MockSourceConfig {
	if c.EntityCount <= 0 {
		c.EntityCount = 50
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if len(c.Archetypes) == 0 {
		c.Archetypes = defaultArchetypes()
	}
	if c.VisualizationConfig == nil {
		cfg := defaultVisualizationConfig()
		c.VisualizationConfig = &cfg
	}
	if c.MaxHistoryTicks <= 0 {
		c.MaxHistoryTicks = 1000
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 100
	}
	if c.SubscriberCapacity <= 0 {
		c.SubscriberCapacity = DefaultSubscriberCapacity
	}
	return c
}

// MockSource generates synthetic entities with randomly mutating
// components, for frontend development and integration testing
// without a real ECS engine attached.
type MockSource struct {
	cfg MockSourceConfig

	mu           sync.Mutex
	tick         int
	paused       bool
	connected    bool
	entities     []snapshot.EntitySnapshot
	tickInterval time.Duration

	history *history.Store
	fan     *fanout
	limiter *rate.Limiter
	rng     *rand.Rand

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMockSource constructs a MockSource. Connect must be called
// before it produces any ticks.
func NewMockSource(cfg MockSourceConfig) *MockSource {
	cfg = cfg.withDefaults()
	return &MockSource{
		cfg:          cfg,
		tickInterval: cfg.TickInterval,
		history:      history.New(cfg.MaxHistoryTicks, cfg.CheckpointInterval),
		fan:          newFanout(cfg.SubscriberCapacity),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockSource) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.tick = 0
	m.paused = false
	m.tickInterval = m.cfg.TickInterval
	m.history.Clear()
	m.entities = m.generateEntities()
	initial := m.buildSnapshotLocked()
	m.history.RecordTick(initial)
	m.connected = true
	m.limiter = rate.NewLimiter(rate.Limit(1/m.tickInterval.Seconds()), 1)
	// Drain the initial burst token so the first tick comes one
	// interval after Connect rather than immediately.
	m.limiter.Allow()
	m.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.runLoop(loopCtx)
	return nil
}

func (m *MockSource) Disconnect() {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	m.fan.clear()
}

func (m *MockSource) runLoop(ctx context.Context) {
	defer close(m.done)
	for {
		m.mu.Lock()
		limiter := m.limiter
		m.mu.Unlock()

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		m.mu.Lock()
		paused := m.paused
		m.mu.Unlock()
		if !paused {
			m.executeTick()
		}
	}
}

func (m *MockSource) executeTick() {
	m.mu.Lock()
	m.tick++
	m.updateEntitiesLocked()
	snap := m.buildSnapshotLocked()
	m.history.RecordTick(snap)
	tick := m.tick
	entities := m.entities
	m.mu.Unlock()

	m.fan.broadcast(protocol.SnapshotEvent{Tick: tick, Snapshot: snap})

	if len(entities) > 0 && m.rng.Float64() < errorProbability {
		entity := entities[m.rng.Intn(len(entities))]
		tmpl := errorTemplates[m.rng.Intn(len(errorTemplates))]
		entityID := entity.ID
		errEvent := history.ErrorEvent{
			ID:       fmt.Sprintf("err-%d-%d", tick, entityID),
			Tick:     tick,
			EntityID: &entityID,
			Severity: tmpl.severity,
			Message:  tmpl.message,
		}
		m.history.RecordError(errEvent)
		m.fan.broadcast(protocol.ErrorEvent{
			Tick:     tick,
			EntityID: &entityID,
			Severity: string(tmpl.severity),
			Message:  tmpl.message,
		})
	}

	if len(entities) > 0 {
		m.generateSpans(tick, entities)
	}
}

func (m *MockSource) GetSnapshot(tick *int) (snapshot.WorldSnapshot, bool) {
	m.mu.Lock()
	current := m.tick
	m.mu.Unlock()

	if tick == nil || *tick == current {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.buildSnapshotLocked(), true
	}
	return m.history.GetSnapshot(*tick)
}

func (m *MockSource) CurrentTick() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick
}

func (m *MockSource) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockSource) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockSource) SupportsHistory() bool { return true }

func (m *MockSource) TickRange() (int, int, bool) {
	return m.history.GetTickRange()
}

func (m *MockSource) VisualizationConfig() *protocol.VisualizationConfig {
	return m.cfg.VisualizationConfig
}

func (m *MockSource) Subscribe() (<-chan protocol.Event, func()) {
	return m.fan.subscribe()
}

func (m *MockSource) SendCommand(cmd protocol.Command) error {
	switch c := cmd.(type) {
	case protocol.PauseCommand:
		m.mu.Lock()
		m.paused = true
		m.mu.Unlock()
	case protocol.ResumeCommand:
		m.mu.Lock()
		m.paused = false
		m.mu.Unlock()
	case protocol.StepCommand:
		m.mu.Lock()
		paused := m.paused
		m.mu.Unlock()
		if paused {
			m.executeTick()
		}
	case protocol.SetSpeedCommand:
		m.mu.Lock()
		m.tickInterval = time.Duration(float64(time.Second) / c.TicksPerSecond)
		if m.limiter != nil {
			m.limiter.SetLimit(rate.Limit(c.TicksPerSecond))
		}
		m.mu.Unlock()
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
	return nil
}

func (m *MockSource) buildSnapshotLocked() snapshot.WorldSnapshot {
	entities := make([]snapshot.EntitySnapshot, len(m.entities))
	for i, e := range m.entities {
		entities[i] = e.Clone()
	}
	return snapshot.WorldSnapshot{
		Tick:      m.tick,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Entities:  entities,
		Metadata:  map[string]any{"source": "mock", "paused": m.paused},
	}
}

// History exposes the underlying store for diagnostics. The driver is
// its sole writer; seeks reach it through GetSnapshot.
func (m *MockSource) History() *history.Store {
	return m.history
}
