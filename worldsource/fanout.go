package worldsource

import (
	"sync"

	"tickstream/logging"
	"tickstream/protocol"
)

// DefaultSubscriberCapacity is the default per-subscriber queue depth.
const DefaultSubscriberCapacity = 1000

// fanout is a set of independent, per-subscriber bounded channels.
// Broadcasting is non-blocking: a full subscriber has its event
// dropped rather than stalling the driver or any other subscriber.
type fanout struct {
	mu          sync.Mutex
	capacity    int
	subscribers map[chan protocol.Event]struct{}
}

func newFanout(capacity int) *fanout {
	if capacity <= 0 {
		capacity = DefaultSubscriberCapacity
	}
	return &fanout{
		capacity:    capacity,
		subscribers: make(map[chan protocol.Event]struct{}),
	}
}

func (f *fanout) subscribe() (<-chan protocol.Event, func()) {
	ch := make(chan protocol.Event, f.capacity)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, ch)
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

func (f *fanout) broadcast(event protocol.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			logging.Warn("subscriber queue full, dropping event", nil)
		}
	}
}

func (f *fanout) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
	}
}
