package worldsource

import (
	"context"
	"testing"
	"time"

	"tickstream/protocol"
)

func waitForTick(t *testing.T, m *MockSource, min int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.CurrentTick() >= min {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for tick >= %d, got %d", min, m.CurrentTick())
}

func newTestSource(t *testing.T) *MockSource {
	t.Helper()
	return NewMockSource(MockSourceConfig{
		EntityCount:  5,
		TickInterval: 5 * time.Millisecond,
	})
}

// Two independent subscribers observe the same ordered sequence of
// snapshot ticks: no subscriber sees a tick the other skips, and
// neither sees ticks out of order.
func TestFanoutDeliversIdenticalOrderedSequenceToAllSubscribers(t *testing.T) {
	m := newTestSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Disconnect()

	events1, cancel1 := m.Subscribe()
	defer cancel1()
	events2, cancel2 := m.Subscribe()
	defer cancel2()

	waitForTick(t, m, 5, 2*time.Second)

	collect := func(ch <-chan protocol.Event, n int) []int {
		ticks := make([]int, 0, n)
		timeout := time.After(2 * time.Second)
		for len(ticks) < n {
			select {
			case e := <-ch:
				if snap, ok := e.(protocol.SnapshotEvent); ok {
					ticks = append(ticks, snap.Tick)
				}
			case <-timeout:
				t.Fatalf("timed out collecting events, got %v", ticks)
			}
		}
		return ticks
	}

	seq1 := collect(events1, 5)
	seq2 := collect(events2, 5)

	if len(seq1) != len(seq2) {
		t.Fatalf("sequence length mismatch: %v vs %v", seq1, seq2)
	}
	for i := range seq1 {
		if seq1[i] != seq2[i] {
			t.Fatalf("sequence mismatch at index %d: %v vs %v", i, seq1, seq2)
		}
		if i > 0 && seq1[i] <= seq1[i-1] {
			t.Fatalf("sequence not strictly increasing: %v", seq1)
		}
	}
}

// connect -> commands -> disconnect -> connect resets to the initial
// state: tick 0, unpaused, a fresh entity population.
func TestReconnectResetsToInitialState(t *testing.T) {
	m := newTestSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitForTick(t, m, 2, 2*time.Second)
	if err := m.SendCommand(protocol.PauseCommand{}); err != nil {
		t.Fatalf("SendCommand pause: %v", err)
	}
	if !m.IsPaused() {
		t.Fatalf("expected paused after PauseCommand")
	}
	m.Disconnect()
	if m.IsConnected() {
		t.Fatalf("expected disconnected after Disconnect")
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if err := m.Connect(ctx2); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer m.Disconnect()

	if m.CurrentTick() != 0 {
		t.Fatalf("expected tick reset to 0, got %d", m.CurrentTick())
	}
	if m.IsPaused() {
		t.Fatalf("expected unpaused after reconnect")
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected after reconnect")
	}
}

func TestStepCommandAdvancesExactlyOneTickWhilePaused(t *testing.T) {
	m := newTestSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Disconnect()

	if err := m.SendCommand(protocol.PauseCommand{}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	before := m.CurrentTick()

	if err := m.SendCommand(protocol.StepCommand{}); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := m.CurrentTick(); got != before+1 {
		t.Fatalf("expected tick %d after step, got %d", before+1, got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := m.CurrentTick(); got != before+1 {
		t.Fatalf("expected tick to stay at %d while paused, got %d", before+1, got)
	}
}

func TestSendCommandRejectsUnknownCommandType(t *testing.T) {
	m := newTestSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Disconnect()

	if err := m.SendCommand(nil); err == nil {
		t.Fatalf("expected error for unsupported command")
	}
}
