// Package worldsource drives simulated world state forward on a
// cooperative background loop and fans tick events out to any number
// of independent subscribers.
package worldsource

import (
	"context"

	"tickstream/protocol"
	"tickstream/snapshot"
)

// Source is the authoritative driver behind one world. Implementations
// own their own history, subscriber set, and pacing; the session layer
// only ever talks to a Source through this interface.
type Source interface {
	// Connect initializes state and launches the background driver.
	// Calling Connect after Disconnect must re-initialize from scratch.
	Connect(ctx context.Context) error

	// Disconnect stops the driver, drops every subscriber, and marks
	// the source disconnected. Safe to call more than once.
	Disconnect()

	// GetSnapshot returns the live snapshot when tick is nil or equal
	// to the current tick, otherwise the historical snapshot for that
	// tick. ok is false when a specific tick was requested and history
	// does not retain it.
	GetSnapshot(tick *int) (snap snapshot.WorldSnapshot, ok bool)

	// CurrentTick returns the tick the driver last advanced to.
	CurrentTick() int

	// IsConnected reports whether the driver is currently running.
	IsConnected() bool

	// IsPaused reports whether the driver is currently paused.
	IsPaused() bool

	// SupportsHistory reports whether seek queries can be served.
	SupportsHistory() bool

	// TickRange returns the oldest and newest ticks retained by
	// history, if any.
	TickRange() (min, max int, ok bool)

	// VisualizationConfig returns optional per-world display hints.
	VisualizationConfig() *protocol.VisualizationConfig

	// Subscribe registers a fresh bounded event stream. The returned
	// cancel function must be called to release the subscription; it
	// is safe to call more than once.
	Subscribe() (events <-chan protocol.Event, cancel func())

	// SendCommand validates and applies a playback-control command.
	SendCommand(cmd protocol.Command) error
}
