// Package session implements the per-connection multiplexer: it
// performs the connect handshake, then runs a reader and a writer
// goroutine against one subscriber queue until either side exits.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tickstream/logging"
	"tickstream/protocol"
	"tickstream/worldsource"
)

// Options configures websocket transport timeouts and buffer sizes.
type Options struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
}

// DefaultOptions mirrors conservative production websocket defaults.
func DefaultOptions() Options {
	return Options{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		MaxMessageSize:  32 * 1024,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
	}
}

// Session is one live connection's reader/writer pair, bound to a
// single worldsource.Source and a single subscriber queue.
type Session struct {
	opts   Options
	source worldsource.Source
	conn   *websocket.Conn
	send   chan []byte
}

var upgrader = func(opts Options) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Serve upgrades an HTTP request to a websocket connection and runs
// the session to completion, blocking until the connection closes.
func Serve(w http.ResponseWriter, r *http.Request, source worldsource.Source, opts Options) {
	conn, err := upgrader(opts).Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s := &Session{
		opts:   opts,
		source: source,
		conn:   conn,
		send:   make(chan []byte, opts.SendBufferSize),
	}
	s.run()
}

func (s *Session) run() {
	defer s.conn.Close()

	events, cancelSub := s.source.Subscribe()
	defer cancelSub()

	if err := s.handshake(); err != nil {
		logging.Error("session handshake failed", map[string]interface{}{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 2)
	go func() {
		s.writePump(ctx, events)
		done <- struct{}{}
	}()
	go func() {
		s.readPump(ctx)
		done <- struct{}{}
	}()

	<-done
	cancel()
	<-done
}

func (s *Session) handshake() error {
	minTick, maxTick, hasRange := s.source.TickRange()
	var tickRange *[2]int
	if hasRange {
		tickRange = &[2]int{minTick, maxTick}
	}

	meta := protocol.MetadataEvent{
		Tick:                s.source.CurrentTick(),
		VisualizationConfig: s.source.VisualizationConfig(),
		TickRange:           tickRange,
		SupportsReplay:      s.source.SupportsHistory(),
		IsPaused:            s.source.IsPaused(),
	}
	if err := s.sendEvent(meta); err != nil {
		return err
	}

	snap, _ := s.source.GetSnapshot(nil)
	return s.sendEvent(protocol.SnapshotEvent{Tick: snap.Tick, Snapshot: snap})
}

func (s *Session) sendEvent(e protocol.Event) error {
	payload, err := protocol.Encode(e)
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// writePump drains the subscriber queue and forwards every event to
// the wire, serializing directly via protocol.Encode so tuple-shaped
// fields like metadata's tick_range survive the round trip.
func (s *Session) writePump(ctx context.Context, events <-chan protocol.Event) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.sendEvent(event); err != nil {
				return
			}
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses and validates each incoming command, dispatching
// valid ones to the source and queueing an error event for any
// command that fails validation.
func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.opts.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket read error", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd, err := protocol.ParseCommand(raw)
		if err != nil {
			s.enqueue(protocol.ProtocolErrorEvent{Tick: s.source.CurrentTick(), Message: err.Error()})
			continue
		}
		s.dispatch(cmd)
	}
}

func (s *Session) dispatch(cmd protocol.Command) {
	switch c := cmd.(type) {
	case protocol.SeekCommand:
		tick := c.Tick
		snap, ok := s.source.GetSnapshot(&tick)
		if !ok {
			s.enqueue(protocol.ProtocolErrorEvent{Tick: s.source.CurrentTick(), Message: "unknown tick"})
			return
		}
		s.enqueue(protocol.SnapshotEvent{Tick: snap.Tick, Snapshot: snap})

	case protocol.PauseCommand, protocol.ResumeCommand, protocol.StepCommand:
		if err := s.source.SendCommand(cmd); err != nil {
			s.enqueue(protocol.ProtocolErrorEvent{Tick: s.source.CurrentTick(), Message: err.Error()})
			return
		}
		snap, _ := s.source.GetSnapshot(nil)
		s.enqueue(protocol.TickUpdateEvent{
			Tick:        s.source.CurrentTick(),
			EntityCount: len(snap.Entities),
			IsPaused:    s.source.IsPaused(),
		})

	case protocol.SetSpeedCommand:
		if err := s.source.SendCommand(cmd); err != nil {
			s.enqueue(protocol.ProtocolErrorEvent{Tick: s.source.CurrentTick(), Message: err.Error()})
		}

	default:
		s.enqueue(protocol.ProtocolErrorEvent{Tick: s.source.CurrentTick(), Message: "unsupported command"})
	}
}

func (s *Session) enqueue(e protocol.Event) {
	payload, err := protocol.Encode(e)
	if err != nil {
		return
	}
	select {
	case s.send <- payload:
	default:
		logging.Warn("session send queue full, dropping event", nil)
	}
}
