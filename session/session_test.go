package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"tickstream/protocol"
	"tickstream/session"
	"tickstream/worldsource"
)

func newTestServer(t *testing.T, src worldsource.Source) (*httptest.Server, string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		session.Serve(w, r, src, session.DefaultOptions())
	})
	srv := httptest.NewServer(mux)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// On connect, the session sends exactly one metadata event followed
// by one snapshot event describing the current state.
func TestHandshakeSendsMetadataThenSnapshot(t *testing.T) {
	src := worldsource.NewMockSource(worldsource.MockSourceConfig{EntityCount: 3, TickInterval: time.Hour})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Disconnect()

	srv, url := newTestServer(t, src)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	first := readEvent(t, conn)
	require.Equal(t, "metadata", first["type"])
	require.Equal(t, float64(0), first["tick"])

	second := readEvent(t, conn)
	require.Equal(t, "snapshot", second["type"])
}

// S5: malformed or out-of-range commands produce an "error" event
// and never a tick_update / dispatch to the source.
func TestInvalidCommandsProduceProtocolErrorEvents(t *testing.T) {
	src := worldsource.NewMockSource(worldsource.MockSourceConfig{EntityCount: 3, TickInterval: time.Hour})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Disconnect()

	srv, url := newTestServer(t, src)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	readEvent(t, conn) // metadata
	readEvent(t, conn) // snapshot

	cases := []string{
		`{"command":"set_speed","ticks_per_second":"banana"}`,
		`{"command":"set_speed","ticks_per_second":0}`,
		`{"command":"set_speed","ticks_per_second":-1}`,
		`{"command":"set_speed","ticks_per_second":true}`,
		`{"command":"seek","tick":-1}`,
		`{"command":"bogus"}`,
	}
	for _, payload := range cases {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
		resp := readEvent(t, conn)
		require.Equal(t, "error", resp["type"], "payload %s", payload)
		require.NotEmpty(t, resp["message"])
	}
}

// S6: after advancing 5 ticks via paused stepping, seek(tick=1)
// produces a snapshot event with tick==1.
func TestSeekReturnsHistoricalSnapshot(t *testing.T) {
	src := worldsource.NewMockSource(worldsource.MockSourceConfig{EntityCount: 3, TickInterval: time.Hour})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Disconnect()

	require.NoError(t, src.SendCommand(protocol.PauseCommand{}))
	for i := 0; i < 5; i++ {
		require.NoError(t, src.SendCommand(protocol.StepCommand{}))
	}
	require.Equal(t, 5, src.CurrentTick())

	srv, url := newTestServer(t, src)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	readEvent(t, conn) // metadata
	readEvent(t, conn) // snapshot

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"seek","tick":1}`)))
	resp := readEvent(t, conn)
	require.Equal(t, "snapshot", resp["type"])
	require.Equal(t, float64(1), resp["tick"])
}

// pause/resume/step each produce a tick_update acknowledgement
// carrying the post-command state.
func TestPauseResumeStepProduceTickUpdateAcknowledgements(t *testing.T) {
	src := worldsource.NewMockSource(worldsource.MockSourceConfig{EntityCount: 3, TickInterval: time.Hour})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Disconnect()

	srv, url := newTestServer(t, src)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	readEvent(t, conn) // metadata
	readEvent(t, conn) // snapshot

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"pause"}`)))
	resp := readEvent(t, conn)
	require.Equal(t, "tick_update", resp["type"])
	require.Equal(t, true, resp["is_paused"])

	// A step also broadcasts that tick's snapshot/span events on the
	// subscriber stream, which may be interleaved ahead of the ack.
	nextTickUpdate := func() map[string]any {
		for {
			msg := readEvent(t, conn)
			if msg["type"] == "tick_update" {
				return msg
			}
		}
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"step"}`)))
	resp = nextTickUpdate()
	require.Equal(t, "tick_update", resp["type"])
	require.Equal(t, float64(1), resp["tick"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"resume"}`)))
	resp = nextTickUpdate()
	require.Equal(t, "tick_update", resp["type"])
	require.Equal(t, false, resp["is_paused"])
}
