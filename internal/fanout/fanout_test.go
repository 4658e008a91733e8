package fanout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/courtside/scoresync/internal/core/live"
	"github.com/courtside/scoresync/internal/core/model"
	"github.com/courtside/scoresync/internal/events"
)

func dialTestServer(t *testing.T, srv *Server, gameID string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.mu.Lock()
		got := len(srv.clients)
		srv.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server never reached %d clients", n)
}

func TestViewUpdateReachesSpectator(t *testing.T) {
	bus := events.NewBus()
	srv := NewServer(bus)
	conn := dialTestServer(t, srv, "g1")
	waitForClients(t, srv, 1)

	view := live.ViewState{
		Game:         &model.GameSnapshot{ID: "g1", OurScore: 42, OpponentScore: 40},
		ClockSeconds: 125,
		ClockTicking: true,
	}
	bus.Publish(events.Event{
		Type:      events.EventViewUpdate,
		GameID:    "g1",
		Timestamp: time.Now(),
		Payload:   view,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	evt, err := UnmarshalEvent(msg)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := evt.Payload.(live.ViewState)
	if !ok {
		t.Fatalf("payload type %T", evt.Payload)
	}
	if got.Game.OurScore != 42 || got.ClockSeconds != 125 || !got.ClockTicking {
		t.Errorf("view = %+v", got)
	}
}

func TestOtherGameNotDelivered(t *testing.T) {
	bus := events.NewBus()
	srv := NewServer(bus)
	conn := dialTestServer(t, srv, "g1")
	waitForClients(t, srv, 1)

	bus.Publish(events.Event{
		Type:    events.EventViewUpdate,
		GameID:  "other",
		Payload: live.ViewState{},
	})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received a view update for a different game")
	}
}

func TestHandleWSRequiresGameParam(t *testing.T) {
	srv := NewServer(events.NewBus())
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUnmarshalUnknownTypeRejected(t *testing.T) {
	if _, err := UnmarshalEvent([]byte(`{"type":"mystery","ts":"2026-02-01T19:00:00Z","payload":{}}`)); err == nil {
		t.Error("expected error for unknown envelope type")
	}
}
