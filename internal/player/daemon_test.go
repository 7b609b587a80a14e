package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"playdeck/internal/core"
)

func TestTrackIDFromURI(t *testing.T) {
	tests := []struct {
		uri string
		id  string
		ok  bool
	}{
		{"spotify:track:abc123", "abc123", true},
		{"spotify:track:", "", false},
		{"spotify:album:abc123", "", false},
		{"abc123", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		id, ok := trackIDFromURI(tt.uri)
		if id != tt.id || ok != tt.ok {
			t.Errorf("trackIDFromURI(%q) = %q, %v, want %q, %v", tt.uri, id, ok, tt.id, tt.ok)
		}
	}
}

func TestStatusToState(t *testing.T) {
	status := &daemonStatus{
		Volume:         32,
		VolumeSteps:    64,
		RepeatContext:  true,
		RepeatTrack:    true,
		ShuffleContext: true,
		Track: &daemonTrack{
			URI:      "spotify:track:x1",
			Name:     "X",
			Duration: 30000,
			Position: 1500,
		},
	}

	state := statusToState(status)
	if !state.Playing {
		t.Error("neither paused nor stopped, want playing")
	}
	if state.Volume != 0.5 {
		t.Errorf("volume = %v, want 0.5 on a 64-step scale", state.Volume)
	}
	if state.Repeat != core.RepeatTrack {
		t.Errorf("repeat = %v, want track to win over context", state.Repeat)
	}
	if !state.Shuffle {
		t.Error("shuffle not carried over")
	}
	if state.Track == nil || state.Track.ID != "x1" {
		t.Fatalf("track = %+v, want id x1", state.Track)
	}
	if state.Position != 1500*time.Millisecond {
		t.Errorf("position = %v, want 1.5s", state.Position)
	}
}

func TestStatusToStateDefaultsVolumeScale(t *testing.T) {
	state := statusToState(&daemonStatus{Paused: true, Volume: 50})
	if state.Playing {
		t.Error("paused status reported as playing")
	}
	if state.Volume != 0.5 {
		t.Errorf("volume = %v, want 0.5 on the default scale", state.Volume)
	}
	if state.Repeat != core.RepeatOff {
		t.Errorf("repeat = %v, want off", state.Repeat)
	}
}

func TestHandleEventNormalizesStateChanges(t *testing.T) {
	d := NewDaemon(&core.PlayerConfig{DaemonURL: "http://localhost:0"}, zap.NewNop())
	events := d.Events()

	next := func() Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(time.Second):
			t.Fatal("no event emitted")
			return Event{}
		}
	}

	d.handleEvent(daemonEvent{Type: "metadata", Data: json.RawMessage(
		`{"uri":"spotify:track:x1","name":"X","artist_names":["A"],"duration":30000,"position":2000}`)})
	ev := next()
	if ev.Type != EventStateChanged || ev.State == nil {
		t.Fatalf("metadata event = %+v, want state change", ev)
	}
	if ev.State.Track == nil || ev.State.Track.Name != "X" || ev.State.Track.ID != "x1" {
		t.Fatalf("track = %+v", ev.State.Track)
	}
	if ev.State.Position != 2*time.Second {
		t.Errorf("position = %v, want 2s", ev.State.Position)
	}

	d.handleEvent(daemonEvent{Type: "playing"})
	if ev := next(); !ev.State.Playing {
		t.Error("playing event did not set playing")
	}

	d.handleEvent(daemonEvent{Type: "volume", Data: json.RawMessage(`{"value":8,"max":16}`)})
	if ev := next(); ev.State.Volume != 0.5 {
		t.Errorf("volume = %v, want 0.5", ev.State.Volume)
	}

	d.handleEvent(daemonEvent{Type: "repeat_track", Data: json.RawMessage(`{"value":true}`)})
	if ev := next(); ev.State.Repeat != core.RepeatTrack {
		t.Errorf("repeat = %v, want track", ev.State.Repeat)
	}
	d.handleEvent(daemonEvent{Type: "repeat_track", Data: json.RawMessage(`{"value":false}`)})
	if ev := next(); ev.State.Repeat != core.RepeatOff {
		t.Errorf("repeat = %v, want off after repeat_track cleared", ev.State.Repeat)
	}

	d.handleEvent(daemonEvent{Type: "stopped"})
	if ev := next(); ev.State.Playing || ev.State.Track != nil {
		t.Error("stopped event left stale playback state")
	}

	// Unrecognized event types stay silent.
	d.handleEvent(daemonEvent{Type: "mystery"})
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v for unknown type", ev.Type)
	default:
	}
}

func TestHandleEventActiveEmitsReady(t *testing.T) {
	d := NewDaemon(&core.PlayerConfig{DaemonURL: "http://localhost:0"}, zap.NewNop())
	d.deviceID = "dev1"
	d.deviceName = "Living Room"

	d.handleEvent(daemonEvent{Type: "active"})
	ev := <-d.Events()
	if ev.Type != EventReady || ev.DeviceID != "dev1" || ev.DeviceName != "Living Room" {
		t.Fatalf("active event = %+v, want ready for dev1/Living Room", ev)
	}

	d.handleEvent(daemonEvent{Type: "inactive"})
	if ev := <-d.Events(); ev.Type != EventNotReady {
		t.Fatalf("inactive event = %+v, want not-ready", ev)
	}
}

var testUpgrader = websocket.Upgrader{}

// daemonFixture is an in-process stand-in for the player daemon's REST
// and WebSocket surface.
type daemonFixture struct {
	status daemonStatus
	// dropStreams closes every event stream right after the upgrade.
	dropStreams bool

	mu          sync.Mutex
	volumePosts []int
}

func (f *daemonFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(f.status)
	})
	mux.HandleFunc("/player/volume", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Volume int `json:"volume"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.volumePosts = append(f.volumePosts, body.Volume)
		f.mu.Unlock()
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if f.dropStreams {
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	})
	return mux
}

func (f *daemonFixture) recordedVolumes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.volumePosts...)
}

func TestConnectAppliesConfiguredVolumeAndEmitsReady(t *testing.T) {
	fixture := &daemonFixture{
		status: daemonStatus{DeviceID: "dev1", DeviceName: "Living Room", Volume: 10, VolumeSteps: 100},
	}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	d := NewDaemon(&core.PlayerConfig{DaemonURL: srv.URL, DeviceName: "Playdeck", Volume: 0.7}, zap.NewNop())
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer d.Disconnect()

	select {
	case ev := <-d.Events():
		if ev.Type != EventReady || ev.DeviceID != "dev1" || ev.DeviceName != "Living Room" {
			t.Fatalf("first event = %+v, want ready for dev1/Living Room", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no ready event after connect")
	}

	if got := fixture.recordedVolumes(); len(got) != 1 || got[0] != 70 {
		t.Errorf("volume posts = %v, want [70]", got)
	}
}

func TestConnectFallsBackToConfiguredDeviceName(t *testing.T) {
	fixture := &daemonFixture{status: daemonStatus{DeviceID: "dev1"}}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	d := NewDaemon(&core.PlayerConfig{DaemonURL: srv.URL, DeviceName: "Playdeck"}, zap.NewNop())
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer d.Disconnect()

	select {
	case ev := <-d.Events():
		if ev.DeviceName != "Playdeck" {
			t.Errorf("device name = %q, want configured fallback", ev.DeviceName)
		}
	case <-time.After(time.Second):
		t.Fatal("no ready event after connect")
	}
}

func TestReconnectAfterStreamDrops(t *testing.T) {
	fixture := &daemonFixture{status: daemonStatus{DeviceID: "dev1"}, dropStreams: true}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	d := NewDaemon(&core.PlayerConfig{DaemonURL: srv.URL}, zap.NewNop())

	// The server drops every stream immediately; repeated reconnects
	// must hand out a fresh channel each round without tripping over
	// the previous read loop.
	for i := 0; i < 10; i++ {
		if err := d.Connect(context.Background()); err != nil {
			t.Fatalf("connect %d failed: %v", i, err)
		}

		events := d.Events()
		deadline := time.After(2 * time.Second)
		for open := true; open; {
			select {
			case _, ok := <-events:
				open = ok
			case <-deadline:
				t.Fatalf("round %d: event stream never closed after the drop", i)
			}
		}
	}
}
