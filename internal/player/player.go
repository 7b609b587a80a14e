// Package player abstracts the local playback engine behind a narrow
// capability interface. The concrete implementation talks to a
// go-librespot compatible daemon over its local REST API and WebSocket
// event stream; nothing outside this package depends on that surface.
package player

import (
	"context"
	"time"

	"playdeck/internal/core"
)

type EventType int

const (
	// EventReady fires when the local player registered with the remote
	// service and can accept playback
	EventReady EventType = iota
	// EventNotReady fires when the local player went offline
	EventNotReady
	// EventStateChanged fires on any playback state change pushed by the
	// player
	EventStateChanged
	// EventError fires on player-reported failures
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventNotReady:
		return "not_ready"
	case EventStateChanged:
		return "state_changed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the player-pushed view of playback, limited to what the
// local engine knows about itself.
type State struct {
	Playing  bool
	Track    *core.Track
	Position time.Duration
	Volume   float64
	Shuffle  bool
	Repeat   core.RepeatMode
}

type Event struct {
	Type       EventType
	DeviceID   string
	DeviceName string
	State      *State
	Message    string
}

// Player is the capability surface the playback session depends on.
type Player interface {
	// Connect attaches to the local player and starts the event stream.
	// Safe to call more than once; only the first call dials.
	Connect(ctx context.Context) error
	// Events returns the stream of player events. Closed on disconnect.
	Events() <-chan Event
	TogglePlay(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, volume float64) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Disconnect() error
}
