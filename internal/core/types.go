package core

import (
	"time"
)

// RepeatMode mirrors the remote player's repeat setting.
type RepeatMode string

const (
	// RepeatOff disables repeat
	RepeatOff RepeatMode = "off"
	// RepeatContext repeats the current playlist or album
	RepeatContext RepeatMode = "context"
	// RepeatTrack repeats the current track
	RepeatTrack RepeatMode = "track"
)

// ValidRepeatMode reports whether s names a known repeat mode.
func ValidRepeatMode(s string) bool {
	switch RepeatMode(s) {
	case RepeatOff, RepeatContext, RepeatTrack:
		return true
	}
	return false
}

type Artist struct {
	Name string
	URI  string
}

type Image struct {
	URL    string
	Width  int
	Height int
}

type Album struct {
	Name   string
	URI    string
	Images []Image
}

type Track struct {
	ID       string
	URI      string
	Name     string
	Duration time.Duration
	Artists  []Artist
	Album    Album
}

type Device struct {
	ID           string
	Name         string
	Type         string
	IsActive     bool
	IsRestricted bool
	VolumePct    int
}

type Playlist struct {
	ID          string
	URI         string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Images      []Image
	AddedAt     time.Time
}

type Queue struct {
	CurrentlyPlaying *Track
	Upcoming         []Track
}

// SessionState is the lifecycle phase of the playback session.
type SessionState int

const (
	// StateUninitialized means no connect attempt has been made (or the
	// token was invalidated)
	StateUninitialized SessionState = iota
	// StateConnecting means a connect attempt is in flight
	StateConnecting
	// StateInactive means the local player registered but is not the
	// active playback device
	StateInactive
	// StateActive means the local player holds a live playback session
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return "uninitialized"
	}
}

// PlaybackSnapshot is the single normalized playback state the rest of
// the application consumes. Copies handed to subscribers are detached;
// mutations happen only inside the session's update path.
type PlaybackSnapshot struct {
	State            SessionState
	IsActive         bool
	IsPlaying        bool
	CurrentTrack     *Track
	Position         time.Duration
	Volume           float64
	SelectedDeviceID string
	RepeatMode       RepeatMode
	Shuffle          bool
	Devices          []Device
	Queue            Queue
	UpdatedAt        time.Time
}

// Clone returns a deep copy safe to hand outside the session.
func (s PlaybackSnapshot) Clone() PlaybackSnapshot {
	out := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		out.CurrentTrack = &t
	}
	out.Devices = append([]Device(nil), s.Devices...)
	if s.Queue.CurrentlyPlaying != nil {
		t := *s.Queue.CurrentlyPlaying
		out.Queue.CurrentlyPlaying = &t
	}
	out.Queue.Upcoming = append([]Track(nil), s.Queue.Upcoming...)
	return out
}

// RemoteState is the normalized result of polling the remote player
// state endpoint. Active is false when the service reports no live
// session (HTTP 204).
type RemoteState struct {
	Active   bool
	Playing  bool
	Track    *Track
	Position time.Duration
	Shuffle  bool
	Repeat   RepeatMode
	DeviceID string
	Volume   float64
}

// PlayRequest describes what to start playing. Exactly one of the two
// shapes is set: a flat list of track URIs, or a context URI with an
// offset into it.
type PlayRequest struct {
	URIs       []string
	ContextURI string
	Offset     int
	HasOffset  bool
}

// PlayTracks builds a request for an explicit list of track URIs.
func PlayTracks(uris ...string) PlayRequest {
	return PlayRequest{URIs: uris}
}

// PlayContext builds a request for a playlist/album context starting at
// the given position.
func PlayContext(contextURI string, offset int) PlayRequest {
	return PlayRequest{ContextURI: contextURI, Offset: offset, HasOffset: true}
}

// ByContext reports whether the request targets a collection rather
// than explicit tracks.
func (r PlayRequest) ByContext() bool {
	return r.ContextURI != ""
}
