package core

import (
	"testing"
	"time"
)

func TestValidRepeatMode(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"off", true},
		{"context", true},
		{"track", true},
		{"", false},
		{"album", false},
		{"OFF", false},
	}

	for _, tt := range tests {
		if got := ValidRepeatMode(tt.input); got != tt.expected {
			t.Errorf("ValidRepeatMode(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state    SessionState
		expected string
	}{
		{StateUninitialized, "uninitialized"},
		{StateConnecting, "connecting"},
		{StateInactive, "inactive"},
		{StateActive, "active"},
		{SessionState(99), "uninitialized"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("SessionState(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestPlaybackSnapshotClone(t *testing.T) {
	snap := PlaybackSnapshot{
		State:        StateActive,
		IsPlaying:    true,
		CurrentTrack: &Track{ID: "t1", Name: "Original"},
		Devices:      []Device{{ID: "d1", Name: "Kitchen"}},
		Queue: Queue{
			CurrentlyPlaying: &Track{ID: "t1"},
			Upcoming:         []Track{{ID: "t2"}},
		},
		UpdatedAt: time.Now(),
	}

	clone := snap.Clone()

	clone.CurrentTrack.Name = "Mutated"
	if snap.CurrentTrack.Name != "Original" {
		t.Error("Clone() shares the current track pointer")
	}

	clone.Devices[0].Name = "Mutated"
	if snap.Devices[0].Name != "Kitchen" {
		t.Error("Clone() shares the devices slice")
	}

	clone.Queue.Upcoming[0].ID = "mutated"
	if snap.Queue.Upcoming[0].ID != "t2" {
		t.Error("Clone() shares the queue slice")
	}

	clone.Queue.CurrentlyPlaying.ID = "mutated"
	if snap.Queue.CurrentlyPlaying.ID != "t1" {
		t.Error("Clone() shares the queue's current track pointer")
	}
}

func TestPlayRequestConstructors(t *testing.T) {
	req := PlayTracks("spotify:track:a", "spotify:track:b")
	if req.ByContext() {
		t.Error("PlayTracks() should not build a context request")
	}
	if len(req.URIs) != 2 {
		t.Errorf("PlayTracks() kept %d URIs, want 2", len(req.URIs))
	}

	req = PlayContext("spotify:playlist:p", 3)
	if !req.ByContext() {
		t.Error("PlayContext() should build a context request")
	}
	if !req.HasOffset || req.Offset != 3 {
		t.Errorf("PlayContext() offset = (%v, %d), want (true, 3)", req.HasOffset, req.Offset)
	}

	if PlayTracks().ByContext() {
		t.Error("empty track request should not be a context request")
	}
}
