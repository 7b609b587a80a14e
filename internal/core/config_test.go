package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Spotify.MinRequestInterval != 100*time.Millisecond {
		t.Errorf("MinRequestInterval = %v, want 100ms", cfg.Spotify.MinRequestInterval)
	}
	if cfg.Spotify.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Spotify.MaxRetries)
	}
	if cfg.Spotify.RetryBaseDelay != time.Second {
		t.Errorf("RetryBaseDelay = %v, want 1s", cfg.Spotify.RetryBaseDelay)
	}
	if cfg.Spotify.RetryMaxDelay != 30*time.Second {
		t.Errorf("RetryMaxDelay = %v, want 30s", cfg.Spotify.RetryMaxDelay)
	}
	if cfg.Spotify.TokenPath == "" {
		t.Error("TokenPath should have a default")
	}

	if cfg.Player.DaemonURL == "" {
		t.Error("DaemonURL should have a default")
	}
	if cfg.Player.Volume < 0 || cfg.Player.Volume > 1 {
		t.Errorf("default Volume = %f, want value in [0,1]", cfg.Player.Volume)
	}

	if cfg.Session.ActivePollInterval >= cfg.Session.IdlePollInterval {
		t.Errorf("active poll interval (%v) should be shorter than idle (%v)",
			cfg.Session.ActivePollInterval, cfg.Session.IdlePollInterval)
	}
	if cfg.Session.CommandSuppression <= 0 {
		t.Error("CommandSuppression should be positive")
	}
	if cfg.Session.MaxLikedTracks <= 0 {
		t.Error("MaxLikedTracks should be positive")
	}

	if cfg.Server.Port == 0 {
		t.Error("Server port should have a default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log level = %q, want info", cfg.Log.Level)
	}
}
