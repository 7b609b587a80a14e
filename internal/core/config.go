package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Player  PlayerConfig
	Session SessionConfig
	Server  ServerConfig
	Log     LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string

	// MinRequestInterval is the flat spacing enforced between Web API
	// requests.
	MinRequestInterval time.Duration
	RequestTimeout     time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
}

type PlayerConfig struct {
	// DaemonURL is the base URL of the local player daemon.
	DaemonURL  string
	DeviceName string
	// Volume is the initial playback volume in [0,1].
	Volume float64
}

type SessionConfig struct {
	ActivePollInterval time.Duration
	IdlePollInterval   time.Duration
	// CommandSuppression is how long poll results defer to a just-issued
	// command before overwriting the snapshot again.
	CommandSuppression time.Duration
	// PositionTolerance is the slack allowed between polled and local
	// positions before a poll is treated as an actual seek.
	PositionTolerance time.Duration
	CacheTTL          time.Duration
	MaxLikedTracks    int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL:        "http://localhost:8080/callback",
			TokenPath:          "./spotify_token.json",
			MinRequestInterval: 100 * time.Millisecond,
			RequestTimeout:     10 * time.Second,
			MaxRetries:         3,
			RetryBaseDelay:     time.Second,
			RetryMaxDelay:      30 * time.Second,
		},
		Player: PlayerConfig{
			DaemonURL:  "http://localhost:3678",
			DeviceName: "Playdeck",
			Volume:     0.5,
		},
		Session: SessionConfig{
			ActivePollInterval: 2 * time.Second,
			IdlePollInterval:   8 * time.Second,
			CommandSuppression: 2500 * time.Millisecond,
			PositionTolerance:  3 * time.Second,
			CacheTTL:           5 * time.Minute,
			MaxLikedTracks:     200,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
