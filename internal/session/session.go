// Package session owns the playback lifecycle: it mediates between the
// local player's pushed events and the polled remote player state,
// validates and issues playback commands, and publishes one normalized
// snapshot to the rest of the application.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"playdeck/internal/core"
	"playdeck/internal/player"
	"playdeck/internal/store"
	"playdeck/pkg/shuffle"
)

// field names a snapshot field for command suppression bookkeeping.
type field string

const (
	fieldPlaying  field = "playing"
	fieldTrack    field = "track"
	fieldPosition field = "position"
	fieldVolume   field = "volume"
	fieldShuffle  field = "shuffle"
	fieldRepeat   field = "repeat"
)

const (
	positionTickInterval = time.Second
	// seamlessThreshold is how close to a track's end the session
	// schedules an advance when nothing is queued
	seamlessThreshold = time.Second
	subscriberBuffer  = 8
)

var (
	errNoToken  = errors.New("access token is absent")
	errNoDevice = errors.New("no playback device selected")
)

// RemoteController is the slice of the Web API client the session
// drives.
type RemoteController interface {
	Authenticated() bool
	PlayerState(ctx context.Context) (*core.RemoteState, error)
	Play(ctx context.Context, deviceID string, req core.PlayRequest) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Seek(ctx context.Context, deviceID string, position time.Duration) error
	SetVolume(ctx context.Context, deviceID string, volume float64) error
	SetShuffle(ctx context.Context, deviceID string, shuffle bool) error
	SetRepeat(ctx context.Context, deviceID string, mode core.RepeatMode) error
	SaveTracks(ctx context.Context, ids ...string) error
	RemoveSavedTracks(ctx context.Context, ids ...string) error
	SavedTrackIDs(ctx context.Context, max int) ([]string, error)
	Queue(ctx context.Context) (core.Queue, error)
}

// DeviceRegistry is the device bookkeeping the session consults.
type DeviceRegistry interface {
	Refresh(ctx context.Context) error
	Selected() string
	Devices() []core.Device
	MarkReady(deviceID, name string)
}

// Metrics receives outcome counters from the session's hot paths.
// Optional; a nil sink disables recording.
type Metrics interface {
	RecordCommand(op, status string, duration time.Duration)
	RecordPoll(status string)
	RecordLike(action, status string)
}

// Session is the single authority for the playback snapshot. All
// snapshot mutations funnel through update, which serializes writers
// and notifies subscribers.
type Session struct {
	config   *core.SessionConfig
	logger   *zap.Logger
	remote   RemoteController
	player   player.Player
	registry DeviceRegistry
	liked    *store.LikedStore

	// invalidateLiked drops cached liked-songs reads after a like
	// change; optional.
	invalidateLiked func()
	metrics         Metrics

	connecting atomic.Bool
	connected  atomic.Bool

	mu         sync.Mutex
	snapshot   core.PlaybackSnapshot
	suppressed map[field]time.Time
	subs       map[int]chan core.PlaybackSnapshot
	nextSubID  int
	advanceFor string
	lastTrack  string

	// plan is the cursor over a locally shuffled track list, set by
	// PlayShuffled and cleared when another context takes over. It lets
	// skips and end-of-track advances walk the shuffled cycle instead of
	// deferring to the service.
	plan *shuffle.Session
}

func New(
	config *core.SessionConfig,
	remote RemoteController,
	pl player.Player,
	registry DeviceRegistry,
	liked *store.LikedStore,
	logger *zap.Logger,
) *Session {
	return &Session{
		config:     config,
		logger:     logger,
		remote:     remote,
		player:     pl,
		registry:   registry,
		liked:      liked,
		suppressed: make(map[field]time.Time),
		subs:       make(map[int]chan core.PlaybackSnapshot),
	}
}

// SetLikedInvalidator registers a hook run after every confirmed
// like/unlike, used to drop cached library reads.
func (s *Session) SetLikedInvalidator(fn func()) {
	s.invalidateLiked = fn
}

// SetMetrics registers the metrics sink. Must be called before Run.
func (s *Session) SetMetrics(m Metrics) {
	s.metrics = m
}

// Connect attaches to the local player. Idempotent, with a single
// in-flight attempt at a time. A dial failure leaves the snapshot
// inactive and is logged rather than returned, so the application
// stays usable for library browsing.
func (s *Session) Connect(ctx context.Context) {
	if s.connected.Load() {
		return
	}
	if !s.connecting.CompareAndSwap(false, true) {
		return
	}
	defer s.connecting.Store(false)

	s.update(func(snap *core.PlaybackSnapshot) {
		snap.State = core.StateConnecting
	})

	if err := s.player.Connect(ctx); err != nil {
		s.logger.Warn("Player connect failed, playback control unavailable", zap.Error(err))
		s.update(func(snap *core.PlaybackSnapshot) {
			snap.State = core.StateUninitialized
			snap.IsActive = false
			snap.CurrentTrack = nil
		})
		return
	}

	s.connected.Store(true)
	go s.pumpEvents()
	s.logger.Info("Playback session connected")
}

// Close tears the session down: player detached, subscribers closed.
func (s *Session) Close() {
	if s.connected.CompareAndSwap(true, false) {
		if err := s.player.Disconnect(); err != nil {
			s.logger.Debug("Player disconnect failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Run drives the periodic work: remote polling, device refresh and the
// local position clock. Returns when ctx is done.
func (s *Session) Run(ctx context.Context) error {
	poll := time.NewTimer(s.pollInterval())
	defer poll.Stop()
	tick := time.NewTicker(positionTickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			s.Refresh(ctx)
			s.refreshDevices(ctx)
			poll.Reset(s.pollInterval())
		case <-tick.C:
			s.tickPosition(ctx)
		}
	}
}

// pollInterval is tight while a session is active and relaxed while
// idle, to bound API call volume.
func (s *Session) pollInterval() time.Duration {
	s.mu.Lock()
	active := s.snapshot.IsActive && s.snapshot.IsPlaying
	s.mu.Unlock()
	if active {
		return s.config.ActivePollInterval
	}
	return s.config.IdlePollInterval
}

// Snapshot returns a detached copy of the current playback snapshot.
func (s *Session) Snapshot() core.PlaybackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Subscribe returns a channel fed a snapshot copy on every update and a
// cancel function. Slow subscribers miss intermediate updates rather
// than blocking the session.
func (s *Session) Subscribe() (<-chan core.PlaybackSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan core.PlaybackSnapshot, subscriberBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// update is the serialized snapshot mutation entry point. It applies
// fn, enforces cross-field invariants, stamps the update time and
// notifies subscribers.
func (s *Session) update(fn func(*core.PlaybackSnapshot)) {
	s.mu.Lock()

	fn(&s.snapshot)

	// An inactive session reports no track, whatever stale data a poll
	// carried.
	if !s.snapshot.IsActive {
		s.snapshot.CurrentTrack = nil
		s.snapshot.IsPlaying = false
	}
	if s.snapshot.CurrentTrack != nil {
		if d := s.snapshot.CurrentTrack.Duration; d > 0 && s.snapshot.Position > d {
			s.snapshot.Position = d
		}
	}
	if s.snapshot.Position < 0 {
		s.snapshot.Position = 0
	}

	// A track change cancels any scheduled end-of-track advance.
	current := ""
	if s.snapshot.CurrentTrack != nil {
		current = s.snapshot.CurrentTrack.URI
	}
	if current != s.lastTrack {
		s.advanceFor = ""
		s.lastTrack = current
		// Keep the shuffle cursor pointed at whatever is actually
		// playing, however the track change happened.
		if s.plan != nil && current != "" {
			s.plan.JumpTo(current)
		}
	}

	s.snapshot.UpdatedAt = time.Now()
	clone := s.snapshot.Clone()
	// Sends stay under mu: Subscribe's cancel and Close close these
	// channels under the same lock, so an unlocked send could hit a
	// just-closed channel. The sends never block, they drop instead.
	for _, ch := range s.subs {
		select {
		case ch <- clone:
		default:
		}
	}
	s.mu.Unlock()
}

// pumpEvents consumes the local player's event stream until it closes.
func (s *Session) pumpEvents() {
	for ev := range s.player.Events() {
		switch ev.Type {
		case player.EventReady:
			s.logger.Info("Local player ready",
				zap.String("deviceID", ev.DeviceID), zap.String("name", ev.DeviceName))
			s.registry.MarkReady(ev.DeviceID, ev.DeviceName)
			s.update(func(snap *core.PlaybackSnapshot) {
				if snap.State != core.StateActive {
					snap.State = core.StateInactive
				}
				if snap.SelectedDeviceID == "" {
					snap.SelectedDeviceID = ev.DeviceID
				}
			})
		case player.EventNotReady:
			s.logger.Warn("Local player went offline")
			s.update(func(snap *core.PlaybackSnapshot) {
				snap.State = core.StateInactive
				snap.IsActive = false
			})
		case player.EventStateChanged:
			if ev.State != nil {
				s.applyPlayerState(ev.State)
			}
		case player.EventError:
			s.logger.Error("Local player error", zap.String("message", ev.Message))
		}
	}

	s.connected.Store(false)
	s.update(func(snap *core.PlaybackSnapshot) {
		snap.State = core.StateInactive
		snap.IsActive = false
	})
}

// applyPlayerState applies an event pushed by the local player. This
// channel wins for latency-sensitive fields when this device is the
// active player.
func (s *Session) applyPlayerState(state *player.State) {
	s.update(func(snap *core.PlaybackSnapshot) {
		snap.State = core.StateActive
		snap.IsActive = true
		snap.IsPlaying = state.Playing
		if state.Track != nil {
			t := *state.Track
			snap.CurrentTrack = &t
			snap.Position = state.Position
		}
		snap.Volume = state.Volume
		snap.Shuffle = state.Shuffle
		if state.Repeat != "" {
			snap.RepeatMode = state.Repeat
		}
	})
}

// Refresh polls the remote state endpoint once and reconciles the
// result into the snapshot.
func (s *Session) Refresh(ctx context.Context) {
	if !s.remote.Authenticated() {
		return
	}

	remote, err := s.remote.PlayerState(ctx)
	if err != nil {
		s.recordPoll("error")
		s.handleRemoteError("refresh", err)
		return
	}
	s.recordPoll("success")
	s.applyPoll(remote)
}

func (s *Session) recordPoll(status string) {
	if s.metrics != nil {
		s.metrics.RecordPoll(status)
	}
}

// applyPoll reconciles a poll result into the snapshot. Poll data
// overwrites everything except fields under an active command
// suppression window, and except a position that would visibly rewind
// the UI while the same track keeps playing.
func (s *Session) applyPoll(remote *core.RemoteState) {
	now := time.Now()
	s.update(func(snap *core.PlaybackSnapshot) {
		live := func(f field) bool {
			return s.suppressed[f].After(now)
		}

		if !remote.Active {
			snap.IsActive = false
			if s.connected.Load() {
				snap.State = core.StateInactive
			} else {
				snap.State = core.StateUninitialized
			}
			return
		}

		snap.IsActive = true
		snap.State = core.StateActive
		snap.SelectedDeviceID = remote.DeviceID

		if !live(fieldPlaying) {
			snap.IsPlaying = remote.Playing
		}
		if !live(fieldVolume) {
			snap.Volume = remote.Volume
		}
		if !live(fieldShuffle) {
			snap.Shuffle = remote.Shuffle
		}
		if !live(fieldRepeat) && remote.Repeat != "" {
			snap.RepeatMode = remote.Repeat
		}

		if live(fieldTrack) {
			return
		}

		sameTrack := snap.CurrentTrack != nil && remote.Track != nil &&
			snap.CurrentTrack.URI == remote.Track.URI
		if remote.Track != nil {
			t := *remote.Track
			snap.CurrentTrack = &t
		} else {
			snap.CurrentTrack = nil
		}

		if live(fieldPosition) {
			return
		}
		if sameTrack && snap.IsPlaying {
			// Keep the locally ticked position when the poll is only a
			// stale view of normal progress on the same track.
			behind := snap.Position - remote.Position
			if behind > 0 && behind <= s.config.PositionTolerance {
				return
			}
		}
		snap.Position = remote.Position
	})
}

// refreshDevices refreshes the device registry and mirrors the result
// into the snapshot.
func (s *Session) refreshDevices(ctx context.Context) {
	if !s.remote.Authenticated() {
		return
	}
	if err := s.registry.Refresh(ctx); err != nil {
		s.handleRemoteError("refresh_devices", err)
		return
	}

	devices := s.registry.Devices()
	selected := s.registry.Selected()
	s.update(func(snap *core.PlaybackSnapshot) {
		snap.Devices = devices
		snap.SelectedDeviceID = selected
	})
}

// RefreshQueue fetches the play queue on demand.
func (s *Session) RefreshQueue(ctx context.Context) error {
	if !s.remote.Authenticated() {
		return core.NewCommandError("queue", core.ErrAuth, errNoToken)
	}

	queue, err := s.remote.Queue(ctx)
	if err != nil {
		s.handleRemoteError("queue", err)
		return err
	}

	s.update(func(snap *core.PlaybackSnapshot) {
		snap.Queue = queue
	})
	return nil
}

// tickPosition advances the local position clock while playing, and
// schedules a single end-of-track advance when repeat is off and
// nothing is queued.
func (s *Session) tickPosition(ctx context.Context) {
	var advance bool
	var planNext string
	s.update(func(snap *core.PlaybackSnapshot) {
		if !snap.IsPlaying || snap.CurrentTrack == nil {
			return
		}
		snap.Position += positionTickInterval

		duration := snap.CurrentTrack.Duration
		if duration <= 0 || snap.RepeatMode != core.RepeatOff {
			return
		}
		remaining := duration - snap.Position
		if remaining <= seamlessThreshold && len(snap.Queue.Upcoming) == 0 &&
			s.advanceFor != snap.CurrentTrack.URI {
			s.advanceFor = snap.CurrentTrack.URI
			advance = true
			if s.plan != nil {
				// Step the cursor past the finishing track; at the end
				// of the cycle this reshuffles and starts a fresh pass.
				s.plan.Next()
				planNext = s.plan.Order()[s.plan.Index()]
			}
		}
	})

	if !advance {
		return
	}
	if planNext != "" {
		s.logger.Debug("Track ending, advancing shuffled cycle", zap.String("uri", planNext))
		err := s.remote.Play(ctx, s.registry.Selected(), core.PlayTracks(planNext))
		if err != nil {
			s.logger.Warn("Shuffled cycle advance failed", zap.Error(err))
		}
		return
	}
	s.logger.Debug("Track ending with empty queue, advancing")
	if err := s.remote.Next(ctx, s.registry.Selected()); err != nil {
		s.logger.Warn("End-of-track advance failed", zap.Error(err))
	}
}

// --- commands ---

// PlayTrack starts playback of a single track URI on the selected
// device.
func (s *Session) PlayTrack(ctx context.Context, uri string) error {
	if !validTrackURI(uri) {
		return core.NewCommandError("play_track", core.ErrValidation,
			fmt.Errorf("invalid track uri %q", uri))
	}
	err := s.command(ctx, "play_track", []field{fieldPlaying, fieldTrack, fieldPosition},
		func(deviceID string) error {
			return s.remote.Play(ctx, deviceID, core.PlayTracks(uri))
		})
	if err == nil {
		s.setPlan(nil)
	}
	return err
}

// PlayShuffled starts playback of an explicit track list in a locally
// shuffled order. Used for collections the service cannot shuffle
// itself, like the saved-tracks set.
func (s *Session) PlayShuffled(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return core.NewCommandError("play_shuffled", core.ErrValidation,
			fmt.Errorf("no tracks to play"))
	}
	for _, uri := range uris {
		if !validTrackURI(uri) {
			return core.NewCommandError("play_shuffled", core.ErrValidation,
				fmt.Errorf("invalid track uri %q", uri))
		}
	}
	plan := shuffle.NewSession(uris)
	err := s.command(ctx, "play_shuffled", []field{fieldPlaying, fieldTrack, fieldPosition},
		func(deviceID string) error {
			return s.remote.Play(ctx, deviceID, core.PlayTracks(plan.Order()...))
		})
	if err == nil {
		s.setPlan(plan)
	}
	return err
}

// PlayCollection starts playback of a playlist or album context at the
// given offset.
func (s *Session) PlayCollection(ctx context.Context, contextURI string, startIndex int) error {
	if !validContextURI(contextURI) {
		return core.NewCommandError("play_collection", core.ErrValidation,
			fmt.Errorf("invalid context uri %q", contextURI))
	}
	if startIndex < 0 {
		return core.NewCommandError("play_collection", core.ErrValidation,
			fmt.Errorf("negative start index %d", startIndex))
	}
	err := s.command(ctx, "play_collection", []field{fieldPlaying, fieldTrack, fieldPosition},
		func(deviceID string) error {
			return s.remote.Play(ctx, deviceID, core.PlayContext(contextURI, startIndex))
		})
	if err == nil {
		s.setPlan(nil)
	}
	return err
}

// TogglePlayPause flips between playing and paused.
func (s *Session) TogglePlayPause(ctx context.Context) error {
	playing := s.Snapshot().IsPlaying
	return s.command(ctx, "toggle_play_pause", []field{fieldPlaying},
		func(deviceID string) error {
			if playing {
				return s.remote.Pause(ctx, deviceID)
			}
			return s.remote.Play(ctx, deviceID, core.PlayRequest{})
		})
}

// SkipNext advances playback. With a shuffled cycle active the session
// picks the next track from its own cursor, otherwise the service
// decides.
func (s *Session) SkipNext(ctx context.Context) error {
	if uri, ok := s.planNext(); ok {
		return s.command(ctx, "skip_next", []field{fieldTrack, fieldPosition},
			func(deviceID string) error {
				return s.remote.Play(ctx, deviceID, core.PlayTracks(uri))
			})
	}
	return s.command(ctx, "skip_next", []field{fieldTrack, fieldPosition},
		func(deviceID string) error {
			return s.remote.Next(ctx, deviceID)
		})
}

func (s *Session) SkipPrevious(ctx context.Context) error {
	if uri, ok := s.planPrevious(); ok {
		return s.command(ctx, "skip_previous", []field{fieldTrack, fieldPosition},
			func(deviceID string) error {
				return s.remote.Play(ctx, deviceID, core.PlayTracks(uri))
			})
	}
	return s.command(ctx, "skip_previous", []field{fieldTrack, fieldPosition},
		func(deviceID string) error {
			return s.remote.Previous(ctx, deviceID)
		})
}

func (s *Session) setPlan(plan *shuffle.Session) {
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
}

// planNext returns the track after the cursor position, stepping the
// cursor forward. A cycle boundary reshuffles and wraps.
func (s *Session) planNext() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil || s.plan.Len() == 0 {
		return "", false
	}
	s.plan.Next()
	return s.plan.Order()[s.plan.Index()], true
}

// planPrevious steps the cursor back one track, wrapping to the end of
// the cycle from the first position.
func (s *Session) planPrevious() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil || s.plan.Len() == 0 {
		return "", false
	}
	return s.plan.Previous()
}

func (s *Session) Seek(ctx context.Context, position time.Duration) error {
	if position < 0 {
		return core.NewCommandError("seek", core.ErrValidation,
			fmt.Errorf("negative position %v", position))
	}
	return s.command(ctx, "seek", []field{fieldPosition},
		func(deviceID string) error {
			return s.remote.Seek(ctx, deviceID, position)
		})
}

// SetVolume sets the playback volume; volume is in [0,1].
func (s *Session) SetVolume(ctx context.Context, volume float64) error {
	if volume < 0 || volume > 1 {
		return core.NewCommandError("set_volume", core.ErrValidation,
			fmt.Errorf("volume %v out of range [0,1]", volume))
	}
	return s.command(ctx, "set_volume", []field{fieldVolume},
		func(deviceID string) error {
			return s.remote.SetVolume(ctx, deviceID, volume)
		})
}

func (s *Session) SetShuffle(ctx context.Context, shuffle bool) error {
	return s.command(ctx, "set_shuffle", []field{fieldShuffle},
		func(deviceID string) error {
			return s.remote.SetShuffle(ctx, deviceID, shuffle)
		})
}

func (s *Session) SetRepeatMode(ctx context.Context, mode core.RepeatMode) error {
	if !core.ValidRepeatMode(string(mode)) {
		return core.NewCommandError("set_repeat", core.ErrValidation,
			fmt.Errorf("invalid repeat mode %q", mode))
	}
	return s.command(ctx, "set_repeat", []field{fieldRepeat},
		func(deviceID string) error {
			return s.remote.SetRepeat(ctx, deviceID, mode)
		})
}

// command validates the shared preconditions, marks the touched fields
// as command-owned for the suppression window, runs the remote call and
// triggers one state refresh on success.
func (s *Session) command(ctx context.Context, op string, fields []field, fn func(deviceID string) error) error {
	start := time.Now()
	err := s.runCommand(ctx, op, fields, fn)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordCommand(op, status, time.Since(start))
	}
	return err
}

func (s *Session) runCommand(ctx context.Context, op string, fields []field, fn func(deviceID string) error) error {
	if !s.remote.Authenticated() {
		return core.NewCommandError(op, core.ErrAuth, errNoToken)
	}
	deviceID := s.registry.Selected()
	if deviceID == "" {
		return core.NewCommandError(op, core.ErrValidation, errNoDevice)
	}

	s.markSuppressed(fields)

	if err := fn(deviceID); err != nil {
		s.clearSuppressed(fields)
		s.handleRemoteError(op, err)
		return err
	}

	s.Refresh(ctx)
	return nil
}

func (s *Session) markSuppressed(fields []field) {
	until := time.Now().Add(s.config.CommandSuppression)
	s.mu.Lock()
	for _, f := range fields {
		s.suppressed[f] = until
	}
	s.mu.Unlock()
}

func (s *Session) clearSuppressed(fields []field) {
	s.mu.Lock()
	for _, f := range fields {
		delete(s.suppressed, f)
	}
	s.mu.Unlock()
}

// --- likes ---

// LikeTrack marks a track liked optimistically; the local set is
// updated before the remote call resolves and rolled back on failure.
func (s *Session) LikeTrack(ctx context.Context, trackID string) error {
	if trackID == "" {
		return core.NewCommandError("like_track", core.ErrValidation,
			fmt.Errorf("track id is empty"))
	}

	s.liked.Add(trackID)

	if err := s.remote.SaveTracks(ctx, trackID); err != nil {
		s.liked.Remove(trackID)
		s.recordLike("like", "error")
		s.handleRemoteError("like_track", err)
		return err
	}

	s.recordLike("like", "success")
	if s.invalidateLiked != nil {
		s.invalidateLiked()
	}
	return nil
}

// UnlikeTrack removes a like optimistically, restoring it if the remote
// call fails.
func (s *Session) UnlikeTrack(ctx context.Context, trackID string) error {
	if trackID == "" {
		return core.NewCommandError("unlike_track", core.ErrValidation,
			fmt.Errorf("track id is empty"))
	}

	wasLiked := s.liked.Has(trackID)
	s.liked.Remove(trackID)

	if err := s.remote.RemoveSavedTracks(ctx, trackID); err != nil {
		if wasLiked {
			s.liked.Add(trackID)
		}
		s.recordLike("unlike", "error")
		s.handleRemoteError("unlike_track", err)
		return err
	}

	s.recordLike("unlike", "success")
	if s.invalidateLiked != nil {
		s.invalidateLiked()
	}
	return nil
}

func (s *Session) recordLike(action, status string) {
	if s.metrics != nil {
		s.metrics.RecordLike(action, status)
	}
}

// IsLiked reports whether the user has liked the track.
func (s *Session) IsLiked(trackID string) bool {
	return s.liked.Has(trackID)
}

// LikedTrackIDs returns the current liked set.
func (s *Session) LikedTrackIDs() []string {
	return s.liked.IDs()
}

// LoadLiked bootstraps the liked set from the remote library.
func (s *Session) LoadLiked(ctx context.Context) error {
	ids, err := s.remote.SavedTrackIDs(ctx, s.config.MaxLikedTracks)
	if err != nil {
		return fmt.Errorf("failed to load liked tracks: %w", err)
	}
	s.liked.Load(ids)
	s.logger.Info("Loaded liked tracks", zap.Int("count", len(ids)))
	return nil
}

// handleRemoteError downgrades the session on authentication failures;
// the token must be refreshed upstream.
func (s *Session) handleRemoteError(op string, err error) {
	if core.IsAuthError(err) {
		s.logger.Warn("Authentication failure, session reset", zap.String("op", op), zap.Error(err))
		s.update(func(snap *core.PlaybackSnapshot) {
			snap.State = core.StateUninitialized
			snap.IsActive = false
			snap.CurrentTrack = nil
		})
		return
	}
	s.logger.Debug("Remote call failed", zap.String("op", op), zap.Error(err))
}

func validTrackURI(uri string) bool {
	return strings.HasPrefix(uri, "spotify:track:") && len(uri) > len("spotify:track:")
}

func validContextURI(uri string) bool {
	for _, prefix := range []string{"spotify:playlist:", "spotify:album:", "spotify:artist:"} {
		if strings.HasPrefix(uri, prefix) && len(uri) > len(prefix) {
			return true
		}
	}
	return false
}
