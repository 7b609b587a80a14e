package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"playdeck/internal/core"
	"playdeck/internal/player"
	"playdeck/internal/store"
)

type fakeRemote struct {
	mu            sync.Mutex
	authenticated bool
	state         *core.RemoteState
	stateCalls    int

	playCalls   []core.PlayRequest
	playDevices []string
	pauseCalls  int
	nextCalls   int
	prevCalls   int
	seekCalls   []time.Duration
	volumeCalls []float64

	saveErr     error
	saveCalls   []string
	removeErr   error
	removeCalls []string

	commandErr error
}

func (f *fakeRemote) Authenticated() bool { return f.authenticated }

func (f *fakeRemote) PlayerState(_ context.Context) (*core.RemoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	if f.state == nil {
		return &core.RemoteState{}, nil
	}
	return f.state, nil
}

func (f *fakeRemote) Play(_ context.Context, deviceID string, req core.PlayRequest) error {
	if f.commandErr != nil {
		return f.commandErr
	}
	f.playCalls = append(f.playCalls, req)
	f.playDevices = append(f.playDevices, deviceID)
	return nil
}

func (f *fakeRemote) Pause(_ context.Context, _ string) error {
	f.pauseCalls++
	return f.commandErr
}

func (f *fakeRemote) Next(_ context.Context, _ string) error {
	f.nextCalls++
	return f.commandErr
}

func (f *fakeRemote) Previous(_ context.Context, _ string) error {
	f.prevCalls++
	return f.commandErr
}

func (f *fakeRemote) Seek(_ context.Context, _ string, position time.Duration) error {
	f.seekCalls = append(f.seekCalls, position)
	return f.commandErr
}

func (f *fakeRemote) SetVolume(_ context.Context, _ string, volume float64) error {
	f.volumeCalls = append(f.volumeCalls, volume)
	return f.commandErr
}

func (f *fakeRemote) SetShuffle(_ context.Context, _ string, _ bool) error { return f.commandErr }

func (f *fakeRemote) SetRepeat(_ context.Context, _ string, _ core.RepeatMode) error {
	return f.commandErr
}

func (f *fakeRemote) SaveTracks(_ context.Context, ids ...string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCalls = append(f.saveCalls, ids...)
	return nil
}

func (f *fakeRemote) RemoveSavedTracks(_ context.Context, ids ...string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removeCalls = append(f.removeCalls, ids...)
	return nil
}

func (f *fakeRemote) SavedTrackIDs(_ context.Context, _ int) ([]string, error) {
	return []string{"saved1", "saved2"}, nil
}

func (f *fakeRemote) Queue(_ context.Context) (core.Queue, error) {
	return core.Queue{}, nil
}

func (f *fakeRemote) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateCalls + len(f.playCalls) + f.pauseCalls + f.nextCalls + f.prevCalls +
		len(f.seekCalls) + len(f.volumeCalls) + len(f.saveCalls) + len(f.removeCalls)
}

type fakeRegistry struct {
	mu       sync.Mutex
	selected string
	devices  []core.Device
}

func (f *fakeRegistry) Refresh(_ context.Context) error { return nil }

func (f *fakeRegistry) Selected() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

func (f *fakeRegistry) Devices() []core.Device { return f.devices }

func (f *fakeRegistry) MarkReady(deviceID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == "" {
		f.selected = deviceID
	}
}

type fakePlayer struct {
	events     chan player.Event
	connectErr error
	connected  bool
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan player.Event, 8)}
}

func (f *fakePlayer) Connect(_ context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakePlayer) Events() <-chan player.Event                         { return f.events }
func (f *fakePlayer) TogglePlay(_ context.Context) error                  { return nil }
func (f *fakePlayer) Pause(_ context.Context) error                       { return nil }
func (f *fakePlayer) Resume(_ context.Context) error                      { return nil }
func (f *fakePlayer) Seek(_ context.Context, _ time.Duration) error       { return nil }
func (f *fakePlayer) SetVolume(_ context.Context, _ float64) error        { return nil }
func (f *fakePlayer) Next(_ context.Context) error                        { return nil }
func (f *fakePlayer) Previous(_ context.Context) error                    { return nil }
func (f *fakePlayer) Disconnect() error                                   { f.connected = false; return nil }

func testSession(remote *fakeRemote, registry *fakeRegistry) *Session {
	config := core.DefaultConfig().Session
	return New(&config, remote, newFakePlayer(), registry, store.NewLikedStore(200, 0.001), zap.NewNop())
}

func TestPlayCollectionIssuesOnePlayAndOneRefresh(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	err := s.PlayCollection(context.Background(), "spotify:playlist:123", 5)
	if err != nil {
		t.Fatalf("PlayCollection failed: %v", err)
	}

	if len(remote.playCalls) != 1 {
		t.Fatalf("play calls = %d, want 1", len(remote.playCalls))
	}
	req := remote.playCalls[0]
	if req.ContextURI != "spotify:playlist:123" {
		t.Errorf("context uri = %q", req.ContextURI)
	}
	if !req.HasOffset || req.Offset != 5 {
		t.Errorf("offset = %d (has=%v), want 5", req.Offset, req.HasOffset)
	}
	if remote.playDevices[0] != "dev1" {
		t.Errorf("play scoped to device %q, want dev1", remote.playDevices[0])
	}
	if remote.stateCalls != 1 {
		t.Errorf("state refreshes = %d, want exactly 1", remote.stateCalls)
	}
}

func TestSetVolumeWithoutDeviceIsValidationErrorWithZeroCalls(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{})

	err := s.SetVolume(context.Background(), 0.8)
	if !core.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := remote.networkCalls(); n != 0 {
		t.Errorf("network calls = %d, want 0", n)
	}
}

func TestCommandsWithoutTokenFail(t *testing.T) {
	remote := &fakeRemote{authenticated: false}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	err := s.SkipNext(context.Background())
	if !core.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if n := remote.networkCalls(); n != 0 {
		t.Errorf("network calls = %d, want 0", n)
	}
}

func TestPlayTrackRejectsBadURI(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	for _, uri := range []string{"", "track:123", "http://open.spotify.com/track/1", "spotify:track:"} {
		if err := s.PlayTrack(context.Background(), uri); !core.IsValidationError(err) {
			t.Errorf("uri %q: expected validation error, got %v", uri, err)
		}
	}
	if n := remote.networkCalls(); n != 0 {
		t.Errorf("network calls = %d, want 0", n)
	}
}

func TestOptimisticLikeRollsBackOnFailure(t *testing.T) {
	remote := &fakeRemote{authenticated: true, saveErr: core.NewCommandError("save_tracks", core.ErrNetwork, context.DeadlineExceeded)}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	err := s.LikeTrack(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected error from failed remote like")
	}
	if s.IsLiked("t1") {
		t.Error("failed like was not rolled back")
	}

	remote.saveErr = nil
	if err := s.LikeTrack(context.Background(), "t1"); err != nil {
		t.Fatalf("LikeTrack failed: %v", err)
	}
	if !s.IsLiked("t1") {
		t.Error("successful like missing from liked set")
	}
}

func TestOptimisticUnlikeRestoresOnFailure(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	if err := s.LikeTrack(context.Background(), "t1"); err != nil {
		t.Fatalf("LikeTrack failed: %v", err)
	}

	remote.removeErr = core.NewCommandError("remove_saved_tracks", core.ErrNetwork, context.DeadlineExceeded)
	if err := s.UnlikeTrack(context.Background(), "t1"); err == nil {
		t.Fatal("expected error from failed remote unlike")
	}
	if !s.IsLiked("t1") {
		t.Error("failed unlike was not restored")
	}
}

func TestInactivePollClearsTrack(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	// Establish an active snapshot first.
	remote.state = &core.RemoteState{
		Active:  true,
		Playing: true,
		Track:   &core.Track{URI: "spotify:track:a", Duration: 3 * time.Minute},
	}
	s.Refresh(context.Background())
	if s.Snapshot().CurrentTrack == nil {
		t.Fatal("expected active snapshot with a track")
	}

	// Remote session went away; stale track data must not survive.
	remote.state = &core.RemoteState{Active: false, Track: &core.Track{URI: "spotify:track:a"}}
	s.Refresh(context.Background())

	snap := s.Snapshot()
	if snap.IsActive {
		t.Error("snapshot still active")
	}
	if snap.CurrentTrack != nil {
		t.Error("currentTrack should be nil when isActive is false")
	}
}

func TestPollDoesNotRewindPositionOnSameTrack(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	track := &core.Track{URI: "spotify:track:a", Duration: 3 * time.Minute}
	remote.state = &core.RemoteState{Active: true, Playing: true, Track: track, Position: 30 * time.Second}
	s.Refresh(context.Background())

	// A stale poll slightly behind the local clock must not rewind.
	remote.state = &core.RemoteState{Active: true, Playing: true, Track: track, Position: 28 * time.Second}
	s.Refresh(context.Background())
	if got := s.Snapshot().Position; got != 30*time.Second {
		t.Errorf("position = %v, want 30s (no rewind)", got)
	}

	// A real seek far behind is trusted.
	remote.state = &core.RemoteState{Active: true, Playing: true, Track: track, Position: 5 * time.Second}
	s.Refresh(context.Background())
	if got := s.Snapshot().Position; got != 5*time.Second {
		t.Errorf("position = %v, want 5s (seek applied)", got)
	}
}

func TestPollSuppressedDuringCommandWindow(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	// The refresh triggered by the command reports the stale pre-command
	// state; the suppression window keeps the optimistic value.
	remote.state = &core.RemoteState{Active: true, Playing: true, Volume: 0.2}
	if err := s.SetVolume(context.Background(), 0.8); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if got := s.Snapshot().Volume; got == 0.2 {
		t.Error("stale poll overwrote volume during suppression window")
	}
}

func TestAuthFailureResetsSession(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	remote.state = &core.RemoteState{Active: true, Playing: true, Track: &core.Track{URI: "spotify:track:a"}}
	s.Refresh(context.Background())

	remote.commandErr = core.NewCommandError("next", core.ErrAuth, errNoToken)
	if err := s.SkipNext(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if snap.State != core.StateUninitialized {
		t.Errorf("state = %v, want uninitialized after auth failure", snap.State)
	}
	if snap.IsActive || snap.CurrentTrack != nil {
		t.Error("snapshot not torn down after auth failure")
	}
}

func TestConnectFailureLeavesSnapshotInactive(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	registry := &fakeRegistry{}
	config := core.DefaultConfig().Session
	pl := newFakePlayer()
	pl.connectErr = context.DeadlineExceeded
	s := New(&config, remote, pl, registry, store.NewLikedStore(200, 0.001), zap.NewNop())

	s.Connect(context.Background())

	snap := s.Snapshot()
	if snap.IsActive {
		t.Error("snapshot active after failed connect")
	}
	if snap.State != core.StateUninitialized {
		t.Errorf("state = %v, want uninitialized", snap.State)
	}
}

func TestPlayerReadyMarksRegistryAndSnapshot(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	registry := &fakeRegistry{}
	config := core.DefaultConfig().Session
	pl := newFakePlayer()
	s := New(&config, remote, pl, registry, store.NewLikedStore(200, 0.001), zap.NewNop())

	s.Connect(context.Background())
	pl.events <- player.Event{Type: player.EventReady, DeviceID: "local1"}
	close(pl.events)

	deadline := time.After(time.Second)
	for registry.Selected() != "local1" {
		select {
		case <-deadline:
			t.Fatal("ready event never reached the registry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	snap := s.Snapshot()
	if snap.SelectedDeviceID != "local1" {
		t.Errorf("selected device = %q, want local1", snap.SelectedDeviceID)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	ch, cancel := s.Subscribe()
	defer cancel()

	remote.state = &core.RemoteState{Active: true, Playing: true}
	s.Refresh(context.Background())

	select {
	case snap := <-ch:
		if !snap.IsPlaying {
			t.Error("subscriber got stale snapshot")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}
}

func TestLoadLikedBootstrapsSet(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	if err := s.LoadLiked(context.Background()); err != nil {
		t.Fatalf("LoadLiked failed: %v", err)
	}
	if !s.IsLiked("saved1") || !s.IsLiked("saved2") {
		t.Error("bootstrapped liked tracks missing")
	}
}

func TestPlayShuffledSendsPermutationOfInput(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	uris := []string{
		"spotify:track:a", "spotify:track:b", "spotify:track:c",
		"spotify:track:d", "spotify:track:e",
	}
	if err := s.PlayShuffled(context.Background(), uris); err != nil {
		t.Fatalf("PlayShuffled failed: %v", err)
	}

	if len(remote.playCalls) != 1 {
		t.Fatalf("play calls = %d, want 1", len(remote.playCalls))
	}
	sent := remote.playCalls[0].URIs
	if len(sent) != len(uris) {
		t.Fatalf("sent %d uris, want %d", len(sent), len(uris))
	}
	seen := make(map[string]bool, len(sent))
	for _, uri := range sent {
		seen[uri] = true
	}
	for _, uri := range uris {
		if !seen[uri] {
			t.Errorf("uri %q missing from shuffled order", uri)
		}
	}
}

func TestSubscribeCancelUnderConcurrentUpdates(t *testing.T) {
	remote := &fakeRemote{
		authenticated: true,
		state:         &core.RemoteState{Active: true, Playing: true},
	}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	// A subscriber cancelling while other goroutines publish updates
	// must never see a send hit its closed channel.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					s.Refresh(context.Background())
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		_, cancel := s.Subscribe()
		cancel()
	}

	close(stop)
	wg.Wait()
	s.Close()
}

func shuffledTestSession(remote *fakeRemote, registry *fakeRegistry) *Session {
	config := core.DefaultConfig().Session
	config.CommandSuppression = 0
	return New(&config, remote, newFakePlayer(), registry, store.NewLikedStore(200, 0.001), zap.NewNop())
}

func TestEndOfTrackAdvanceFollowsShuffledCycle(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := shuffledTestSession(remote, &fakeRegistry{selected: "dev1"})

	uris := []string{"spotify:track:a", "spotify:track:b", "spotify:track:c"}
	if err := s.PlayShuffled(context.Background(), uris); err != nil {
		t.Fatalf("PlayShuffled failed: %v", err)
	}
	order := remote.playCalls[0].URIs

	// First cycle track is about to end with nothing queued.
	s.applyPoll(&core.RemoteState{
		Active:   true,
		Playing:  true,
		Track:    &core.Track{URI: order[0], Duration: 10 * time.Second},
		Position: 9500 * time.Millisecond,
		Repeat:   core.RepeatOff,
	})
	s.tickPosition(context.Background())

	if len(remote.playCalls) != 2 {
		t.Fatalf("play calls = %d, want 2 (initial list + cycle advance)", len(remote.playCalls))
	}
	got := remote.playCalls[1].URIs
	if len(got) != 1 || got[0] != order[1] {
		t.Errorf("advance played %v, want next cycle track %q", got, order[1])
	}
	if remote.nextCalls != 0 {
		t.Error("advance deferred to the service, want cycle-driven play")
	}
}

func TestSkipsFollowShuffledCycle(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := shuffledTestSession(remote, &fakeRegistry{selected: "dev1"})

	uris := []string{"spotify:track:a", "spotify:track:b", "spotify:track:c"}
	if err := s.PlayShuffled(context.Background(), uris); err != nil {
		t.Fatalf("PlayShuffled failed: %v", err)
	}
	order := remote.playCalls[0].URIs

	// The cursor tracks whatever is actually playing.
	s.applyPoll(&core.RemoteState{
		Active:  true,
		Playing: true,
		Track:   &core.Track{URI: order[1], Duration: 3 * time.Minute},
		Repeat:  core.RepeatOff,
	})

	if err := s.SkipNext(context.Background()); err != nil {
		t.Fatalf("SkipNext failed: %v", err)
	}
	if len(remote.playCalls) != 2 {
		t.Fatalf("play calls = %d, want 2", len(remote.playCalls))
	}
	if got := remote.playCalls[1].URIs; len(got) != 1 || got[0] != order[2] {
		t.Errorf("skip next played %v, want %q", got, order[2])
	}

	if err := s.SkipPrevious(context.Background()); err != nil {
		t.Fatalf("SkipPrevious failed: %v", err)
	}
	if got := remote.playCalls[2].URIs; len(got) != 1 || got[0] != order[1] {
		t.Errorf("skip previous played %v, want %q", got, order[1])
	}
	if remote.nextCalls != 0 || remote.prevCalls != 0 {
		t.Error("skips deferred to the service while a shuffled cycle is active")
	}
}

func TestPlayTrackClearsShuffledCycle(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := shuffledTestSession(remote, &fakeRegistry{selected: "dev1"})

	uris := []string{"spotify:track:a", "spotify:track:b"}
	if err := s.PlayShuffled(context.Background(), uris); err != nil {
		t.Fatalf("PlayShuffled failed: %v", err)
	}
	if err := s.PlayTrack(context.Background(), "spotify:track:z"); err != nil {
		t.Fatalf("PlayTrack failed: %v", err)
	}

	if err := s.SkipNext(context.Background()); err != nil {
		t.Fatalf("SkipNext failed: %v", err)
	}
	if remote.nextCalls != 1 {
		t.Errorf("next calls = %d, want 1 (service-driven after cycle cleared)", remote.nextCalls)
	}
}

type fakeMetrics struct {
	mu       sync.Mutex
	commands []string
	polls    []string
	likes    []string
}

func (m *fakeMetrics) RecordCommand(op, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, op+"/"+status)
}

func (m *fakeMetrics) RecordPoll(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = append(m.polls, status)
}

func (m *fakeMetrics) RecordLike(action, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes = append(m.likes, action+"/"+status)
}

func (m *fakeMetrics) has(list []string, entry string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range list {
		if e == entry {
			return true
		}
	}
	return false
}

func TestMetricsRecordCommandPollAndLikeOutcomes(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})
	m := &fakeMetrics{}
	s.SetMetrics(m)

	if err := s.SetVolume(context.Background(), 0.5); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if !m.has(m.commands, "set_volume/success") {
		t.Errorf("commands = %v, missing set_volume/success", m.commands)
	}
	if !m.has(m.polls, "success") {
		t.Errorf("polls = %v, missing the post-command refresh", m.polls)
	}

	remote.commandErr = core.NewCommandError("next", core.ErrNetwork, context.DeadlineExceeded)
	if err := s.SkipNext(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !m.has(m.commands, "skip_next/error") {
		t.Errorf("commands = %v, missing skip_next/error", m.commands)
	}

	if err := s.LikeTrack(context.Background(), "t1"); err != nil {
		t.Fatalf("LikeTrack failed: %v", err)
	}
	if !m.has(m.likes, "like/success") {
		t.Errorf("likes = %v, missing like/success", m.likes)
	}

	remote.saveErr = core.NewCommandError("save_tracks", core.ErrNetwork, context.DeadlineExceeded)
	if err := s.LikeTrack(context.Background(), "t2"); err == nil {
		t.Fatal("expected error")
	}
	if !m.has(m.likes, "like/error") {
		t.Errorf("likes = %v, missing like/error", m.likes)
	}
}

func TestPlayShuffledRejectsBadInput(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	s := testSession(remote, &fakeRegistry{selected: "dev1"})

	if err := s.PlayShuffled(context.Background(), nil); !core.IsValidationError(err) {
		t.Errorf("empty list: expected validation error, got %v", err)
	}
	if err := s.PlayShuffled(context.Background(), []string{"spotify:album:x"}); !core.IsValidationError(err) {
		t.Errorf("non-track uri: expected validation error, got %v", err)
	}
	if remote.networkCalls() != 0 {
		t.Errorf("validation failures issued %d network calls", remote.networkCalls())
	}
}
