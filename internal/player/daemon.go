package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"playdeck/internal/core"
)

const (
	commandTimeout = 5 * time.Second
	eventBuffer    = 32
	// VolumeSteps is the daemon's default volume scale
	VolumeSteps = 100
)

// Daemon drives a go-librespot compatible player daemon. Commands go
// over its REST API; state changes arrive on its WebSocket event feed.
type Daemon struct {
	baseURL       string
	logger        *zap.Logger
	http          *http.Client
	configName    string
	initialVolume float64

	mu        sync.Mutex
	conn      *websocket.Conn
	events    chan Event
	connected bool
	closed    bool
	// loopDone closes when the read loop owning the current events
	// channel has exited. Connect waits on it before installing a new
	// channel, so at most one loop touches d.events at a time.
	loopDone   chan struct{}
	state      State
	deviceID   string
	deviceName string
}

func NewDaemon(config *core.PlayerConfig, logger *zap.Logger) *Daemon {
	return &Daemon{
		baseURL:       strings.TrimRight(config.DaemonURL, "/"),
		logger:        logger,
		http:          &http.Client{Timeout: commandTimeout},
		configName:    config.DeviceName,
		initialVolume: config.Volume,
		events:        make(chan Event, eventBuffer),
	}
}

func (d *Daemon) Events() <-chan Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

// Connect dials the daemon's event stream and emits an initial ready
// event once the daemon reports a registered device.
func (d *Daemon) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.connected {
		d.mu.Unlock()
		return nil
	}
	prevLoop := d.loopDone
	d.mu.Unlock()

	// Let the previous read loop finish tearing down its channel before
	// a new one is installed.
	if prevLoop != nil {
		select {
		case <-prevLoop:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	wsURL := "ws" + strings.TrimPrefix(d.baseURL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to player events: %w", err)
	}

	status, err := d.fetchStatus(ctx)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to fetch player status: %w", err)
	}

	name := status.DeviceName
	if name == "" {
		name = d.configName
	}

	d.mu.Lock()
	if d.closed {
		// The previous event stream ended; subscribers must re-fetch
		// the channel after a reconnect.
		d.events = make(chan Event, eventBuffer)
		d.closed = false
	}
	done := make(chan struct{})
	d.loopDone = done
	d.conn = conn
	d.connected = true
	d.deviceID = status.DeviceID
	d.deviceName = name
	d.state = statusToState(status)
	events := d.events
	d.mu.Unlock()

	go d.readLoop(conn, events, done)

	if d.initialVolume > 0 {
		if err := d.SetVolume(ctx, d.initialVolume); err != nil {
			d.logger.Debug("Initial volume not applied", zap.Error(err))
		}
	}

	if status.DeviceID != "" {
		d.emit(Event{Type: EventReady, DeviceID: status.DeviceID, DeviceName: name})
	}
	d.logger.Info("Connected to player daemon",
		zap.String("deviceID", status.DeviceID),
		zap.String("deviceName", name))
	return nil
}

func (d *Daemon) Disconnect() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.connected = false
	d.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (d *Daemon) TogglePlay(ctx context.Context) error {
	return d.post(ctx, "/player/playpause", nil)
}

func (d *Daemon) Pause(ctx context.Context) error {
	return d.post(ctx, "/player/pause", nil)
}

func (d *Daemon) Resume(ctx context.Context) error {
	return d.post(ctx, "/player/resume", nil)
}

func (d *Daemon) Seek(ctx context.Context, position time.Duration) error {
	return d.post(ctx, "/player/seek", map[string]any{
		"position": position.Milliseconds(),
		"relative": false,
	})
}

// SetVolume sets the absolute volume; volume is in [0,1].
func (d *Daemon) SetVolume(ctx context.Context, volume float64) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	return d.post(ctx, "/player/volume", map[string]any{
		"volume":   int(volume * VolumeSteps),
		"relative": false,
	})
}

func (d *Daemon) Next(ctx context.Context) error {
	return d.post(ctx, "/player/next", map[string]any{})
}

func (d *Daemon) Previous(ctx context.Context) error {
	return d.post(ctx, "/player/prev", nil)
}

// daemonStatus is the GET /status response.
type daemonStatus struct {
	DeviceID       string       `json:"device_id"`
	DeviceName     string       `json:"device_name"`
	Stopped        bool         `json:"stopped"`
	Paused         bool         `json:"paused"`
	Buffering      bool         `json:"buffering"`
	Volume         int          `json:"volume"`
	VolumeSteps    int          `json:"volume_steps"`
	RepeatContext  bool         `json:"repeat_context"`
	RepeatTrack    bool         `json:"repeat_track"`
	ShuffleContext bool         `json:"shuffle_context"`
	Track          *daemonTrack `json:"track"`
}

type daemonTrack struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	ArtistNames []string `json:"artist_names"`
	AlbumName   string   `json:"album_name"`
	AlbumCover  string   `json:"album_cover_url"`
	Duration    int      `json:"duration"` // milliseconds
	Position    int      `json:"position"` // milliseconds
}

// daemonEvent is a WebSocket event on /events.
type daemonEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (d *Daemon) fetchStatus(ctx context.Context) (*daemonStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/status", http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &status, nil
}

func (d *Daemon) post(ctx context.Context, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, b)
	}
	return nil
}

// readLoop translates the daemon's event feed into normalized player
// events. Each loop owns exactly the channel it was started with and
// closes it exactly once, after flagging it closed under the mutex so
// emit cannot send on it anymore.
func (d *Daemon) readLoop(conn *websocket.Conn, events chan Event, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		d.connected = false
		if d.events == events {
			d.closed = true
		}
		d.mu.Unlock()
		close(events)
		close(done)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			d.logger.Debug("Player event stream closed", zap.Error(err))
			d.emit(Event{Type: EventNotReady})
			return
		}

		var ev daemonEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			d.logger.Warn("Dropping malformed player event", zap.Error(err))
			continue
		}
		d.handleEvent(ev)
	}
}

func (d *Daemon) handleEvent(ev daemonEvent) {
	d.mu.Lock()
	deviceID := d.deviceID
	deviceName := d.deviceName
	emit := true

	switch ev.Type {
	case "active":
		d.mu.Unlock()
		d.emit(Event{Type: EventReady, DeviceID: deviceID, DeviceName: deviceName})
		return
	case "inactive":
		d.mu.Unlock()
		d.emit(Event{Type: EventNotReady, DeviceID: deviceID, DeviceName: deviceName})
		return
	case "metadata", "will_play":
		var data daemonTrack
		if json.Unmarshal(ev.Data, &data) == nil {
			d.state.Track = convertDaemonTrack(&data)
			d.state.Position = time.Duration(data.Position) * time.Millisecond
		}
	case "playing":
		d.state.Playing = true
	case "paused":
		d.state.Playing = false
	case "stopped":
		d.state.Playing = false
		d.state.Track = nil
		d.state.Position = 0
	case "seek":
		var data struct {
			Position int `json:"position"`
		}
		if json.Unmarshal(ev.Data, &data) == nil {
			d.state.Position = time.Duration(data.Position) * time.Millisecond
		}
	case "volume":
		var data struct {
			Value int `json:"value"`
			Max   int `json:"max"`
		}
		if json.Unmarshal(ev.Data, &data) == nil && data.Max > 0 {
			d.state.Volume = float64(data.Value) / float64(data.Max)
		}
	case "shuffle_context":
		var data struct {
			Value bool `json:"value"`
		}
		if json.Unmarshal(ev.Data, &data) == nil {
			d.state.Shuffle = data.Value
		}
	case "repeat_context":
		var data struct {
			Value bool `json:"value"`
		}
		if json.Unmarshal(ev.Data, &data) == nil {
			if data.Value {
				d.state.Repeat = core.RepeatContext
			} else if d.state.Repeat == core.RepeatContext {
				d.state.Repeat = core.RepeatOff
			}
		}
	case "repeat_track":
		var data struct {
			Value bool `json:"value"`
		}
		if json.Unmarshal(ev.Data, &data) == nil {
			if data.Value {
				d.state.Repeat = core.RepeatTrack
			} else if d.state.Repeat == core.RepeatTrack {
				d.state.Repeat = core.RepeatOff
			}
		}
	default:
		emit = false
	}

	var state *State
	if emit {
		s := d.state
		if d.state.Track != nil {
			t := *d.state.Track
			s.Track = &t
		}
		state = &s
	}
	d.mu.Unlock()

	if emit {
		d.emit(Event{Type: EventStateChanged, DeviceID: deviceID, State: state})
	}
}

// emit drops events when the consumer lags instead of blocking the
// read loop; the session re-syncs via polling anyway. Sending under the
// mutex keeps the send ordered against the read loop's close.
func (d *Daemon) emit(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("Dropping player event, subscriber too slow",
			zap.String("type", ev.Type.String()))
	}
}

func convertDaemonTrack(t *daemonTrack) *core.Track {
	track := &core.Track{
		URI:      t.URI,
		Name:     t.Name,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		Album: core.Album{
			Name: t.AlbumName,
		},
	}
	if t.AlbumCover != "" {
		track.Album.Images = []core.Image{{URL: t.AlbumCover}}
	}
	for _, name := range t.ArtistNames {
		track.Artists = append(track.Artists, core.Artist{Name: name})
	}
	if id, ok := trackIDFromURI(t.URI); ok {
		track.ID = id
	}
	return track
}

func trackIDFromURI(uri string) (string, bool) {
	const prefix = "spotify:track:"
	if strings.HasPrefix(uri, prefix) && len(uri) > len(prefix) {
		return uri[len(prefix):], true
	}
	return "", false
}

func statusToState(status *daemonStatus) State {
	state := State{
		Playing: !status.Paused && !status.Stopped,
		Shuffle: status.ShuffleContext,
		Repeat:  core.RepeatOff,
	}
	if status.RepeatTrack {
		state.Repeat = core.RepeatTrack
	} else if status.RepeatContext {
		state.Repeat = core.RepeatContext
	}
	steps := status.VolumeSteps
	if steps == 0 {
		steps = VolumeSteps
	}
	state.Volume = float64(status.Volume) / float64(steps)
	if status.Track != nil {
		state.Track = convertDaemonTrack(status.Track)
		state.Position = time.Duration(status.Track.Position) * time.Millisecond
	}
	return state
}
