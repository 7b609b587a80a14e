// Package http exposes the service's HTTP surface: health and
// readiness probes, Prometheus metrics, a JSON view of the playback
// snapshot, and the playback command and library browsing API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"playdeck/internal/core"
	"playdeck/internal/library"
)

// SnapshotProvider is the read side of the playback session.
type SnapshotProvider interface {
	Snapshot() core.PlaybackSnapshot
	LikedTrackIDs() []string
}

// Controller is the command side of the playback session.
type Controller interface {
	PlayTrack(ctx context.Context, uri string) error
	PlayCollection(ctx context.Context, contextURI string, startIndex int) error
	PlayShuffled(ctx context.Context, uris []string) error
	TogglePlayPause(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, volume float64) error
	SetShuffle(ctx context.Context, shuffle bool) error
	SetRepeatMode(ctx context.Context, mode core.RepeatMode) error
	LikeTrack(ctx context.Context, trackID string) error
	UnlikeTrack(ctx context.Context, trackID string) error
	RefreshQueue(ctx context.Context) error
}

// LibraryReader is the catalog the browsing endpoints serve from.
type LibraryReader interface {
	Playlists(ctx context.Context) ([]core.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error)
	SavedAlbums(ctx context.Context) ([]core.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]core.Track, error)
	Search(ctx context.Context, query string) ([]core.Track, error)
	NewReleases(ctx context.Context) ([]core.Album, error)
	RecentlyPlayed(ctx context.Context) ([]core.Track, error)
}

// DeviceSelector transfers playback between devices.
type DeviceSelector interface {
	Select(ctx context.Context, deviceID string) error
}

// Deps bundles everything the HTTP surface is wired to.
type Deps struct {
	Provider   SnapshotProvider
	Controller Controller
	Library    LibraryReader
	Devices    DeviceSelector
	Ready      func() bool
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	CommandsTotal  *prometheus.CounterVec
	PollsTotal     *prometheus.CounterVec
	LikesTotal     *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	CommandLatency *prometheus.HistogramVec
	LikedTracks    prometheus.Gauge
	DevicesKnown   prometheus.Gauge
	SessionActive  prometheus.Gauge
}

func NewServer(config *core.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	metrics := newMetrics()

	prometheus.MustRegister(
		metrics.CommandsTotal,
		metrics.PollsTotal,
		metrics.LikesTotal,
		metrics.ErrorsTotal,
		metrics.CommandLatency,
		metrics.LikedTracks,
		metrics.DevicesKnown,
		metrics.SessionActive,
	)

	mux := setupRoutes(logger, deps)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playdeck_commands_total",
				Help: "Total number of playback commands issued",
			},
			[]string{"op", "status"},
		),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playdeck_polls_total",
				Help: "Total number of remote state polls",
			},
			[]string{"status"},
		),
		LikesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playdeck_likes_total",
				Help: "Total number of like and unlike operations",
			},
			[]string{"action", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playdeck_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "kind"},
		),
		CommandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playdeck_command_duration_seconds",
				Help:    "Time spent issuing playback commands",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		LikedTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playdeck_liked_tracks",
				Help: "Current size of the liked-track set",
			},
		),
		DevicesKnown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playdeck_devices_known",
				Help: "Number of playback devices last reported",
			},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playdeck_session_active",
				Help: "Whether a live playback session exists (0 or 1)",
			},
		),
	}
}

func setupRoutes(logger *zap.Logger, deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"playdeck"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.Ready != nil && !deps.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not_ready","service":"playdeck"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"playdeck"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/snapshot", snapshotHandler(logger, deps.Provider))
	mux.HandleFunc("GET /v1/devices", devicesHandler(logger, deps.Provider))
	mux.HandleFunc("POST /v1/devices/select", selectDeviceHandler(logger, deps.Devices))

	mux.HandleFunc("POST /v1/player/play", playHandler(logger, deps.Controller))
	mux.HandleFunc("POST /v1/player/toggle", commandHandler(logger, deps.Controller.TogglePlayPause))
	mux.HandleFunc("POST /v1/player/next", commandHandler(logger, deps.Controller.SkipNext))
	mux.HandleFunc("POST /v1/player/previous", commandHandler(logger, deps.Controller.SkipPrevious))
	mux.HandleFunc("POST /v1/player/seek", seekHandler(logger, deps.Controller))
	mux.HandleFunc("POST /v1/player/volume", volumeHandler(logger, deps.Controller))
	mux.HandleFunc("POST /v1/player/shuffle", shuffleHandler(logger, deps.Controller))
	mux.HandleFunc("POST /v1/player/repeat", repeatHandler(logger, deps.Controller))
	mux.HandleFunc("POST /v1/player/queue/refresh", commandHandler(logger, deps.Controller.RefreshQueue))

	mux.HandleFunc("PUT /v1/tracks/{id}/like", likeHandler(logger, deps.Controller.LikeTrack))
	mux.HandleFunc("DELETE /v1/tracks/{id}/like", likeHandler(logger, deps.Controller.UnlikeTrack))

	mux.HandleFunc("GET /v1/library/playlists", playlistsHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/playlists/{id}/tracks", playlistTracksHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/albums", albumsHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/albums/{id}/tracks", albumTracksHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/search", searchHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/releases", releasesHandler(logger, deps.Library))
	mux.HandleFunc("GET /v1/library/recent", recentHandler(logger, deps.Library))

	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Playdeck</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎧 Playdeck</h1>
    <p>Headless Spotify Playback Controller</p>

    <h2>Endpoints</h2>
    <div class="endpoint">🎵 <a href="/v1/snapshot">Snapshot</a> - Current playback state</div>
    <div class="endpoint">📻 <a href="/v1/devices">Devices</a> - Known playback devices</div>
    <div class="endpoint">📚 <a href="/v1/library/playlists">Playlists</a> - Library overview</div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>

    <h2>Status</h2>
    <p>Service is running and reconciling Spotify playback state.</p>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

type trackResponse struct {
	ID       string   `json:"id"`
	URI      string   `json:"uri"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	Duration int64    `json:"durationMs"`
}

type deviceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	IsActive   bool   `json:"isActive"`
	Restricted bool   `json:"isRestricted"`
}

type playlistResponse struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"trackCount"`
}

type albumResponse struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type snapshotResponse struct {
	State            string           `json:"state"`
	IsActive         bool             `json:"isActive"`
	IsPlaying        bool             `json:"isPlaying"`
	CurrentTrack     *trackResponse   `json:"currentTrack"`
	PositionMs       int64            `json:"positionMs"`
	Volume           float64          `json:"volume"`
	SelectedDeviceID string           `json:"selectedDeviceId"`
	RepeatMode       string           `json:"repeatMode"`
	Shuffle          bool             `json:"shuffle"`
	Devices          []deviceResponse `json:"devices"`
	Queue            []trackResponse  `json:"queue"`
	LikedTrackIDs    []string         `json:"likedTrackIds"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func snapshotHandler(logger *zap.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := provider.Snapshot()

		resp := snapshotResponse{
			State:            snap.State.String(),
			IsActive:         snap.IsActive,
			IsPlaying:        snap.IsPlaying,
			CurrentTrack:     convertTrack(snap.CurrentTrack),
			PositionMs:       snap.Position.Milliseconds(),
			Volume:           snap.Volume,
			SelectedDeviceID: snap.SelectedDeviceID,
			RepeatMode:       string(snap.RepeatMode),
			Shuffle:          snap.Shuffle,
			Devices:          convertDevices(snap.Devices),
			Queue:            convertQueue(snap.Queue),
			LikedTrackIDs:    provider.LikedTrackIDs(),
			UpdatedAt:        snap.UpdatedAt,
		}

		writeJSON(w, logger, resp)
	}
}

func devicesHandler(logger *zap.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := provider.Snapshot()
		writeJSON(w, logger, map[string]any{
			"selectedDeviceId": snap.SelectedDeviceID,
			"devices":          convertDevices(snap.Devices),
		})
	}
}

func selectDeviceHandler(logger *zap.Logger, devices DeviceSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DeviceID string `json:"deviceId"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}
		if err := devices.Select(r.Context(), body.DeviceID); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

// playHandler dispatches on the body shape: a single track uri, a
// context uri with an optional offset, or an explicit track list played
// in a locally shuffled order.
func playHandler(logger *zap.Logger, controller Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URI        string   `json:"uri"`
			ContextURI string   `json:"contextUri"`
			Offset     int      `json:"offset"`
			URIs       []string `json:"uris"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}

		var err error
		switch {
		case len(body.URIs) > 0:
			err = controller.PlayShuffled(r.Context(), body.URIs)
		case body.ContextURI != "":
			err = controller.PlayCollection(r.Context(), body.ContextURI, body.Offset)
		default:
			err = controller.PlayTrack(r.Context(), body.URI)
		}
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func commandHandler(logger *zap.Logger, fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func seekHandler(logger *zap.Logger, controller Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PositionMs int64 `json:"positionMs"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}
		if err := controller.Seek(r.Context(), time.Duration(body.PositionMs)*time.Millisecond); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func volumeHandler(logger *zap.Logger, controller Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Volume float64 `json:"volume"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}
		if err := controller.SetVolume(r.Context(), body.Volume); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func shuffleHandler(logger *zap.Logger, controller Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			State bool `json:"state"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}
		if err := controller.SetShuffle(r.Context(), body.State); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func repeatHandler(logger *zap.Logger, controller Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Mode string `json:"mode"`
		}
		if !decodeBody(w, logger, r, &body) {
			return
		}
		if err := controller.SetRepeatMode(r.Context(), core.RepeatMode(body.Mode)); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

func likeHandler(logger *zap.Logger, fn func(ctx context.Context, trackID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, logger, err)
			return
		}
		writeAccepted(w, logger)
	}
}

// playlistsHandler serves the library overview; sort, owner and q query
// parameters order and narrow it.
func playlistsHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playlists, err := lib.Playlists(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}

		if owner := r.URL.Query().Get("owner"); owner != "" {
			playlists = library.FilterPlaylistsByOwner(playlists, owner)
		}
		if q := r.URL.Query().Get("q"); q != "" {
			playlists = library.FilterPlaylistsByName(playlists, q)
		}
		if mode := r.URL.Query().Get("sort"); mode != "" {
			library.SortPlaylists(playlists, library.SortMode(mode))
		}

		writeJSON(w, logger, map[string]any{"playlists": convertPlaylists(playlists)})
	}
}

func playlistTracksHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := lib.PlaylistTracks(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if q := r.URL.Query().Get("q"); q != "" {
			tracks = library.FilterTracks(tracks, q)
		}
		writeJSON(w, logger, map[string]any{"tracks": convertTracks(tracks)})
	}
}

func albumsHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		albums, err := lib.SavedAlbums(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]any{"albums": convertAlbums(albums)})
	}
}

func albumTracksHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := lib.AlbumTracks(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]any{"tracks": convertTracks(tracks)})
	}
}

func searchHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := lib.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]any{"tracks": convertTracks(tracks)})
	}
}

func releasesHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		albums, err := lib.NewReleases(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]any{"albums": convertAlbums(albums)})
	}
}

func recentHandler(logger *zap.Logger, lib LibraryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := lib.RecentlyPlayed(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]any{"tracks": convertTracks(tracks)})
	}
}

func decodeBody(w http.ResponseWriter, logger *zap.Logger, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, logger, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func writeAccepted(w http.ResponseWriter, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, logger, map[string]string{"status": "accepted"})
}

// writeError maps the command error taxonomy onto HTTP statuses;
// unclassified failures read as a bad upstream.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusBadGateway
	switch core.KindOf(err) {
	case core.ErrValidation:
		status = http.StatusBadRequest
	case core.ErrAuth:
		status = http.StatusUnauthorized
	case core.ErrRateLimited:
		status = http.StatusTooManyRequests
	case core.ErrTimeout:
		status = http.StatusGatewayTimeout
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, logger, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to encode response", zap.Error(err))
	}
}

func convertTrack(track *core.Track) *trackResponse {
	if track == nil {
		return nil
	}
	resp := &trackResponse{
		ID:       track.ID,
		URI:      track.URI,
		Name:     track.Name,
		Album:    track.Album.Name,
		Duration: track.Duration.Milliseconds(),
	}
	for _, a := range track.Artists {
		resp.Artists = append(resp.Artists, a.Name)
	}
	return resp
}

func convertTracks(tracks []core.Track) []trackResponse {
	out := make([]trackResponse, 0, len(tracks))
	for i := range tracks {
		out = append(out, *convertTrack(&tracks[i]))
	}
	return out
}

func convertQueue(queue core.Queue) []trackResponse {
	return convertTracks(queue.Upcoming)
}

func convertDevices(devices []core.Device) []deviceResponse {
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{
			ID:         d.ID,
			Name:       d.Name,
			Type:       d.Type,
			IsActive:   d.IsActive,
			Restricted: d.IsRestricted,
		})
	}
	return out
}

func convertPlaylists(playlists []core.Playlist) []playlistResponse {
	out := make([]playlistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistResponse{
			ID:         p.ID,
			URI:        p.URI,
			Name:       p.Name,
			Owner:      p.Owner,
			TrackCount: p.TrackCount,
		})
	}
	return out
}

func convertAlbums(albums []core.Album) []albumResponse {
	out := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumResponse{Name: a.Name, URI: a.URI})
	}
	return out
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordCommand(op, status string, duration time.Duration) {
	s.metrics.CommandsTotal.WithLabelValues(op, status).Inc()
	s.metrics.CommandLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (s *Server) RecordPoll(status string) {
	s.metrics.PollsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordLike(action, status string) {
	s.metrics.LikesTotal.WithLabelValues(action, status).Inc()
}

func (s *Server) RecordError(component, kind string) {
	s.metrics.ErrorsTotal.WithLabelValues(component, kind).Inc()
}

func (s *Server) ObserveSnapshot(snap core.PlaybackSnapshot, likedCount int) {
	if snap.IsActive {
		s.metrics.SessionActive.Set(1)
	} else {
		s.metrics.SessionActive.Set(0)
	}
	s.metrics.DevicesKnown.Set(float64(len(snap.Devices)))
	s.metrics.LikedTracks.Set(float64(likedCount))
}
