// Package spotify provides Spotify Web API integration for playback
// control, device handoff and library access. All outbound requests
// pass through a paced transport that enforces request spacing and
// retry behavior.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"playdeck/internal/core"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// PageLimit is the page size for paged library endpoints
	PageLimit = 50
	// MaxVolumePercent is the remote API's volume scale ceiling
	MaxVolumePercent = 100
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeUserLibraryModify,
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopePlaylistReadPrivate,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := c.buildClient(ctx, token)
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// Authenticated reports whether a usable client exists.
func (c *Client) Authenticated() bool {
	return c.client != nil
}

// buildClient routes the oauth2-authorized HTTP client through the
// paced transport so spacing, timeouts and retries apply everywhere.
func (c *Client) buildClient(ctx context.Context, token *oauth2.Token) *spotify.Client {
	httpClient := c.auth.Client(ctx, token)
	httpClient.Transport = NewPacedTransport(httpClient.Transport, c.config, c.logger)
	return spotify.New(httpClient)
}

// PlayerState polls the remote playback state endpoint. An inactive
// session (no content) yields Active=false rather than an error.
func (c *Client) PlayerState(ctx context.Context) (*core.RemoteState, error) {
	if c.client == nil {
		return nil, core.NewCommandError("player_state", core.ErrAuth, errClientNotAuthenticated)
	}

	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return nil, c.wrapErr("player_state", err)
	}

	remote := &core.RemoteState{}
	if state == nil || state.Device.ID == "" {
		return remote, nil
	}

	remote.Active = true
	remote.Playing = state.Playing
	remote.Position = time.Duration(state.Progress) * time.Millisecond
	remote.Shuffle = state.ShuffleState
	remote.Repeat = core.RepeatMode(state.RepeatState)
	remote.DeviceID = state.Device.ID.String()
	remote.Volume = float64(state.Device.Volume) / MaxVolumePercent
	if state.Item != nil {
		track := convertFullTrack(state.Item)
		remote.Track = &track
	}

	return remote, nil
}

// Play starts or resumes playback on the given device. The request is
// either a list of track URIs or a context URI with an offset.
func (c *Client) Play(ctx context.Context, deviceID string, req core.PlayRequest) error {
	if c.client == nil {
		return core.NewCommandError("play", core.ErrAuth, errClientNotAuthenticated)
	}

	opts := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opts.DeviceID = &id
	}
	if req.ByContext() {
		uri := spotify.URI(req.ContextURI)
		opts.PlaybackContext = &uri
		if req.HasOffset {
			offset := req.Offset
			opts.PlaybackOffset = &spotify.PlaybackOffset{Position: &offset}
		}
	} else {
		for _, u := range req.URIs {
			opts.URIs = append(opts.URIs, spotify.URI(u))
		}
	}

	if err := c.client.PlayOpt(ctx, opts); err != nil {
		return c.wrapErr("play", err)
	}
	return nil
}

func (c *Client) Pause(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return core.NewCommandError("pause", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.PauseOpt(ctx, deviceOpts(deviceID)); err != nil {
		return c.wrapErr("pause", err)
	}
	return nil
}

func (c *Client) Next(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return core.NewCommandError("next", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.NextOpt(ctx, deviceOpts(deviceID)); err != nil {
		return c.wrapErr("next", err)
	}
	return nil
}

func (c *Client) Previous(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return core.NewCommandError("previous", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.PreviousOpt(ctx, deviceOpts(deviceID)); err != nil {
		return c.wrapErr("previous", err)
	}
	return nil
}

func (c *Client) Seek(ctx context.Context, deviceID string, position time.Duration) error {
	if c.client == nil {
		return core.NewCommandError("seek", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.SeekOpt(ctx, int(position.Milliseconds()), deviceOpts(deviceID)); err != nil {
		return c.wrapErr("seek", err)
	}
	return nil
}

// SetVolume sets playback volume; volume is in [0,1].
func (c *Client) SetVolume(ctx context.Context, deviceID string, volume float64) error {
	if c.client == nil {
		return core.NewCommandError("set_volume", core.ErrAuth, errClientNotAuthenticated)
	}
	percent := int(volume * MaxVolumePercent)
	if err := c.client.VolumeOpt(ctx, percent, deviceOpts(deviceID)); err != nil {
		return c.wrapErr("set_volume", err)
	}
	return nil
}

func (c *Client) SetShuffle(ctx context.Context, deviceID string, shuffle bool) error {
	if c.client == nil {
		return core.NewCommandError("set_shuffle", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.ShuffleOpt(ctx, shuffle, deviceOpts(deviceID)); err != nil {
		return c.wrapErr("set_shuffle", err)
	}
	return nil
}

func (c *Client) SetRepeat(ctx context.Context, deviceID string, mode core.RepeatMode) error {
	if c.client == nil {
		return core.NewCommandError("set_repeat", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.RepeatOpt(ctx, string(mode), deviceOpts(deviceID)); err != nil {
		return c.wrapErr("set_repeat", err)
	}
	return nil
}

// Devices fetches the account's available playback devices.
func (c *Client) Devices(ctx context.Context) ([]core.Device, error) {
	if c.client == nil {
		return nil, core.NewCommandError("devices", core.ErrAuth, errClientNotAuthenticated)
	}

	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return nil, c.wrapErr("devices", err)
	}

	out := make([]core.Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, core.Device{
			ID:           d.ID.String(),
			Name:         d.Name,
			Type:         d.Type,
			IsActive:     d.Active,
			IsRestricted: d.Restricted,
			VolumePct:    int(d.Volume),
		})
	}
	return out, nil
}

// TransferPlayback hands the playback session to the target device.
// play=false transfers without forcing playback to start.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if c.client == nil {
		return core.NewCommandError("transfer_playback", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.TransferPlayback(ctx, spotify.ID(deviceID), play); err != nil {
		return c.wrapErr("transfer_playback", err)
	}
	return nil
}

// Queue fetches the currently playing track and upcoming queue.
func (c *Client) Queue(ctx context.Context) (core.Queue, error) {
	if c.client == nil {
		return core.Queue{}, core.NewCommandError("queue", core.ErrAuth, errClientNotAuthenticated)
	}

	queue, err := c.client.GetQueue(ctx)
	if err != nil {
		return core.Queue{}, c.wrapErr("queue", err)
	}

	out := core.Queue{}
	if queue.CurrentlyPlaying.ID != "" {
		track := convertFullTrack(&queue.CurrentlyPlaying)
		out.CurrentlyPlaying = &track
	}
	for i := range queue.Items {
		out.Upcoming = append(out.Upcoming, convertFullTrack(&queue.Items[i]))
	}
	return out, nil
}

// SaveTracks adds tracks to the user's library.
func (c *Client) SaveTracks(ctx context.Context, ids ...string) error {
	if c.client == nil {
		return core.NewCommandError("save_tracks", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.AddTracksToLibrary(ctx, spotifyIDs(ids)...); err != nil {
		return c.wrapErr("save_tracks", err)
	}
	return nil
}

// RemoveSavedTracks removes tracks from the user's library.
func (c *Client) RemoveSavedTracks(ctx context.Context, ids ...string) error {
	if c.client == nil {
		return core.NewCommandError("remove_saved_tracks", core.ErrAuth, errClientNotAuthenticated)
	}
	if err := c.client.RemoveTracksFromLibrary(ctx, spotifyIDs(ids)...); err != nil {
		return c.wrapErr("remove_saved_tracks", err)
	}
	return nil
}

// SavedTrackIDs pages through the user's saved tracks and returns up to
// max track ids, newest first.
func (c *Client) SavedTrackIDs(ctx context.Context, max int) ([]string, error) {
	tracks, err := c.SavedTracks(ctx, max)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// SavedTracks pages through the user's saved tracks up to max entries.
func (c *Client) SavedTracks(ctx context.Context, max int) ([]core.Track, error) {
	if c.client == nil {
		return nil, core.NewCommandError("saved_tracks", core.ErrAuth, errClientNotAuthenticated)
	}

	var tracks []core.Track
	offset := 0
	for len(tracks) < max {
		page, err := c.client.CurrentUsersTracks(ctx,
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrapErr("saved_tracks", err)
		}

		for i := range page.Tracks {
			if len(tracks) >= max {
				break
			}
			tracks = append(tracks, convertFullTrack(&page.Tracks[i].FullTrack))
		}

		if len(page.Tracks) < PageLimit {
			break
		}
		offset += PageLimit
	}

	c.logger.Debug("Retrieved saved tracks", zap.Int("count", len(tracks)))
	return tracks, nil
}

// Playlists fetches the user's playlists.
func (c *Client) Playlists(ctx context.Context) ([]core.Playlist, error) {
	if c.client == nil {
		return nil, core.NewCommandError("playlists", core.ErrAuth, errClientNotAuthenticated)
	}

	var playlists []core.Playlist
	offset := 0
	for {
		page, err := c.client.CurrentUsersPlaylists(ctx,
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrapErr("playlists", err)
		}

		for i := range page.Playlists {
			playlists = append(playlists, convertSimplePlaylist(&page.Playlists[i]))
		}

		if len(page.Playlists) < PageLimit {
			break
		}
		offset += PageLimit
	}

	return playlists, nil
}

// PlaylistTracks fetches the tracks of one playlist.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error) {
	if c.client == nil {
		return nil, core.NewCommandError("playlist_tracks", core.ErrAuth, errClientNotAuthenticated)
	}

	var tracks []core.Track
	offset := 0
	for {
		items, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrapErr("playlist_tracks", err)
		}

		for i := range items.Items {
			// Only tracks, not episodes or null entries.
			if items.Items[i].Track.Track != nil {
				tracks = append(tracks, convertFullTrack(items.Items[i].Track.Track))
			}
		}

		if len(items.Items) < PageLimit {
			break
		}
		offset += PageLimit
	}

	return tracks, nil
}

// SavedAlbums fetches the user's saved albums.
func (c *Client) SavedAlbums(ctx context.Context) ([]core.Album, error) {
	if c.client == nil {
		return nil, core.NewCommandError("saved_albums", core.ErrAuth, errClientNotAuthenticated)
	}

	var albums []core.Album
	offset := 0
	for {
		page, err := c.client.CurrentUsersAlbums(ctx,
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrapErr("saved_albums", err)
		}

		for i := range page.Albums {
			albums = append(albums, core.Album{
				Name:   page.Albums[i].Name,
				URI:    string(page.Albums[i].URI),
				Images: convertImages(page.Albums[i].Images),
			})
		}

		if len(page.Albums) < PageLimit {
			break
		}
		offset += PageLimit
	}

	return albums, nil
}

// AlbumTracks fetches the tracks of one album.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]core.Track, error) {
	if c.client == nil {
		return nil, core.NewCommandError("album_tracks", core.ErrAuth, errClientNotAuthenticated)
	}

	album, err := c.client.GetAlbum(ctx, spotify.ID(albumID))
	if err != nil {
		return nil, c.wrapErr("album_tracks", err)
	}

	albumRef := core.Album{
		Name:   album.Name,
		URI:    string(album.URI),
		Images: convertImages(album.Images),
	}

	tracks := make([]core.Track, 0, len(album.Tracks.Tracks))
	for i := range album.Tracks.Tracks {
		t := &album.Tracks.Tracks[i]
		track := core.Track{
			ID:       string(t.ID),
			URI:      string(t.URI),
			Name:     t.Name,
			Duration: time.Duration(t.Duration) * time.Millisecond,
			Album:    albumRef,
		}
		for _, a := range t.Artists {
			track.Artists = append(track.Artists, core.Artist{Name: a.Name, URI: string(a.URI)})
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// SearchTracks searches the catalog for tracks matching query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]core.Track, error) {
	if c.client == nil {
		return nil, core.NewCommandError("search", core.ErrAuth, errClientNotAuthenticated)
	}

	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, c.wrapErr("search", err)
	}

	if results.Tracks == nil {
		return nil, nil
	}
	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, convertFullTrack(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// NewReleases fetches newly released albums.
func (c *Client) NewReleases(ctx context.Context, limit int) ([]core.Album, error) {
	if c.client == nil {
		return nil, core.NewCommandError("new_releases", core.ErrAuth, errClientNotAuthenticated)
	}

	page, err := c.client.NewReleases(ctx, spotify.Limit(limit))
	if err != nil {
		return nil, c.wrapErr("new_releases", err)
	}

	albums := make([]core.Album, 0, len(page.Albums))
	for i := range page.Albums {
		albums = append(albums, core.Album{
			Name:   page.Albums[i].Name,
			URI:    string(page.Albums[i].URI),
			Images: convertImages(page.Albums[i].Images),
		})
	}
	return albums, nil
}

// RecentlyPlayed fetches recently played tracks with consecutive
// duplicates collapsed.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]core.Track, error) {
	if c.client == nil {
		return nil, core.NewCommandError("recently_played", core.ErrAuth, errClientNotAuthenticated)
	}

	items, err := c.client.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: limit})
	if err != nil {
		return nil, c.wrapErr("recently_played", err)
	}

	var tracks []core.Track
	seen := make(map[string]bool)
	for i := range items {
		id := string(items[i].Track.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		t := &items[i].Track
		track := core.Track{
			ID:       id,
			URI:      string(t.URI),
			Name:     t.Name,
			Duration: time.Duration(t.Duration) * time.Millisecond,
			Album: core.Album{
				Name:   t.Album.Name,
				URI:    string(t.Album.URI),
				Images: convertImages(t.Album.Images),
			},
		}
		for _, a := range t.Artists {
			track.Artists = append(track.Artists, core.Artist{Name: a.Name, URI: string(a.URI)})
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

var errClientNotAuthenticated = errors.New("client not authenticated")

// wrapErr classifies a Web API failure into the command error taxonomy.
func (c *Client) wrapErr(op string, err error) error {
	kind := core.ErrUnknown

	var apiErr spotify.Error
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusUnauthorized:
			kind = core.ErrAuth
		case http.StatusTooManyRequests:
			kind = core.ErrRateLimited
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			kind = core.ErrValidation
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = core.ErrTimeout
	case errors.Is(err, context.Canceled):
		kind = core.ErrNetwork
	default:
		kind = core.ErrNetwork
	}

	return core.NewCommandError(op, kind, err)
}

func deviceOpts(deviceID string) *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opts.DeviceID = &id
	}
	return opts
}

func spotifyIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

func convertImages(images []spotify.Image) []core.Image {
	out := make([]core.Image, 0, len(images))
	for _, img := range images {
		out = append(out, core.Image{
			URL:    img.URL,
			Width:  int(img.Width),
			Height: int(img.Height),
		})
	}
	return out
}

func convertFullTrack(track *spotify.FullTrack) core.Track {
	out := core.Track{
		ID:       string(track.ID),
		URI:      string(track.URI),
		Name:     track.Name,
		Duration: time.Duration(track.Duration) * time.Millisecond,
		Album: core.Album{
			Name:   track.Album.Name,
			URI:    string(track.Album.URI),
			Images: convertImages(track.Album.Images),
		},
	}
	for _, artist := range track.Artists {
		out.Artists = append(out.Artists, core.Artist{Name: artist.Name, URI: string(artist.URI)})
	}
	return out
}

func convertSimplePlaylist(playlist *spotify.SimplePlaylist) core.Playlist {
	return core.Playlist{
		ID:          string(playlist.ID),
		URI:         string(playlist.URI),
		Name:        playlist.Name,
		Description: playlist.Description,
		Owner:       playlist.Owner.DisplayName,
		TrackCount:  int(playlist.Tracks.Total), //nolint:gosec // Spotify playlist counts are reasonable for int conversion
		Images:      convertImages(playlist.Images),
	}
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := "playdeck-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := c.buildClient(ctx, token)
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}
