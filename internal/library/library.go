// Package library fronts the music service's catalog and library
// endpoints with a read-through TTL cache, so repeated view renders
// don't burn through the API rate budget.
package library

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"playdeck/internal/core"
	"playdeck/pkg/match"
)

const (
	cacheSize = 256
	// LikedSongsID identifies the synthesized "Liked Songs" pseudo
	// playlist
	LikedSongsID = "liked-songs"
	// DefaultSearchLimit bounds search result pages
	DefaultSearchLimit = 20
	// DefaultReleaseLimit bounds new-release fetches
	DefaultReleaseLimit = 20
	// DefaultRecentLimit bounds recently-played fetches
	DefaultRecentLimit = 50
)

// SortMode orders the library overview.
type SortMode string

const (
	SortRecents      SortMode = "recents"
	SortAlphabetical SortMode = "alphabetical"
	SortCreator      SortMode = "creator"
)

// Catalog is the slice of the Web API the library reads through.
type Catalog interface {
	Playlists(ctx context.Context) ([]core.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error)
	SavedAlbums(ctx context.Context) ([]core.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]core.Track, error)
	SavedTracks(ctx context.Context, max int) ([]core.Track, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]core.Track, error)
	NewReleases(ctx context.Context, limit int) ([]core.Album, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]core.Track, error)
}

type Library struct {
	client    Catalog
	logger    *zap.Logger
	cache     *expirable.LRU[string, any]
	maxTracks int
}

func New(client Catalog, config *core.SessionConfig, logger *zap.Logger) *Library {
	return &Library{
		client:    client,
		logger:    logger,
		cache:     expirable.NewLRU[string, any](cacheSize, nil, config.CacheTTL),
		maxTracks: config.MaxLikedTracks,
	}
}

// Playlists returns the user's playlists with the synthesized Liked
// Songs entry prepended.
func (l *Library) Playlists(ctx context.Context) ([]core.Playlist, error) {
	playlists, err := cached(l, ctx, "playlists", func(ctx context.Context) ([]core.Playlist, error) {
		return l.client.Playlists(ctx)
	})
	if err != nil {
		return nil, err
	}

	liked, err := l.LikedSongs(ctx)
	if err != nil {
		// Liked Songs is synthesized best-effort; the real playlists
		// still render without it.
		l.logger.Warn("Failed to fetch liked songs for library overview", zap.Error(err))
		return playlists, nil
	}

	out := make([]core.Playlist, 0, len(playlists)+1)
	out = append(out, core.Playlist{
		ID:         LikedSongsID,
		Name:       "Liked Songs",
		Owner:      "you",
		TrackCount: len(liked),
	})
	out = append(out, playlists...)
	return out, nil
}

// PlaylistTracks returns the tracks of one playlist, resolving the
// Liked Songs pseudo playlist to the saved-tracks endpoint.
func (l *Library) PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error) {
	if playlistID == LikedSongsID {
		return l.LikedSongs(ctx)
	}
	return cached(l, ctx, "playlist:"+playlistID, func(ctx context.Context) ([]core.Track, error) {
		return l.client.PlaylistTracks(ctx, playlistID)
	})
}

// LikedSongs returns the user's saved tracks, capped.
func (l *Library) LikedSongs(ctx context.Context) ([]core.Track, error) {
	return cached(l, ctx, "liked", func(ctx context.Context) ([]core.Track, error) {
		return l.client.SavedTracks(ctx, l.maxTracks)
	})
}

func (l *Library) SavedAlbums(ctx context.Context) ([]core.Album, error) {
	return cached(l, ctx, "albums", func(ctx context.Context) ([]core.Album, error) {
		return l.client.SavedAlbums(ctx)
	})
}

func (l *Library) AlbumTracks(ctx context.Context, albumID string) ([]core.Track, error) {
	return cached(l, ctx, "album:"+albumID, func(ctx context.Context) ([]core.Track, error) {
		return l.client.AlbumTracks(ctx, albumID)
	})
}

// Search runs a track search, re-ranked by how closely each result
// resembles the query. The service's relevance order breaks ties.
func (l *Library) Search(ctx context.Context, query string) ([]core.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewCommandError("search", core.ErrValidation,
			fmt.Errorf("query is empty"))
	}
	tracks, err := cached(l, ctx, "search:"+strings.ToLower(query), func(ctx context.Context) ([]core.Track, error) {
		return l.client.SearchTracks(ctx, query, DefaultSearchLimit)
	})
	if err != nil {
		return nil, err
	}
	return rankTracks(tracks, query), nil
}

// rankTracks orders tracks by resemblance between the query and the
// track's title plus artists. Works on a copy; cached slices stay
// untouched.
func rankTracks(tracks []core.Track, query string) []core.Track {
	type scored struct {
		track core.Track
		score float64
	}
	ranked := make([]scored, 0, len(tracks))
	for _, t := range tracks {
		haystack := t.Name
		for _, a := range t.Artists {
			haystack += " " + a.Name
		}
		ranked = append(ranked, scored{track: t, score: match.Score(query, haystack)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	out := make([]core.Track, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.track)
	}
	return out
}

func (l *Library) NewReleases(ctx context.Context) ([]core.Album, error) {
	return cached(l, ctx, "releases", func(ctx context.Context) ([]core.Album, error) {
		return l.client.NewReleases(ctx, DefaultReleaseLimit)
	})
}

// RecentlyPlayed returns recently played tracks; duplicates are already
// collapsed by the client.
func (l *Library) RecentlyPlayed(ctx context.Context) ([]core.Track, error) {
	return cached(l, ctx, "recent", func(ctx context.Context) ([]core.Track, error) {
		return l.client.RecentlyPlayed(ctx, DefaultRecentLimit)
	})
}

// InvalidateLiked drops cached liked-songs data after a like/unlike so
// the next read reflects the change.
func (l *Library) InvalidateLiked() {
	l.cache.Remove("liked")
	l.cache.Remove("playlists")
}

// Purge drops the whole cache.
func (l *Library) Purge() {
	l.cache.Purge()
}

// cached wraps a fetch with the read-through cache under key.
func cached[T any](l *Library, ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.cache.Add(key, v)
	return v, nil
}

// SortPlaylists orders a library overview in place. The Liked Songs
// pseudo entry stays pinned first when present.
func SortPlaylists(playlists []core.Playlist, mode SortMode) {
	start := 0
	if len(playlists) > 0 && playlists[0].ID == LikedSongsID {
		start = 1
	}
	rest := playlists[start:]

	switch mode {
	case SortAlphabetical:
		sort.SliceStable(rest, func(i, j int) bool {
			return strings.ToLower(rest[i].Name) < strings.ToLower(rest[j].Name)
		})
	case SortCreator:
		sort.SliceStable(rest, func(i, j int) bool {
			return strings.ToLower(rest[i].Owner) < strings.ToLower(rest[j].Owner)
		})
	case SortRecents:
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].AddedAt.After(rest[j].AddedAt)
		})
	}
}

// FilterPlaylistsByOwner keeps only playlists created by owner.
func FilterPlaylistsByOwner(playlists []core.Playlist, owner string) []core.Playlist {
	var out []core.Playlist
	for _, p := range playlists {
		if strings.EqualFold(p.Owner, owner) {
			out = append(out, p)
		}
	}
	return out
}

// FilterPlaylistsByName keeps playlists whose name matches query, with
// accents and punctuation folded. An empty query keeps everything.
func FilterPlaylistsByName(playlists []core.Playlist, query string) []core.Playlist {
	var out []core.Playlist
	for _, p := range playlists {
		if match.Matches(query, p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// FilterTracks keeps tracks whose title, artist or album matches query.
func FilterTracks(tracks []core.Track, query string) []core.Track {
	var out []core.Track
	for _, t := range tracks {
		haystack := t.Name + " " + t.Album.Name
		for _, a := range t.Artists {
			haystack += " " + a.Name
		}
		if match.Matches(query, haystack) {
			out = append(out, t)
		}
	}
	return out
}
