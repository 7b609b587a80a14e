// Package store provides the in-memory liked-track set backing the
// heart state across views, using a Bloom filter for cheap negative
// checks and an LRU cache for bounded membership.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LikedStore is the thread-safe set of track ids the user has liked.
// Membership checks happen on every rendered track, so a Bloom filter
// front-runs the map lookup for misses.
type LikedStore struct {
	trackIDs               map[string]struct{}
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	mutex                  sync.RWMutex
	maxTracks              int
	bloomFalsePositiveRate float64
}

// NewLikedStore creates a liked-track store with the specified capacity
// and Bloom false positive rate.
func NewLikedStore(maxTracks int, bloomFalsePositiveRate float64) *LikedStore {
	lruCache, _ := lru.New[string, struct{}](maxTracks)

	if maxTracks < 0 || maxTracks > int(^uint(0)>>1) {
		panic("maxTracks value out of range for uint conversion")
	}
	bloomFilter := bloom.NewWithEstimates(uint(maxTracks), bloomFalsePositiveRate)

	return &LikedStore{
		trackIDs:               make(map[string]struct{}),
		bloom:                  bloomFilter,
		lru:                    lruCache,
		maxTracks:              maxTracks,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Has checks whether a track is liked.
func (ls *LikedStore) Has(trackID string) bool {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	if !ls.bloom.TestString(trackID) {
		return false
	}

	_, exists := ls.trackIDs[trackID]
	return exists
}

// Add marks a track as liked.
func (ls *LikedStore) Add(trackID string) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if _, exists := ls.trackIDs[trackID]; exists {
		return
	}

	ls.trackIDs[trackID] = struct{}{}
	ls.bloom.AddString(trackID)
	ls.lru.Add(trackID, struct{}{})

	if len(ls.trackIDs) > ls.maxTracks {
		ls.evictOldest()
	}
}

// Remove unmarks a track. Used both by unlike and by the rollback of a
// failed optimistic like.
func (ls *LikedStore) Remove(trackID string) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if _, exists := ls.trackIDs[trackID]; !exists {
		return
	}

	delete(ls.trackIDs, trackID)
	ls.lru.Remove(trackID)
	// The bloom filter doesn't support removal; stale positives fall
	// through to the map lookup.
}

// Load clears the store and loads the provided track ids, as fetched
// from the remote saved-tracks endpoint at startup.
func (ls *LikedStore) Load(trackIDs []string) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	ls.clear()

	for _, trackID := range trackIDs {
		if trackID != "" {
			ls.trackIDs[trackID] = struct{}{}
			ls.bloom.AddString(trackID)
			ls.lru.Add(trackID, struct{}{})
		}
	}

	for len(ls.trackIDs) > ls.maxTracks {
		ls.evictOldest()
	}
}

// IDs returns a copy of all liked track ids.
func (ls *LikedStore) IDs() []string {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	ids := make([]string, 0, len(ls.trackIDs))
	for id := range ls.trackIDs {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of liked tracks currently stored.
func (ls *LikedStore) Size() int {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return len(ls.trackIDs)
}

// Clear removes all track ids from the store.
func (ls *LikedStore) Clear() {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	ls.clear()
}

func (ls *LikedStore) clear() {
	ls.trackIDs = make(map[string]struct{})
	if ls.maxTracks < 0 || ls.maxTracks > int(^uint(0)>>1) {
		panic("maxTracks value out of range for uint conversion")
	}
	ls.bloom = bloom.NewWithEstimates(uint(ls.maxTracks), ls.bloomFalsePositiveRate)
	ls.lru.Purge()
}

func (ls *LikedStore) evictOldest() {
	if ls.lru.Len() == 0 {
		return
	}

	oldestKey, _, ok := ls.lru.GetOldest()
	if !ok {
		return
	}

	delete(ls.trackIDs, oldestKey)
	ls.lru.Remove(oldestKey)
}
