package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/ostinato/internal/catalog"
	"github.com/MrWong99/ostinato/internal/observe"
)

// DefaultIdleTimeout is how long an unused cache entry survives. The timer
// is measured from the last access, not from creation.
const DefaultIdleTimeout = 20 * time.Minute

// ErrClosed is returned by [Cache.Resolve] after [Cache.Close].
var ErrClosed = errors.New("cache: closed")

// PlayableSound is the narrowed clip projection stored in result rings —
// just enough to stream the clip. Callers always receive copies, never a
// reference into the cache.
type PlayableSound struct {
	ID        string
	AssetPath string
}

// ClipFetcher is the catalog read the cache performs on a miss.
// [catalog.Store] satisfies it.
type ClipFetcher interface {
	FetchClipsForCommand(ctx context.Context, commandID string) ([]catalog.Clip, error)
}

// cacheKey identifies one result ring: a command plus the trimmed query
// text. An empty query is a distinct, valid key meaning "no filter".
type cacheKey struct {
	commandID string
	query     string
}

// entry is one cached result ring with its idle-eviction timer.
// entry.mu serialises rotation, removal, and timer refresh; the cache map
// lock is never held across entry operations.
type entry struct {
	mu    sync.Mutex
	ring  *Ring[PlayableSound]
	timer Timer
}

// CacheConfig configures a [Cache].
type CacheConfig struct {
	// Fetcher loads candidate clips on a cache miss. Must not be nil.
	Fetcher ClipFetcher

	// Ranker orders candidates on a cache miss. Must not be nil.
	Ranker *Ranker

	// IdleTimeout overrides [DefaultIdleTimeout] when positive.
	IdleTimeout time.Duration

	// Clock overrides [SystemClock] when non-nil. Tests inject a fake
	// clock to drive eviction deterministically.
	Clock Clock

	// Metrics records cache hits, misses, and resolve latency when non-nil.
	Metrics *observe.Metrics
}

// Cache resolves (command, query) pairs to playable sounds. Each distinct
// key owns a rotating ring of matching clips: repeat resolutions cycle
// through the ring, and entries idle out after [CacheConfig.IdleTimeout]
// without access.
//
// Independent keys resolve fully in parallel; concurrent resolutions of
// the same key are serialised per entry, and concurrent misses for the
// same new key perform exactly one catalog fetch and ranking pass.
//
// All methods are safe for concurrent use.
type Cache struct {
	fetcher ClipFetcher
	ranker  *Ranker
	idle    time.Duration
	clock   Clock
	metrics *observe.Metrics

	mu      sync.RWMutex
	entries map[cacheKey]*entry
	closed  bool

	// populating holds one lock per key currently being populated so that
	// racing misses serialise instead of performing duplicate ranking passes.
	populating   map[cacheKey]*sync.Mutex
	populatingMu sync.Mutex
}

// NewCache creates a Cache ready for use. Call [Cache.Close] to release
// its timers.
func NewCache(cfg CacheConfig) *Cache {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	clk := cfg.Clock
	if clk == nil {
		clk = SystemClock{}
	}
	return &Cache{
		fetcher:    cfg.Fetcher,
		ranker:     cfg.Ranker,
		idle:       idle,
		clock:      clk,
		metrics:    cfg.Metrics,
		entries:    make(map[cacheKey]*entry),
		populating: make(map[cacheKey]*sync.Mutex),
	}
}

// Resolve returns the next playable sound for commandID and query.
//
// On a hit the stored ring is rotated, its idle timer refreshed, and the
// new current item returned. On a miss all clips for commandID are
// fetched, ranked against the query (orphaned-asset clips excluded) and a
// fresh ring is stored; its current item is returned without rotation.
//
// ok is false when no clip matches — that is a normal outcome, not an
// error. Errors are only returned for catalog fetch failures, which never
// leave a partial entry behind.
func (c *Cache) Resolve(ctx context.Context, commandID, query string) (sound PlayableSound, ok bool, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil && err == nil {
			c.metrics.RecordResolve(ctx, time.Since(start))
		}
	}()

	key := cacheKey{commandID: commandID, query: strings.TrimSpace(query)}

	if e := c.lookup(key); e != nil {
		return c.access(ctx, key, e)
	}

	// Miss path: serialise per key so only one ranking pass runs.
	popMu := c.populateLock(key)
	popMu.Lock()
	defer func() {
		popMu.Unlock()
		c.releasePopulateLock(key)
	}()

	// A racing miss may have populated while we waited.
	if e := c.lookup(key); e != nil {
		return c.access(ctx, key, e)
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return PlayableSound{}, false, ErrClosed
	}

	clips, err := c.fetcher.FetchClipsForCommand(ctx, commandID)
	if err != nil {
		return PlayableSound{}, false, fmt.Errorf("cache: fetch clips for command %q: %w", commandID, err)
	}

	candidates := make([]Candidate, 0, len(clips))
	for _, clip := range clips {
		if _, available := clip.Asset.Path(); !available {
			continue
		}
		candidates = append(candidates, NewCandidate(clip))
	}

	ranked := c.ranker.Rank(candidates, key.query)
	if len(ranked) == 0 {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(ctx, false)
		}
		return PlayableSound{}, false, nil
	}

	sounds := make([]PlayableSound, len(ranked))
	for i, res := range ranked {
		path, _ := res.Candidate.Source.Asset.Path()
		sounds[i] = PlayableSound{ID: res.Candidate.Source.ID, AssetPath: path}
	}

	e := &entry{ring: NewRing(sounds)}
	e.timer = c.clock.AfterFunc(c.idle, func() { c.expire(key, e) })

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		e.timer.Stop()
		return PlayableSound{}, false, ErrClosed
	}
	c.entries[key] = e
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheMiss(ctx, true)
	}
	slog.Debug("cache: populated entry",
		"command_id", commandID,
		"query", key.query,
		"results", len(sounds),
	)

	// Creation counts as the first access; the current item is returned
	// without rotating.
	return e.ring.Current(), true, nil
}

// InvalidateCommand drops every entry belonging to commandID, across all
// query variants. Called when the command's clip set changes wholesale.
func (c *Cache) InvalidateCommand(commandID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key.commandID == commandID {
			e.timer.Stop()
			delete(c.entries, key)
		}
	}
}

// InvalidateClip drops every entry whose ring currently contains a clip
// with clipID, regardless of command. Used when a clip is deleted or
// renamed such that cached results would go stale.
func (c *Cache) InvalidateClip(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.mu.Lock()
		contains := e.ring.Some(func(s PlayableSound) bool { return s.ID == clipID })
		e.mu.Unlock()
		if contains {
			e.timer.Stop()
			delete(c.entries, key)
		}
	}
}

// RemoveClip surgically removes the clip from every ring that contains it,
// keeping the rest of each entry intact. Entries left empty are dropped —
// an empty ring is not a valid cache entry.
func (c *Cache) RemoveClip(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.mu.Lock()
		e.ring.RemoveWhere(func(s PlayableSound) bool { return s.ID == clipID })
		empty := e.ring.Len() == 0
		e.mu.Unlock()
		if empty {
			e.timer.Stop()
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries. Intended for tests and metrics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops all eviction timers and drops every entry. Subsequent
// Resolve calls return [ErrClosed]. Close is idempotent.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for key, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

// lookup returns the live entry for key, or nil.
func (c *Cache) lookup(key cacheKey) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// access serves a cache hit: rotate the ring, refresh the idle timer, and
// return a copy of the new current item.
func (c *Cache) access(ctx context.Context, key cacheKey, e *entry) (PlayableSound, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ring.Len() == 0 {
		// Emptied by a concurrent RemoveClip; the entry is already being
		// dropped. Treat as a miss with no results.
		return PlayableSound{}, false, nil
	}
	e.ring.Rotate()
	e.timer.Reset(c.idle)
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key.commandID)
	}
	return e.ring.Current(), true, nil
}

// expire is the idle-timer callback. It only deletes the entry if the map
// still holds the same entry pointer, so a stale timer never removes a
// freshly repopulated entry.
func (c *Cache) expire(key cacheKey, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[key]; ok && current == e {
		delete(c.entries, key)
		slog.Debug("cache: entry expired", "command_id", key.commandID, "query", key.query)
	}
}

// populateLock returns the per-key mutex used to serialise population,
// creating it on first use.
func (c *Cache) populateLock(key cacheKey) *sync.Mutex {
	c.populatingMu.Lock()
	defer c.populatingMu.Unlock()
	mu, ok := c.populating[key]
	if !ok {
		mu = &sync.Mutex{}
		c.populating[key] = mu
	}
	return mu
}

// releasePopulateLock discards the per-key populate mutex. Racing misses
// that already hold a reference keep using it; the map entry just stops
// pinning it once population settles.
func (c *Cache) releasePopulateLock(key cacheKey) {
	c.populatingMu.Lock()
	defer c.populatingMu.Unlock()
	delete(c.populating, key)
}
