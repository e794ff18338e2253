// Package query keeps the last server-confirmed value per resource key.
// Mutations never write these entries; they are replaced only by a fetch
// round-trip, and invalidation (from the event bridge or from a mutation's
// success path) marks an entry stale so subscribers refetch it wholesale.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.sotto.dev/sotto/cache"
)

// Key identifies one cached resource.
type Key string

// Resource keys. Model status is keyed per model type via ModelKey.
const (
	KeyRecordings      Key = "recordings"
	KeyCommands        Key = "commands"
	KeyDictionary      Key = "dictionary_entries"
	KeyWindowContexts  Key = "window_contexts"
	KeyAudioDevices    Key = "audio_devices"
	KeyRunningApps     Key = "running_applications"
	KeyListeningStatus Key = "listening_status"
	KeyRecordingState  Key = "recording_state"
)

// ModelKey returns the cache key for one model type's availability.
func ModelKey(modelType string) Key {
	return Key("model_status/" + modelType)
}

type entry struct {
	value    any
	hasValue bool
	stale    bool
	fetching bool
	err      error

	// gen increments on every invalidation. A fetch that started under an
	// older generation resolved before the invalidating event and must not
	// be cached as fresh.
	gen uint64
}

// Cache is the process-wide query cache. It optionally persists confirmed
// snapshots so a restart can seed stale-but-displayable values.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	sf      singleflight.Group

	persist *cache.Cache
	ttl     time.Duration

	nextSub   int
	listeners map[int]func(Key)
}

// New creates a cache. persist may be nil to disable snapshots.
func New(persist *cache.Cache) *Cache {
	return &Cache{
		entries:   make(map[Key]*entry),
		persist:   persist,
		ttl:       cache.DefaultTTL,
		listeners: make(map[int]func(Key)),
	}
}

// Subscribe registers fn to run with the key of every entry change and
// returns the release function.
func (c *Cache) Subscribe(fn func(Key)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(key Key) {
	c.mu.Lock()
	fns := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// Invalidate marks an entry stale and notifies subscribers. The previous
// value is retained for display until the next fetch replaces it.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.stale = true
	e.gen++
	c.mu.Unlock()

	c.notify(key)
}

// Seed installs a persisted snapshot as a stale entry: displayable, but the
// next Fetch still hits the host.
func (c *Cache) Seed(key Key, value any) {
	c.mu.Lock()
	var gen uint64
	if e, ok := c.entries[key]; ok {
		gen = e.gen + 1
	}
	c.entries[key] = &entry{value: value, hasValue: true, stale: true, gen: gen}
	c.mu.Unlock()

	c.notify(key)
}

// Get returns the last known value for key, if any.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// Loading reports whether key has no displayable value while a fetch is in
// flight.
func (c *Cache) Loading(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.fetching && !e.hasValue
}

// Err returns the last fetch's rejection, cleared by the next success.
func (c *Cache) Err(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.err
	}
	return nil
}

// Fetch returns a fresh value for key, running fetch at most once across
// concurrent callers. A fresh (non-stale) cached value short-circuits.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.hasValue && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	gen := e.gen
	e.fetching = true
	c.mu.Unlock()

	// The flight is keyed on the generation too, so a caller arriving after
	// an invalidation starts a new fetch instead of joining the stale one.
	v, err, _ := c.sf.Do(string(key)+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		return fetch(ctx)
	})

	c.mu.Lock()
	e.fetching = false
	if e.gen != gen {
		// Invalidated while the fetch was in flight: the result predates
		// the event, so hand it to the caller but leave the entry stale.
		c.mu.Unlock()
		return v, err
	}
	if err != nil {
		e.err = err
		c.mu.Unlock()
		c.notify(key)
		return nil, err
	}
	e.value = v
	e.hasValue = true
	e.stale = false
	e.err = nil
	c.mu.Unlock()

	c.snapshot(key, v)
	c.notify(key)
	return v, nil
}

// snapshot best-effort persists a confirmed value.
func (c *Cache) snapshot(key Key, v any) {
	if c.persist == nil {
		return
	}
	if err := c.persist.Set(string(key), v, c.ttl); err != nil {
		slog.Warn("persist query snapshot", "key", key, "error", err)
	}
}

// Fetch is the typed wrapper over Cache.Fetch.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Cached is the typed wrapper over Cache.Get.
func Cached[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Warm seeds key from the persistent snapshot store, decoding into T.
func Warm[T any](c *Cache, persist *cache.Cache, key Key) {
	if persist == nil {
		return
	}
	var v T
	ok, err := persist.Get(string(key), &v)
	if err != nil {
		// A snapshot that no longer decodes would fail every launch;
		// drop it so only this one pays the cost.
		slog.Warn("warm query cache", "key", key, "error", err)
		if err := persist.Delete(string(key)); err != nil {
			slog.Warn("drop bad query snapshot", "key", key, "error", err)
		}
		return
	}
	if ok {
		c.Seed(key, v)
	}
}
