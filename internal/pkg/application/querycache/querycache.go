// Package querycache keeps the results of read operations keyed by endpoint
// and serialized arguments. Entries carry tags that writes invalidate, at most
// one fetch per key is in flight, and cached values can be edited
// optimistically through reversible patches.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusPending       Status = "pending"
	StatusFulfilled     Status = "fulfilled"
	StatusRejected      Status = "rejected"
)

type Tag string

type Key string

// KeyFor builds the cache key of endpoint called with args. Arguments are
// serialized as JSON so structurally equal arguments share an entry.
func KeyFor(endpoint string, args any) Key {
	b, err := json.Marshal(args)
	if err != nil {
		return Key(fmt.Sprintf("%s(%v)", endpoint, args))
	}
	return Key(endpoint + "(" + string(b) + ")")
}

type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	endpoint string
	args     json.RawMessage
	tags     []Tag

	data    any
	hasData bool
	status  Status
	err     error

	subscribers int
	version     uint64
	invalidated bool
	fetches     int

	// generation counts invalidations. A fetch only clears invalidated when
	// no invalidation happened while it was running.
	generation     uint64
	dataGeneration uint64

	fulfilledAt time.Time
	lastUsedAt  time.Time
}

type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	tagIndex  map[Tag]map[Key]struct{}
	inFlight  singleflight.Group
	listeners []func(Change)

	snapshots Snapshotter
	now       func() time.Time
}

type Option func(*Cache)

func WithSnapshotter(s Snapshotter) Option {
	return func(c *Cache) {
		c.snapshots = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key]*entry),
		tagIndex: make(map[Tag]map[Key]struct{}),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// OnChange registers a listener that is called, outside of the cache lock,
// after every change to an entry.
func (c *Cache) OnChange(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Query returns the cached value for endpoint(args) when it is fulfilled and
// not invalidated. Otherwise fetch is called, shared with any concurrent
// caller asking for the same key. Errors from fetch are returned unmodified
// and leave previously cached data in place.
func (c *Cache) Query(ctx context.Context, endpoint string, args any, tags []Tag, fetch FetchFunc) (any, error) {
	key := KeyFor(endpoint, args)

	c.mu.Lock()
	e := c.entryLocked(key, endpoint, args, tags)
	e.lastUsedAt = c.now()
	if e.status == StatusFulfilled && !e.invalidated {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	v, err, shared := c.inFlight.Do(string(key), func() (any, error) {
		return c.fetch(ctx, key, endpoint, args, tags, fetch)
	})
	if shared {
		log := logging.GetFromContext(ctx)
		log.Debug().Str("key", string(key)).Msg("joined in-flight request")
	}

	return v, err
}

func (c *Cache) fetch(ctx context.Context, key Key, endpoint string, args any, tags []Tag, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key, endpoint, args, tags)
	e.fetches++
	if !e.hasData {
		e.status = StatusPending
	}
	generation := e.generation
	c.mu.Unlock()
	c.notify(Change{Key: key, Endpoint: endpoint, Kind: ChangeFetching})

	data, err := fetch(ctx)

	c.mu.Lock()
	e = c.entryLocked(key, endpoint, args, tags)
	e.fetches--
	if err != nil {
		e.status = StatusRejected
		e.err = err
		version := e.version
		c.mu.Unlock()
		c.notify(Change{Key: key, Endpoint: endpoint, Kind: ChangeRejected, Version: version})
		return nil, err
	}

	if e.hasData && generation < e.dataGeneration {
		// a fetch started after ours has already settled
		current := e.data
		c.mu.Unlock()
		return current, nil
	}

	e.data = data
	e.hasData = true
	e.dataGeneration = generation
	e.status = StatusFulfilled
	e.err = nil
	e.invalidated = e.generation != generation
	e.version++
	e.fulfilledAt = c.now()
	version := e.version
	record := Record{Key: key, Endpoint: endpoint, Args: e.args, Tags: e.tags, FulfilledAt: e.fulfilledAt}
	c.mu.Unlock()

	c.notify(Change{Key: key, Endpoint: endpoint, Kind: ChangeFulfilled, Version: version})
	c.save(ctx, record, data)

	return data, nil
}

// entryLocked returns the entry for key, creating it if needed, and indexes
// it under tags. The caller must hold c.mu.
func (c *Cache) entryLocked(key Key, endpoint string, args any, tags []Tag) *entry {
	e, ok := c.entries[key]
	if !ok {
		b, _ := json.Marshal(args)
		e = &entry{
			endpoint:   endpoint,
			args:       b,
			status:     StatusUninitialized,
			lastUsedAt: c.now(),
		}
		c.entries[key] = e
	}

	for _, t := range tags {
		if !lo.Contains(e.tags, t) {
			e.tags = append(e.tags, t)
		}
		keys, ok := c.tagIndex[t]
		if !ok {
			keys = make(map[Key]struct{})
			c.tagIndex[t] = keys
		}
		keys[key] = struct{}{}
	}

	return e
}

// Subscribe registers interest in endpoint(args) and returns the key and a
// function that removes the subscription again. Entries with subscribers are
// never evicted.
func (c *Cache) Subscribe(endpoint string, args any, tags []Tag) (Key, func()) {
	key := KeyFor(endpoint, args)

	c.mu.Lock()
	e := c.entryLocked(key, endpoint, args, tags)
	e.subscribers++
	e.lastUsedAt = c.now()
	c.mu.Unlock()

	var once sync.Once
	return key, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[key]; ok && e.subscribers > 0 {
				e.subscribers--
				e.lastUsedAt = c.now()
			}
		})
	}
}

// Invalidate marks every entry carrying one of tags as invalidated so that the
// next Query for it fetches again. A fetch in flight for such an entry settles
// without making it valid again, and later queries do not join it. It returns
// the affected keys.
func (c *Cache) Invalidate(tags ...Tag) []Key {
	c.mu.Lock()
	var changes []Change
	seen := make(map[Key]struct{})
	for _, t := range lo.Uniq(tags) {
		for key := range c.tagIndex[t] {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			e, ok := c.entries[key]
			if !ok || (e.invalidated && e.fetches == 0) {
				continue
			}
			e.invalidated = true
			e.generation++
			if e.fetches > 0 {
				c.inFlight.Forget(string(key))
			}
			changes = append(changes, Change{Key: key, Endpoint: e.endpoint, Kind: ChangeInvalidated, Version: e.version})
		}
	}
	c.mu.Unlock()

	c.notify(changes...)

	return lo.Map(changes, func(ch Change, _ int) Key { return ch.Key })
}

// Evict removes entries without subscribers that have not been used since
// cutoff and are not being fetched.
func (c *Cache) Evict(cutoff time.Time) []Key {
	c.mu.Lock()
	var changes []Change
	for key, e := range c.entries {
		if e.subscribers > 0 || e.fetches > 0 || !e.lastUsedAt.Before(cutoff) {
			continue
		}
		delete(c.entries, key)
		for _, t := range e.tags {
			delete(c.tagIndex[t], key)
			if len(c.tagIndex[t]) == 0 {
				delete(c.tagIndex, t)
			}
		}
		changes = append(changes, Change{Key: key, Endpoint: e.endpoint, Kind: ChangeEvicted, Version: e.version})
	}
	c.mu.Unlock()

	c.notify(changes...)

	return lo.Map(changes, func(ch Change, _ int) Key { return ch.Key })
}

// Snapshot returns a copy of the state of the entry for key.
func (c *Cache) Snapshot(key Key) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return EntryState{Key: key, Status: StatusUninitialized}, false
	}

	return EntryState{
		Key:         key,
		Endpoint:    e.endpoint,
		Tags:        append([]Tag(nil), e.tags...),
		Data:        e.data,
		HasData:     e.hasData,
		Status:      e.status,
		Err:         e.err,
		Subscribers: e.subscribers,
		Version:     e.version,
		Invalidated: e.invalidated,
		Fetching:    e.fetches > 0,
		FulfilledAt: e.fulfilledAt,
		LastUsedAt:  e.lastUsedAt,
	}, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}

	c.mu.Lock()
	listeners := append([]func(Change){}, c.listeners...)
	c.mu.Unlock()

	for _, ch := range changes {
		for _, fn := range listeners {
			fn(ch)
		}
	}
}
