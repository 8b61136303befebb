package querycache

import (
	"context"
	"sync"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/google/uuid"
)

// Undo reverses an edit against the value currently in the cache.
type Undo[T any] func(current T) T

// Edit computes the next cached value from the prior one together with the
// exact reverse edit. Edits must not modify prior in place. An edit that
// returns a nil Undo leaves the entry untouched.
type Edit[T any] func(prior T) (T, Undo[T])

// Patch is the record of an optimistic edit applied to one cache entry.
type Patch struct {
	ID      string
	Key     Key
	Applied bool

	cache   *Cache
	version uint64
	undo    func(current any) (any, bool)
	once    sync.Once
}

type UndoResult struct {
	Applied bool
	// Stale is set when another write reached the entry after this patch
	// was applied. The reverse edit is still applied on top of it.
	Stale bool
}

// UpdateQueryData applies edit to the cached value for key. Nothing happens,
// and the returned patch is not applied, when the entry holds no data of type T
// or the edit reports no change.
func UpdateQueryData[T any](c *Cache, key Key, edit Edit[T]) *Patch {
	p := &Patch{ID: uuid.NewString(), Key: key, cache: c}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		c.mu.Unlock()
		return p
	}

	prior, ok := e.data.(T)
	if !ok {
		c.mu.Unlock()
		return p
	}

	next, undo := edit(prior)
	if undo == nil {
		c.mu.Unlock()
		return p
	}

	e.data = next
	e.version++

	p.Applied = true
	p.version = e.version
	p.undo = func(current any) (any, bool) {
		t, ok := current.(T)
		if !ok {
			return current, false
		}
		return undo(t), true
	}

	endpoint := e.endpoint
	c.mu.Unlock()

	c.notify(Change{Key: key, Endpoint: endpoint, Kind: ChangeEdited, Version: p.version})

	return p
}

// Undo applies the reverse edit of the patch. It runs at most once and is not
// cancellable; ctx only carries the logger.
func (p *Patch) Undo(ctx context.Context) UndoResult {
	var result UndoResult

	p.once.Do(func() {
		if !p.Applied {
			return
		}

		c := p.cache
		c.mu.Lock()
		e, ok := c.entries[p.Key]
		if !ok || !e.hasData {
			c.mu.Unlock()
			log := logging.GetFromContext(ctx)
			log.Info().Str("key", string(p.Key)).Msg("entry gone before patch could be undone")
			return
		}

		next, ok := p.undo(e.data)
		if !ok {
			c.mu.Unlock()
			return
		}

		result.Applied = true
		result.Stale = e.version != p.version

		e.data = next
		e.version++
		version := e.version
		endpoint := e.endpoint
		c.mu.Unlock()

		if result.Stale {
			log := logging.GetFromContext(ctx)
			log.Warn().
				Str("key", string(p.Key)).
				Str("patch", p.ID).
				Uint64("patch_version", p.version).
				Uint64("entry_version", version-1).
				Msg("undoing optimistic patch after a newer write to the same entry")
		}

		c.notify(Change{Key: p.Key, Endpoint: endpoint, Kind: ChangeUndone, Version: version})
	})

	return result
}
