package querycache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
)

// Record is the persisted form of a fulfilled entry.
type Record struct {
	Key         Key             `json:"key"`
	Endpoint    string          `json:"endpoint"`
	Args        json.RawMessage `json:"args"`
	Tags        []Tag           `json:"tags"`
	Data        json.RawMessage `json:"data"`
	FulfilledAt time.Time       `json:"fulfilledAt"`
}

//go:generate moq -rm -out snapshotter_mock.go . Snapshotter

type Snapshotter interface {
	Save(ctx context.Context, r Record) error
	LoadAll(ctx context.Context) ([]Record, error)
}

type Decoder func(data json.RawMessage) (any, error)

// DecodeJSON returns a Decoder producing values of type T.
func DecodeJSON[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (c *Cache) save(ctx context.Context, r Record, data any) {
	if c.snapshots == nil {
		return
	}

	log := logging.GetFromContext(ctx)

	b, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("key", string(r.Key)).Msg("could not marshal cache entry snapshot")
		return
	}
	r.Data = b

	if err := c.snapshots.Save(ctx, r); err != nil {
		log.Error().Err(err).Str("key", string(r.Key)).Msg("could not save cache entry snapshot")
	}
}

// Restore loads persisted entries as fulfilled but invalidated, so their data
// is visible right away and the next Query refetches. Records for endpoints
// without a decoder, or for keys that already hold data, are skipped.
func (c *Cache) Restore(ctx context.Context, decoders map[string]Decoder) (int, error) {
	if c.snapshots == nil {
		return 0, nil
	}

	records, err := c.snapshots.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	log := logging.GetFromContext(ctx)

	var changes []Change

	for _, r := range records {
		decode, ok := decoders[r.Endpoint]
		if !ok {
			continue
		}

		data, err := decode(r.Data)
		if err != nil {
			log.Warn().Err(err).Str("key", string(r.Key)).Msg("skipping undecodable snapshot")
			continue
		}

		c.mu.Lock()
		if e, ok := c.entries[r.Key]; ok && e.hasData {
			c.mu.Unlock()
			continue
		}

		e := c.entryLocked(r.Key, r.Endpoint, r.Args, r.Tags)
		e.args = r.Args
		e.data = data
		e.hasData = true
		e.status = StatusFulfilled
		e.invalidated = true
		e.fulfilledAt = r.FulfilledAt
		e.version++
		changes = append(changes, Change{Key: r.Key, Endpoint: r.Endpoint, Kind: ChangeRestored, Version: e.version})
		c.mu.Unlock()
	}

	c.notify(changes...)

	return len(changes), nil
}
