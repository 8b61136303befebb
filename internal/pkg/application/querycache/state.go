package querycache

import (
	"context"
	"fmt"
	"time"
)

type ChangeKind string

const (
	ChangeFetching    ChangeKind = "fetching"
	ChangeFulfilled   ChangeKind = "fulfilled"
	ChangeRejected    ChangeKind = "rejected"
	ChangeEdited      ChangeKind = "edited"
	ChangeUndone      ChangeKind = "undone"
	ChangeInvalidated ChangeKind = "invalidated"
	ChangeEvicted     ChangeKind = "evicted"
	ChangeRestored    ChangeKind = "restored"
)

type Change struct {
	Key      Key        `json:"key"`
	Endpoint string     `json:"endpoint"`
	Kind     ChangeKind `json:"kind"`
	Version  uint64     `json:"version"`
}

type EntryState struct {
	Key         Key
	Endpoint    string
	Tags        []Tag
	Data        any
	HasData     bool
	Status      Status
	Err         error
	Subscribers int
	Version     uint64
	Invalidated bool
	Fetching    bool
	FulfilledAt time.Time
	LastUsedAt  time.Time
}

// QueryState is what a rendering layer needs to draw the result of a read.
type QueryState[T any] struct {
	Data          T      `json:"data"`
	Status        Status `json:"status"`
	IsLoading     bool   `json:"isLoading"`
	IsFetching    bool   `json:"isFetching"`
	IsSuccess     bool   `json:"isSuccess"`
	IsError       bool   `json:"isError"`
	IsInvalidated bool   `json:"isInvalidated"`
	Error         error  `json:"-"`
}

// StateOf returns the typed state of the entry for key. Data holds the
// last-known-good value even while a refetch is running or after it failed.
func StateOf[T any](c *Cache, key Key) QueryState[T] {
	s, _ := c.Snapshot(key)

	qs := QueryState[T]{
		Status:        s.Status,
		IsLoading:     s.Fetching && !s.HasData,
		IsFetching:    s.Fetching,
		IsSuccess:     s.Status == StatusFulfilled,
		IsError:       s.Status == StatusRejected,
		IsInvalidated: s.Invalidated,
		Error:         s.Err,
	}

	if s.HasData {
		if v, ok := s.Data.(T); ok {
			qs.Data = v
		}
	}

	return qs
}

// Query is the typed form of Cache.Query.
func Query[T any](ctx context.Context, c *Cache, endpoint string, args any, tags []Tag, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Query(ctx, endpoint, args, tags, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return *new(T), err
	}

	t, ok := v.(T)
	if !ok {
		return *new(T), fmt.Errorf("cached value for %s is %T, not %T", endpoint, v, *new(T))
	}

	return t, nil
}
