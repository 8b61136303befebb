package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/matryer/is"
	"github.com/redis/go-redis/v9"
)

func testSetup(t *testing.T) (*is.I, context.Context, *miniredis.Miniredis, *Storage) {
	is := is.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return is, ctx, mr, NewWithClient(client, "", time.Hour)
}

func TestSaveAndLoadAll(t *testing.T) {
	is, ctx, mr, s := testSetup(t)

	err := s.Save(ctx, querycache.Record{
		Key:      querycache.KeyFor("getPlaceDetails", "1"),
		Endpoint: "getPlaceDetails",
		Args:     []byte(`"1"`),
		Tags:     []querycache.Tag{"PlaceDetails"},
		Data:     []byte(`{"id":"1","name":"Cafe"}`),
	})
	is.NoErr(err)
	is.True(mr.Exists(`places:cache:getPlaceDetails("1")`))

	records, err := s.LoadAll(ctx)
	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(records[0].Endpoint, "getPlaceDetails")
	is.Equal(string(records[0].Data), `{"id":"1","name":"Cafe"}`)
}

func TestLoadAllIgnoresOtherKeysAndMalformedValues(t *testing.T) {
	is, ctx, mr, s := testSetup(t)

	mr.Set("unrelated", "value")
	mr.Set(DefaultPrefix+"broken", "{not json")

	records, err := s.LoadAll(ctx)
	is.NoErr(err)
	is.Equal(len(records), 0)
}

func TestSnapshotsExpire(t *testing.T) {
	is, ctx, mr, s := testSetup(t)

	is.NoErr(s.Save(ctx, querycache.Record{Key: "k", Endpoint: "e", Data: []byte(`1`)}))
	mr.FastForward(2 * time.Hour)

	records, err := s.LoadAll(ctx)
	is.NoErr(err)
	is.Equal(len(records), 0)
}

func TestNewPingsServer(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := New(ctx, NewConfig("redis://"+mr.Addr(), "test:", time.Minute))
	is.NoErr(err)
	defer s.Close()

	_, err = New(ctx, NewConfig("not a url", "", time.Minute))
	is.True(err != nil)
}

func TestCacheIsRestoredFromSnapshots(t *testing.T) {
	is, ctx, _, s := testSetup(t)

	fetches := 0
	fetch := func(ctx context.Context) ([]string, error) {
		fetches++
		return []string{"a", "b"}, nil
	}

	first := querycache.New(querycache.WithSnapshotter(s))
	_, err := querycache.Query(ctx, first, "list", 1, []querycache.Tag{"List"}, fetch)
	is.NoErr(err)

	second := querycache.New(querycache.WithSnapshotter(s))
	n, err := second.Restore(ctx, map[string]querycache.Decoder{"list": querycache.DecodeJSON[[]string]()})
	is.NoErr(err)
	is.Equal(n, 1)

	state := querycache.StateOf[[]string](second, querycache.KeyFor("list", 1))
	is.Equal(state.Data, []string{"a", "b"})
	is.True(state.IsInvalidated)

	_, err = querycache.Query(ctx, second, "list", 1, []querycache.Tag{"List"}, fetch)
	is.NoErr(err)
	is.Equal(fetches, 2)
}
