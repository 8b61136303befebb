package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	url    string
	prefix string
	ttl    time.Duration
}

func NewConfig(url, prefix string, ttl time.Duration) Config {
	return Config{
		url:    url,
		prefix: prefix,
		ttl:    ttl,
	}
}

const DefaultPrefix string = "places:cache:"

var (
	ErrStoreFailed = errors.New("could not store snapshot")
	ErrLoadFailed  = errors.New("could not load snapshots")
)

func NewClient(ctx context.Context, config Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(config.url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// Storage keeps snapshots of fulfilled query cache entries in redis, one
// string value per cache key. Values expire after the configured ttl.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Storage{client: client, prefix: prefix, ttl: ttl}
}

func New(ctx context.Context, config Config) (*Storage, error) {
	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}

	return NewWithClient(client, config.prefix, config.ttl), nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Save(ctx context.Context, r querycache.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, err.Error())
	}

	if err := s.client.Set(ctx, s.prefix+string(r.Key), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, err.Error())
	}

	return nil
}

func (s *Storage) LoadAll(ctx context.Context) ([]querycache.Record, error) {
	log := logging.GetFromContext(ctx)

	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, err.Error())
	}

	if len(keys) == 0 {
		return []querycache.Record{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, err.Error())
	}

	records := make([]querycache.Record, 0, len(values))

	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}

		var r querycache.Record
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("ignoring malformed snapshot")
			continue
		}

		if r.Key == "" {
			r.Key = querycache.Key(strings.TrimPrefix(keys[i], s.prefix))
		}

		records = append(records, r)
	}

	return records, nil
}
