package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConfig struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
	ttl      time.Duration
}

func (c PostgresConfig) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func NewPostgresConfig(host, user, password, port, dbname, sslmode string, ttl time.Duration) PostgresConfig {
	return PostgresConfig{
		host:     host,
		user:     user,
		password: password,
		port:     port,
		dbname:   dbname,
		sslmode:  sslmode,
		ttl:      ttl,
	}
}

func NewPool(ctx context.Context, config PostgresConfig) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, config.ConnStr())
	if err != nil {
		return nil, err
	}

	err = p.Ping(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// PostgresStorage keeps cache snapshots in a table with one JSONB row per
// cache key. Rows older than ttl are ignored when loading.
type PostgresStorage struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgres(ctx context.Context, config PostgresConfig) (*PostgresStorage, error) {
	pool, err := NewPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &PostgresStorage{pool: pool, ttl: config.ttl}, nil
}

func (s *PostgresStorage) Initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cache_snapshots (
			key				TEXT	NOT NULL,
			endpoint		TEXT	NOT NULL,
			args			JSONB	NULL,
			tags			JSONB	NULL,
			data			JSONB	NOT NULL,
			fulfilled_on	timestamp with time zone NOT NULL,
			modified_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_cache_snapshots PRIMARY KEY (key)
		);`)
	return err
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

func (s *PostgresStorage) Save(ctx context.Context, r querycache.Record) error {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, err.Error())
	}

	args := pgx.NamedArgs{
		"key":         string(r.Key),
		"endpoint":    r.Endpoint,
		"args":        nullableJSON(r.Args),
		"tags":        string(tags),
		"data":        string(r.Data),
		"fulfilledOn": r.FulfilledAt,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO cache_snapshots (key, endpoint, args, tags, data, fulfilled_on)
		VALUES (@key, @endpoint, @args, @tags, @data, @fulfilledOn)
		ON CONFLICT ON CONSTRAINT pkey_cache_snapshots
		DO UPDATE SET args=EXCLUDED.args, tags=EXCLUDED.tags, data=EXCLUDED.data, fulfilled_on=EXCLUDED.fulfilled_on, modified_on=NOW();`, args)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, err.Error())
	}

	return nil
}

func (s *PostgresStorage) LoadAll(ctx context.Context) ([]querycache.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, endpoint, args, tags, data, fulfilled_on
		FROM cache_snapshots
		WHERE modified_on > @since`, pgx.NamedArgs{"since": time.Now().Add(-s.ttl)})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, err.Error())
	}
	defer rows.Close()

	log := logging.GetFromContext(ctx)

	records := []querycache.Record{}

	for rows.Next() {
		var key, endpoint string
		var args, tags, data json.RawMessage
		var fulfilledOn time.Time

		if err := rows.Scan(&key, &endpoint, &args, &tags, &data, &fulfilledOn); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrLoadFailed, err.Error())
		}

		r := querycache.Record{
			Key:         querycache.Key(key),
			Endpoint:    endpoint,
			Args:        args,
			Data:        data,
			FulfilledAt: fulfilledOn,
		}

		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &r.Tags); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("ignoring malformed snapshot tags")
			}
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, err.Error())
	}

	return records, nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
