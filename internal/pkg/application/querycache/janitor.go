package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
)

type Janitor interface {
	Start(ctx context.Context)
	Stop()
}

type janitor struct {
	cache     *Cache
	retention time.Duration
	interval  time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewJanitor returns a worker that every interval evicts entries nobody has
// subscribed to or used for longer than retention.
func NewJanitor(c *Cache, retention, interval time.Duration) Janitor {
	return &janitor{
		cache:     c,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.run(ctx)
}

func (j *janitor) Stop() {
	close(j.done)
	j.wg.Wait()
}

func (j *janitor) run(ctx context.Context) {
	defer j.wg.Done()

	log := logging.GetFromContext(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := j.cache.Evict(j.cache.now().Add(-j.retention))
			if len(evicted) > 0 {
				log.Debug().Msgf("evicted %d unused cache entries", len(evicted))
			}
		}
	}
}
