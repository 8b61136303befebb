package application

import (
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestLoadConfiguration(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(configYaml))
	is.NoErr(err)

	is.Equal(len(cfg.Notifications), 1)
	is.Equal(cfg.Notifications[0].Type, "favmaps.place.rated")
	is.Equal(cfg.Notifications[0].Subscribers[0].Endpoint, "http://reviews:8080/events")

	is.Equal(cfg.Cache.Retention, 30*time.Second)
	is.Equal(cfg.Cache.SnapshotTTL, 24*time.Hour) // default kept
	is.Equal(cfg.Transport.MaxAttempts, 3)
}

func TestEmptyConfigurationHasDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(""))
	is.NoErr(err)
	is.Equal(cfg.Cache.Retention, 60*time.Second)
	is.Equal(cfg.Transport.MaxAttempts, 1)
}

const configYaml string = `
notifications:
  - id: rated
    name: place rated
    type: favmaps.place.rated
    subscribers:
      - endpoint: http://reviews:8080/events
        information:
          - entities:
              - idPattern: ^.+$
cache:
  retention: 30s
transport:
  maxAttempts: 3
  backoff: 100ms
`
