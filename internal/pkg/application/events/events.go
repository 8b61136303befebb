package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"
)

const eventSource string = "github.com/favmaps/places"

// Event is a confirmed change to the places of a user.
type Event interface {
	ContentType() string
	EventType() string
	Subject() string
}

//go:generate moq -rm -out events_mock.go . EventSender

type EventSender interface {
	Send(ctx context.Context, e Event) error
}

type eventSender struct {
	subscribers map[string][]subscriber
	now         func() time.Time
}

type subscriber struct {
	endpoint string
	patterns []*regexp.Regexp
}

func New(cfg *Config) (EventSender, error) {
	e := &eventSender{
		subscribers: make(map[string][]subscriber),
		now:         time.Now,
	}

	if cfg == nil {
		return e, nil
	}

	for _, n := range cfg.Notifications {
		for _, s := range n.Subscribers {
			sub := subscriber{endpoint: s.Endpoint}
			for _, info := range s.Information {
				for _, entity := range info.Entities {
					re, err := regexp.Compile(entity.IDPattern)
					if err != nil {
						return nil, fmt.Errorf("invalid id pattern %q for %s: %w", entity.IDPattern, n.ID, err)
					}
					sub.patterns = append(sub.patterns, re)
				}
			}
			e.subscribers[n.Type] = append(e.subscribers[n.Type], sub)
		}
	}

	return e, nil
}

func (s subscriber) wants(subject string) bool {
	if len(s.patterns) == 0 {
		return true
	}
	for _, re := range s.patterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}

func (e *eventSender) Send(ctx context.Context, evt Event) error {
	subscribers, ok := e.subscribers[evt.EventType()]
	if !ok || len(subscribers) == 0 {
		return nil
	}

	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return err
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetTime(e.now().UTC())
	event.SetSource(eventSource)
	event.SetType(evt.EventType())
	event.SetSubject(evt.Subject())

	err = event.SetData(evt.ContentType(), evt)
	if err != nil {
		return err
	}

	logger := logging.GetFromContext(ctx)

	var errs []error

	for _, s := range subscribers {
		if !s.wants(evt.Subject()) {
			continue
		}

		ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.endpoint)

		result := c.Send(ctxWithTarget, event)
		if cloudevents.IsUndelivered(result) || errors.Is(result, unix.ECONNREFUSED) {
			logger.Error().Err(result).Msgf("failed to send %s to %s", evt.EventType(), s.endpoint)
			errs = append(errs, fmt.Errorf("%s: %w", s.endpoint, result))
		}
	}

	return errors.Join(errs...)
}

type EntityInfo struct {
	IDPattern string `yaml:"idPattern"`
}

type RegistrationInfo struct {
	Entities []EntityInfo `yaml:"entities"`
}

type SubscriberConfig struct {
	Endpoint    string             `yaml:"endpoint"`
	Information []RegistrationInfo `yaml:"information"`
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
