package webevents

import (
	"encoding/json"
	"net/http"

	gosse "github.com/alexandrevicenzi/go-sse"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/pkg/types"
)

const channel string = "/api/v0/events"

//go:generate moq -rm -out webevents_mock.go . WebEvents

// WebEvents pushes server-sent events to connected rendering layers so they
// can re-read the state of the queries they display.
type WebEvents interface {
	Handler() http.Handler
	Shutdown()
	Publish(event string, data any) error
}

type webEvents struct {
	s *gosse.Server
}

func New() WebEvents {
	return &webEvents{
		s: gosse.NewServer(&gosse.Options{}),
	}
}

func (we *webEvents) Handler() http.Handler {
	return we.s
}

func (we *webEvents) Shutdown() {
	we.s.Shutdown()
}

func (we *webEvents) Publish(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	message := gosse.NewMessage("", string(b), event)
	we.s.SendMessage(channel, message)

	return nil
}

// CacheChanged forwards a query cache change as a "cacheChanged" event.
func CacheChanged(we WebEvents) func(querycache.Change) {
	return func(ch querycache.Change) {
		_ = we.Publish("cacheChanged", ch)
	}
}

// SelectionChanged forwards selection updates as a "selectionChanged" event.
func SelectionChanged(we WebEvents) func(*types.PlaceID) {
	return func(id *types.PlaceID) {
		_ = we.Publish("selectionChanged", struct {
			PlaceID *types.PlaceID `json:"placeId"`
		}{id})
	}
}
