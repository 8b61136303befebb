package webevents

import (
	"testing"

	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/pkg/types"
	"github.com/matryer/is"
)

func TestCacheChangesArePublished(t *testing.T) {
	is := is.New(t)

	var events []string
	var payloads []any
	we := &WebEventsMock{
		PublishFunc: func(event string, data any) error {
			events = append(events, event)
			payloads = append(payloads, data)
			return nil
		},
	}

	CacheChanged(we)(querycache.Change{Key: "getPlaceDetails(\"1\")", Kind: querycache.ChangeEdited})
	id := types.PlaceID("1")
	SelectionChanged(we)(&id)

	is.Equal(events, []string{"cacheChanged", "selectionChanged"})
	is.Equal(payloads[0].(querycache.Change).Kind, querycache.ChangeEdited)
}

func TestPublishMarshalsData(t *testing.T) {
	is := is.New(t)

	we := New()
	defer we.Shutdown()

	is.NoErr(we.Publish("cacheChanged", querycache.Change{Key: "k"}))
	is.True(we.Publish("broken", make(chan int)) != nil)
}
