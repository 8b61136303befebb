package places

import (
	"context"
	"net/http"
	"time"

	"github.com/favmaps/places/internal/pkg/application/events"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/internal/pkg/infrastructure/tracing"
	"github.com/favmaps/places/pkg/client"
	"github.com/favmaps/places/pkg/types"
	"github.com/samber/lo"
)

// Pending is the handle of a write whose optimistic edit has been applied and
// whose request has not necessarily settled yet.
type Pending struct {
	done    chan struct{}
	resp    types.SuccessMessageResponse
	err     error
	patches []*querycache.Patch
}

func newPending(patches ...*querycache.Patch) *Pending {
	return &Pending{
		done:    make(chan struct{}),
		patches: patches,
	}
}

// Done is closed once the request has settled and the cache has been
// invalidated or rolled back.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request settles or ctx is done. Giving up on ctx does
// not cancel the request nor a rollback of the optimistic edit.
func (p *Pending) Wait(ctx context.Context) (types.SuccessMessageResponse, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return types.SuccessMessageResponse{}, ctx.Err()
	}
}

// Optimistic reports whether an edit was applied to a cached read.
func (p *Pending) Optimistic() bool {
	return lo.SomeBy(p.patches, func(patch *querycache.Patch) bool { return patch.Applied })
}

func (p *Pending) settle(resp types.SuccessMessageResponse, err error) {
	p.resp = resp
	p.err = err
	close(p.done)
}

type mutation struct {
	name        string
	request     client.Request
	patches     []*querycache.Patch
	invalidates []querycache.Tag
	event       func() events.Event
}

func (a *placesAPI) RatePlace(ctx context.Context, rating types.SubmittedPlaceRating) *Pending {
	key := querycache.KeyFor(EndpointPlaceDetails, rating.PlaceID)
	patch := querycache.UpdateQueryData(a.cache, key, setUserRating(rating.Rating))

	return a.dispatch(ctx, mutation{
		name: "rate-place",
		request: client.Request{
			Method: http.MethodPut,
			Path:   "places/rate",
			Body:   rating,
		},
		patches:     []*querycache.Patch{patch},
		invalidates: []querycache.Tag{TagPlaceDetails, TagPlaces, TagPlaceDetailsGraphQL, TagPlacesGraphQL},
		event: func() events.Event {
			return &types.PlaceRated{PlaceID: rating.PlaceID, Rating: rating.Rating, Timestamp: time.Now().UTC()}
		},
	})
}

func (a *placesAPI) FavoritePlace(ctx context.Context, data types.SubmittedAddPlaceData) *Pending {
	key := querycache.KeyFor(EndpointVisibleAreaPlaces, data.Bounds())
	patch := querycache.UpdateQueryData(a.cache, key, appendPlace(data.Place))

	return a.dispatch(ctx, mutation{
		name: "favorite-place",
		request: client.Request{
			Method: http.MethodPost,
			Path:   "places/addFavorite",
			Body:   data.Place,
		},
		patches:     []*querycache.Patch{patch},
		invalidates: []querycache.Tag{TagPlaces, TagPlacesGraphQL},
		event: func() events.Event {
			return &types.PlaceFavorited{Place: data.Place, Bounds: data.Bounds(), Timestamp: time.Now().UTC()}
		},
	})
}

// RemovePlace removes the place from the cached list for the given bounds and
// clears the selected place. The selection is cleared whatever place was
// selected, also when it is not the one being removed.
func (a *placesAPI) RemovePlace(ctx context.Context, data types.SubmittedRemovePlaceData) *Pending {
	key := querycache.KeyFor(EndpointVisibleAreaPlaces, data.Bounds())
	patch := querycache.UpdateQueryData(a.cache, key, removePlace(data.PlaceID))

	a.selection.SetSelectedPlace(ctx, nil)

	return a.dispatch(ctx, mutation{
		name: "remove-place",
		request: client.Request{
			Method: http.MethodDelete,
			Path:   "places/remove",
			Body: struct {
				PlaceID types.PlaceID `json:"placeId"`
			}{data.PlaceID},
		},
		patches:     []*querycache.Patch{patch},
		invalidates: []querycache.Tag{TagPlaces, TagPlacesGraphQL},
		event: func() events.Event {
			return &types.PlaceRemoved{PlaceID: data.PlaceID, Bounds: data.Bounds(), Timestamp: time.Now().UTC()}
		},
	})
}

// dispatch sends the request of m in the background. On success the tags of m
// are invalidated, on failure every patch of m is undone.
func (a *placesAPI) dispatch(ctx context.Context, m mutation) *Pending {
	p := newPending(m.patches...)

	ctx = context.WithoutCancel(logFor(ctx, m.name))

	go func() {
		var err error
		ctx, span := tracer.Start(ctx, m.name)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		log := logging.GetFromContext(ctx)

		var raw []byte
		raw, err = a.transport.Do(ctx, m.request)

		var resp types.SuccessMessageResponse
		if err == nil {
			resp, err = decode[types.SuccessMessageResponse](raw)
		}

		if err != nil {
			for _, patch := range m.patches {
				r := patch.Undo(ctx)
				if r.Applied {
					log.Info().Str("key", string(patch.Key)).Bool("stale", r.Stale).Msg("rolled back optimistic update")
				}
			}
			log.Error().Err(err).Msg("request failed")
			p.settle(types.SuccessMessageResponse{}, err)
			return
		}

		a.cache.Invalidate(m.invalidates...)

		if m.event != nil && a.events != nil {
			if sendErr := a.events.Send(ctx, m.event()); sendErr != nil {
				log.Error().Err(sendErr).Msg("could not send place event")
			}
		}

		p.settle(resp, nil)
	}()

	return p
}

func setUserRating(rating int) querycache.Edit[types.PlaceDetails] {
	return func(prior types.PlaceDetails) (types.PlaceDetails, querycache.Undo[types.PlaceDetails]) {
		previous := prior.UserRating

		next := prior
		next.UserRating = &rating

		return next, func(current types.PlaceDetails) types.PlaceDetails {
			current.UserRating = previous
			return current
		}
	}
}

func appendPlace(place types.Place) querycache.Edit[[]types.Place] {
	place.AverageRating = 0

	return func(prior []types.Place) ([]types.Place, querycache.Undo[[]types.Place]) {
		next := append(clonePlaces(prior), place)

		return next, func(current []types.Place) []types.Place {
			_, i, ok := lo.FindLastIndexOf(current, func(p types.Place) bool { return p.ID == place.ID })
			if !ok {
				return current
			}
			return without(current, i)
		}
	}
}

// removePlace removes the first entry with id. When there is none the edit
// reports no change.
func removePlace(id types.PlaceID) querycache.Edit[[]types.Place] {
	return func(prior []types.Place) ([]types.Place, querycache.Undo[[]types.Place]) {
		removed, i, ok := lo.FindIndexOf(prior, func(p types.Place) bool { return p.ID == id })
		if !ok {
			return prior, nil
		}

		return without(prior, i), func(current []types.Place) []types.Place {
			at := i
			if at > len(current) {
				at = len(current)
			}
			next := make([]types.Place, 0, len(current)+1)
			next = append(next, current[:at]...)
			next = append(next, removed)
			return append(next, current[at:]...)
		}
	}
}

func without(places []types.Place, i int) []types.Place {
	next := make([]types.Place, 0, len(places)-1)
	next = append(next, places[:i]...)
	return append(next, places[i+1:]...)
}
