package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/favmaps/places/internal/pkg/application/events"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/application/selection"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/internal/pkg/infrastructure/tracing"
	"github.com/favmaps/places/pkg/client"
	"github.com/favmaps/places/pkg/types"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("places/api")

const (
	TagPlaces              querycache.Tag = "Places"
	TagPlacesGraphQL       querycache.Tag = "PlacesGraphQL"
	TagPlaceDetails        querycache.Tag = "PlaceDetails"
	TagPlaceDetailsGraphQL querycache.Tag = "PlaceDetailsGraphQL"
)

const (
	EndpointVisibleAreaPlaces        string = "getVisibleAreaPlaces"
	EndpointVisibleAreaPlacesGraphQL string = "getVisibleAreaPlacesGraphQL"
	EndpointPlaceDetails             string = "getPlaceDetails"
	EndpointPlaceDetailsGraphQL      string = "getPlaceDetailsGraphQL"
)

// Variant selects which of the two equivalent backend transports a read uses.
type Variant int

const (
	REST Variant = iota
	GraphQL
)

type Places interface {
	GetVisibleAreaPlaces(ctx context.Context, bounds types.GeoBounds) ([]types.Place, error)
	GetVisibleAreaPlacesGraphQL(ctx context.Context, bounds types.GeoBounds) ([]types.Place, error)
	GetPlaceDetails(ctx context.Context, placeID types.PlaceID) (types.PlaceDetails, error)
	GetPlaceDetailsGraphQL(ctx context.Context, placeID types.PlaceID) (types.PlaceDetails, error)

	RatePlace(ctx context.Context, rating types.SubmittedPlaceRating) *Pending
	FavoritePlace(ctx context.Context, data types.SubmittedAddPlaceData) *Pending
	RemovePlace(ctx context.Context, data types.SubmittedRemovePlaceData) *Pending

	VisibleAreaPlacesState(bounds types.GeoBounds, v Variant) querycache.QueryState[[]types.Place]
	PlaceDetailsState(placeID types.PlaceID, v Variant) querycache.QueryState[types.PlaceDetails]
	SubscribeVisibleAreaPlaces(bounds types.GeoBounds, v Variant) func()
	SubscribePlaceDetails(placeID types.PlaceID, v Variant) func()
}

type placesAPI struct {
	transport client.Transport
	cache     *querycache.Cache
	selection selection.Store
	events    events.EventSender
}

func New(t client.Transport, c *querycache.Cache, s selection.Store, e events.EventSender) Places {
	return &placesAPI{
		transport: t,
		cache:     c,
		selection: s,
		events:    e,
	}
}

// Decoders returns the snapshot decoders for the read endpoints of this package.
func Decoders() map[string]querycache.Decoder {
	return map[string]querycache.Decoder{
		EndpointVisibleAreaPlaces:        querycache.DecodeJSON[[]types.Place](),
		EndpointVisibleAreaPlacesGraphQL: querycache.DecodeJSON[[]types.Place](),
		EndpointPlaceDetails:             querycache.DecodeJSON[types.PlaceDetails](),
		EndpointPlaceDetailsGraphQL:      querycache.DecodeJSON[types.PlaceDetails](),
	}
}

func (a *placesAPI) GetVisibleAreaPlaces(ctx context.Context, bounds types.GeoBounds) (_ []types.Place, err error) {
	ctx, span := tracer.Start(ctx, "get-visible-area-places")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	places, err := querycache.Query(ctx, a.cache, EndpointVisibleAreaPlaces, bounds, []querycache.Tag{TagPlaces},
		func(ctx context.Context) ([]types.Place, error) {
			raw, err := a.transport.Do(ctx, client.Request{
				Method: http.MethodGet,
				Path:   "places",
				Params: boundsParams(bounds),
			})
			if err != nil {
				return nil, err
			}
			return decode[[]types.Place](raw)
		})
	if err != nil {
		return nil, err
	}

	return clonePlaces(places), nil
}

func (a *placesAPI) GetVisibleAreaPlacesGraphQL(ctx context.Context, bounds types.GeoBounds) (_ []types.Place, err error) {
	ctx, span := tracer.Start(ctx, "get-visible-area-places-graphql")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	places, err := querycache.Query(ctx, a.cache, EndpointVisibleAreaPlacesGraphQL, bounds, []querycache.Tag{TagPlacesGraphQL},
		func(ctx context.Context) ([]types.Place, error) {
			raw, err := client.GraphQL(ctx, a.transport, "GetVisibleAreaPlaces", getVisibleAreaPlacesQuery, map[string]any{
				"neLat": bounds.NE.Lat,
				"neLng": bounds.NE.Lng,
				"swLat": bounds.SW.Lat,
				"swLng": bounds.SW.Lng,
			})
			if err != nil {
				return nil, err
			}

			flat, err := FlattenVisibleAreaPlaces(raw)
			if err != nil {
				return nil, err
			}
			return decode[[]types.Place](flat)
		})
	if err != nil {
		return nil, err
	}

	return clonePlaces(places), nil
}

func (a *placesAPI) GetPlaceDetails(ctx context.Context, placeID types.PlaceID) (_ types.PlaceDetails, err error) {
	ctx, span := tracer.Start(ctx, "get-place-details")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	details, err := querycache.Query(ctx, a.cache, EndpointPlaceDetails, placeID, []querycache.Tag{TagPlaceDetails},
		func(ctx context.Context) (types.PlaceDetails, error) {
			raw, err := a.transport.Do(ctx, client.Request{
				Method: http.MethodGet,
				Path:   "places/details",
				Params: url.Values{"placeId": []string{string(placeID)}},
			})
			if err != nil {
				return types.PlaceDetails{}, err
			}
			return decode[types.PlaceDetails](raw)
		})
	if err != nil {
		return types.PlaceDetails{}, err
	}

	return cloneDetails(details), nil
}

func (a *placesAPI) GetPlaceDetailsGraphQL(ctx context.Context, placeID types.PlaceID) (_ types.PlaceDetails, err error) {
	ctx, span := tracer.Start(ctx, "get-place-details-graphql")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	details, err := querycache.Query(ctx, a.cache, EndpointPlaceDetailsGraphQL, placeID, []querycache.Tag{TagPlaceDetailsGraphQL},
		func(ctx context.Context) (types.PlaceDetails, error) {
			raw, err := client.GraphQL(ctx, a.transport, "GetPlaceDetails", getPlaceDetailsQuery, map[string]any{
				"id": placeID,
			})
			if err != nil {
				return types.PlaceDetails{}, err
			}

			flat, err := FlattenPlaceDetails(raw)
			if err != nil {
				return types.PlaceDetails{}, err
			}
			return decode[types.PlaceDetails](flat)
		})
	if err != nil {
		return types.PlaceDetails{}, err
	}

	return cloneDetails(details), nil
}

func (a *placesAPI) VisibleAreaPlacesState(bounds types.GeoBounds, v Variant) querycache.QueryState[[]types.Place] {
	s := querycache.StateOf[[]types.Place](a.cache, querycache.KeyFor(visibleAreaPlacesEndpoint(v), bounds))
	s.Data = clonePlaces(s.Data)
	return s
}

func (a *placesAPI) PlaceDetailsState(placeID types.PlaceID, v Variant) querycache.QueryState[types.PlaceDetails] {
	s := querycache.StateOf[types.PlaceDetails](a.cache, querycache.KeyFor(placeDetailsEndpoint(v), placeID))
	s.Data = cloneDetails(s.Data)
	return s
}

func (a *placesAPI) SubscribeVisibleAreaPlaces(bounds types.GeoBounds, v Variant) func() {
	tag := TagPlaces
	if v == GraphQL {
		tag = TagPlacesGraphQL
	}
	_, unsubscribe := a.cache.Subscribe(visibleAreaPlacesEndpoint(v), bounds, []querycache.Tag{tag})
	return unsubscribe
}

func (a *placesAPI) SubscribePlaceDetails(placeID types.PlaceID, v Variant) func() {
	tag := TagPlaceDetails
	if v == GraphQL {
		tag = TagPlaceDetailsGraphQL
	}
	_, unsubscribe := a.cache.Subscribe(placeDetailsEndpoint(v), placeID, []querycache.Tag{tag})
	return unsubscribe
}

func visibleAreaPlacesEndpoint(v Variant) string {
	if v == GraphQL {
		return EndpointVisibleAreaPlacesGraphQL
	}
	return EndpointVisibleAreaPlaces
}

func placeDetailsEndpoint(v Variant) string {
	if v == GraphQL {
		return EndpointPlaceDetailsGraphQL
	}
	return EndpointPlaceDetails
}

func boundsParams(b types.GeoBounds) url.Values {
	f := func(v float64) []string {
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	}

	return url.Values{
		"neLat": f(b.NE.Lat),
		"neLng": f(b.NE.Lng),
		"swLat": f(b.SW.Lat),
		"swLng": f(b.SW.Lng),
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal response into %T: %w", v, err)
	}
	return v, nil
}

func clonePlaces(p []types.Place) []types.Place {
	if p == nil {
		return nil
	}
	return append(make([]types.Place, 0, len(p)), p...)
}

func cloneDetails(d types.PlaceDetails) types.PlaceDetails {
	if d.UserRating != nil {
		r := *d.UserRating
		d.UserRating = &r
	}
	return d
}

func logFor(ctx context.Context, operation string) context.Context {
	ctx, _ = logging.WithFields(ctx, "operation", operation)
	return ctx
}
