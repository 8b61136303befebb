package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/favmaps/places/internal/pkg/application/places"
	"github.com/favmaps/places/internal/pkg/application/selection"
	"github.com/favmaps/places/internal/pkg/application/webevents"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/internal/pkg/infrastructure/tracing"
	"github.com/favmaps/places/pkg/client"
	"github.com/favmaps/places/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("places-gateway/api")

var errMissingParameter = errors.New("missing parameter")

func RegisterHandlers(ctx context.Context, router *chi.Mux, svc places.Places, sel selection.Store, we webevents.WebEvents) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log := logging.GetFromContext(ctx)

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/places", func(r chi.Router) {
			r.Get("/", getVisibleAreaPlacesHandler(log, svc))
			r.Get("/details", getPlaceDetailsHandler(log, svc))
			r.Put("/rate", ratePlaceHandler(log, svc))
			r.Post("/favorite", favoritePlaceHandler(log, svc))
			r.Delete("/remove", removePlaceHandler(log, svc))
		})

		r.Get("/selection", getSelectionHandler(log, sel))
		r.Put("/selection", setSelectionHandler(log, sel))

		if we != nil {
			r.Handle("/events", we.Handler())
		}
	})

	return router
}

func getVisibleAreaPlacesHandler(log zerolog.Logger, svc places.Places) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-visible-area-places")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		bounds, err := boundsFromQuery(r)
		if err != nil {
			requestLogger.Debug().Err(err).Msg("bad bounds")
			writeJSON(w, http.StatusBadRequest, newErrorResponse(err))
			return
		}

		variant := variantFromQuery(r)

		if r.URL.Query().Get("view") == "state" {
			writeJSON(w, http.StatusOK, svc.VisibleAreaPlacesState(bounds, variant))
			return
		}

		var result []types.Place
		if variant == places.GraphQL {
			result, err = svc.GetVisibleAreaPlacesGraphQL(ctx, bounds)
		} else {
			result, err = svc.GetVisibleAreaPlaces(ctx, bounds)
		}
		if err != nil {
			requestLogger.Error().Err(err).Str("bounds", bounds.String()).Msg("unable to fetch visible area places")
			writeJSON(w, statusFor(err), newErrorResponse(err))
			return
		}

		if result == nil {
			result = []types.Place{}
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func getPlaceDetailsHandler(log zerolog.Logger, svc places.Places) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-place-details")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		placeID := types.PlaceID(r.URL.Query().Get("placeId"))
		if placeID == "" {
			err = fmt.Errorf("%w: placeId", errMissingParameter)
			writeJSON(w, http.StatusBadRequest, newErrorResponse(err))
			return
		}

		requestLogger = requestLogger.With().Str("place_id", string(placeID)).Logger()

		variant := variantFromQuery(r)

		if r.URL.Query().Get("view") == "state" {
			writeJSON(w, http.StatusOK, svc.PlaceDetailsState(placeID, variant))
			return
		}

		var details types.PlaceDetails
		if variant == places.GraphQL {
			details, err = svc.GetPlaceDetailsGraphQL(ctx, placeID)
		} else {
			details, err = svc.GetPlaceDetails(ctx, placeID)
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch place details")
			writeJSON(w, statusFor(err), newErrorResponse(err))
			return
		}

		writeJSON(w, http.StatusOK, details)
	}
}

func ratePlaceHandler(log zerolog.Logger, svc places.Places) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "rate-place")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var rating types.SubmittedPlaceRating
		if err = readJSON(r, &rating); err != nil || rating.PlaceID == "" {
			requestLogger.Debug().Err(err).Msg("bad rating")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a placeId and rating are required"})
			return
		}

		err = settle(ctx, w, svc.RatePlace(ctx, rating))
	}
}

func favoritePlaceHandler(log zerolog.Logger, svc places.Places) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "favorite-place")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var data types.SubmittedAddPlaceData
		if err = readJSON(r, &data); err != nil || data.Place.ID == "" {
			requestLogger.Debug().Err(err).Msg("bad place")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a place with an id is required"})
			return
		}

		err = settle(ctx, w, svc.FavoritePlace(ctx, data))
	}
}

func removePlaceHandler(log zerolog.Logger, svc places.Places) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "remove-place")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var data types.SubmittedRemovePlaceData
		if err = readJSON(r, &data); err != nil || data.PlaceID == "" {
			requestLogger.Debug().Err(err).Msg("bad removal")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a placeId is required"})
			return
		}

		err = settle(ctx, w, svc.RemovePlace(ctx, data))
	}
}

func getSelectionHandler(log zerolog.Logger, sel selection.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-selection")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		placeID, ok := sel.SelectedPlace(ctx)
		if !ok {
			requestLogger.Debug().Msg("no place selected")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, selectionBody{PlaceID: &placeID})
	}
}

func setSelectionHandler(log zerolog.Logger, sel selection.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "set-selection")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := tracing.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var body selectionBody
		if err = readJSON(r, &body); err != nil {
			requestLogger.Debug().Err(err).Msg("bad selection")
			writeJSON(w, http.StatusBadRequest, newErrorResponse(err))
			return
		}

		sel.SetSelectedPlace(ctx, body.PlaceID)

		w.WriteHeader(http.StatusNoContent)
	}
}

// settle waits for a pending write and reports its outcome. A request that is
// abandoned by the caller still settles in the background.
func settle(ctx context.Context, w http.ResponseWriter, p *places.Pending) error {
	resp, err := p.Wait(ctx)
	if err != nil {
		log := logging.GetFromContext(ctx)
		log.Error().Err(err).Bool("optimistic", p.Optimistic()).Msg("write failed")
		writeJSON(w, statusFor(err), newErrorResponse(err))
		return err
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case client.IsServerError(err), client.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func boundsFromQuery(r *http.Request) (types.GeoBounds, error) {
	q := r.URL.Query()

	values := make(map[string]float64, 4)
	for _, name := range []string{"neLat", "neLng", "swLat", "swLng"} {
		s := q.Get(name)
		if s == "" {
			return types.GeoBounds{}, fmt.Errorf("%w: %s", errMissingParameter, name)
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.GeoBounds{}, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		values[name] = f
	}

	return types.GeoBounds{
		NE: types.LatLng{Lat: values["neLat"], Lng: values["neLng"]},
		SW: types.LatLng{Lat: values["swLat"], Lng: values["swLng"]},
	}, nil
}

func variantFromQuery(r *http.Request) places.Variant {
	if r.URL.Query().Get("transport") == "graphql" {
		return places.GraphQL
	}
	return places.REST
}

func readJSON(r *http.Request, v any) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
