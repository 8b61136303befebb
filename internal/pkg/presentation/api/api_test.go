package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/favmaps/places/internal/pkg/application/places"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/application/selection"
	"github.com/favmaps/places/internal/pkg/application/webevents"
	"github.com/favmaps/places/internal/pkg/infrastructure/router"
	"github.com/favmaps/places/pkg/client"
	"github.com/favmaps/places/pkg/types"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func testSetup(t *testing.T, do func(ctx context.Context, req client.Request) (json.RawMessage, error)) (*is.I, *httptest.Server, *client.TransportMock, *selection.Memory) {
	is := is.New(t)
	ctx := context.Background()

	tr := &client.TransportMock{DoFunc: do}
	sel := selection.New()
	svc := places.New(tr, querycache.New(), sel, nil)

	we := &webevents.WebEventsMock{
		HandlerFunc: func() http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		},
	}

	r := RegisterHandlers(ctx, router.New("places-gateway-test"), svc, sel, we)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return is, ts, tr, sel
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	is.NoErr(err)

	return resp, string(b)
}

func respondWith(body string) func(context.Context, client.Request) (json.RawMessage, error) {
	return func(context.Context, client.Request) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}
}

func TestHealth(t *testing.T) {
	is, ts, _, _ := testSetup(t, respondWith(`{}`))

	resp, _ := testRequest(is, ts, http.MethodGet, "/health", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestGetVisibleAreaPlaces(t *testing.T) {
	is, ts, tr, _ := testSetup(t, respondWith(`[{"id":"1","name":"Cafe","averageRating":4}]`))

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/places?neLat=2&neLng=2&swLat=1&swLng=1", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	var result []types.Place
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(len(result), 1)
	is.Equal(result[0].Name, "Cafe")

	is.Equal(tr.DoCalls()[0].Req.Path, "places")
	is.Equal(tr.DoCalls()[0].Req.Params.Get("neLat"), "2")
}

func TestGetVisibleAreaPlacesOverGraphQL(t *testing.T) {
	is, ts, tr, _ := testSetup(t, respondWith(`{"data":{"visibleAreaPlaces":[{"place":{"id":"1"},"averageRating":3}]}}`))

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/places?neLat=2&neLng=2&swLat=1&swLng=1&transport=graphql", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"averageRating":3`))
	is.Equal(tr.DoCalls()[0].Req.Path, "graphql")
}

func TestBadBoundsAreRejected(t *testing.T) {
	is, ts, tr, _ := testSetup(t, respondWith(`[]`))

	resp, _ := testRequest(is, ts, http.MethodGet, "/api/v0/places?neLat=2&neLng=x&swLat=1&swLng=1", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, _ = testRequest(is, ts, http.MethodGet, "/api/v0/places?neLat=2", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, _ = testRequest(is, ts, http.MethodGet, "/api/v0/places/details", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	is.Equal(len(tr.DoCalls()), 0)
}

func TestStateViewDoesNotFetch(t *testing.T) {
	is, ts, tr, _ := testSetup(t, respondWith(`[]`))

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/places?neLat=2&neLng=2&swLat=1&swLng=1&view=state", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"status":"uninitialized"`))
	is.Equal(len(tr.DoCalls()), 0)
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	is, ts, _, _ := testSetup(t, func(context.Context, client.Request) (json.RawMessage, error) {
		return nil, &client.ServerError{StatusCode: http.StatusInternalServerError, Body: "oops"}
	})

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/places/details?placeId=1", nil)
	is.Equal(resp.StatusCode, http.StatusBadGateway)
	is.True(strings.Contains(body, `"statusCode":500`))
}

func TestRatePlace(t *testing.T) {
	is, ts, tr, _ := testSetup(t, respondWith(`{"message":"Rating saved"}`))

	resp, body := testRequest(is, ts, http.MethodPut, "/api/v0/places/rate", strings.NewReader(`{"placeId":"1","rating":5}`))
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"message":"Rating saved"}`)

	req := tr.DoCalls()[0].Req
	is.Equal(req.Method, http.MethodPut)
	is.Equal(req.Body.(types.SubmittedPlaceRating).Rating, 5)
}

func TestFavoritePlaceFailureIsBadGateway(t *testing.T) {
	is, ts, _, _ := testSetup(t, func(context.Context, client.Request) (json.RawMessage, error) {
		return nil, &client.ServerError{StatusCode: http.StatusConflict, Body: "exists"}
	})

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/places/favorite", strings.NewReader(`{"place":{"id":"2"},"ne":{"lat":2,"lng":2},"sw":{"lat":1,"lng":1}}`))
	is.Equal(resp.StatusCode, http.StatusBadGateway)

	resp, _ = testRequest(is, ts, http.MethodPost, "/api/v0/places/favorite", strings.NewReader(`{"place":{}}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestRemovePlaceClearsSelection(t *testing.T) {
	is, ts, tr, sel := testSetup(t, respondWith(`{"message":"Place removed"}`))

	resp, _ := testRequest(is, ts, http.MethodPut, "/api/v0/selection", strings.NewReader(`{"placeId":"7"}`))
	is.Equal(resp.StatusCode, http.StatusNoContent)

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/selection", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"placeId":"7"}`)

	resp, _ = testRequest(is, ts, http.MethodDelete, "/api/v0/places/remove", strings.NewReader(`{"placeId":"1","ne":{"lat":2,"lng":2},"sw":{"lat":1,"lng":1}}`))
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(tr.DoCalls()[0].Req.Path, "places/remove")

	_, ok := sel.SelectedPlace(context.Background())
	is.True(!ok)

	resp, _ = testRequest(is, ts, http.MethodGet, "/api/v0/selection", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestEventsAreServed(t *testing.T) {
	is, ts, _, _ := testSetup(t, respondWith(`{}`))

	resp, _ := testRequest(is, ts, http.MethodGet, "/api/v0/events", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestSelectionHandlersUseRequestContext(t *testing.T) {
	is := is.New(t)

	sel := &selection.StoreMock{
		SelectedPlaceFunc: func(ctx context.Context) (types.PlaceID, bool) {
			return "", false
		},
		SetSelectedPlaceFunc: func(ctx context.Context, id *types.PlaceID) {
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v0/selection", strings.NewReader(`{"placeId":null}`))
	res := httptest.NewRecorder()
	setSelectionHandler(zerolog.Nop(), sel).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusNoContent)
	is.Equal(len(sel.SetSelectedPlaceCalls()), 1)
	is.True(sel.SetSelectedPlaceCalls()[0].ID == nil)
	is.True(sel.SetSelectedPlaceCalls()[0].Ctx != req.Context()) // carries the request logger

	req = httptest.NewRequest(http.MethodPut, "/api/v0/selection", strings.NewReader(`{`))
	res = httptest.NewRecorder()
	setSelectionHandler(zerolog.Nop(), sel).ServeHTTP(res, req)
	is.Equal(res.Code, http.StatusBadRequest)

	req = httptest.NewRequest(http.MethodGet, "/api/v0/selection", nil)
	res = httptest.NewRecorder()
	getSelectionHandler(zerolog.Nop(), sel).ServeHTTP(res, req)
	is.Equal(res.Code, http.StatusNoContent)
	is.Equal(len(sel.SelectedPlaceCalls()), 1)
}
