package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/matryer/is"
)

func testSetup(t *testing.T, flags flagMap) (*is.I, *httptest.Server) {
	is := is.New(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/places":
			w.Write([]byte(`[{"id":"1","name":"Cafe","averageRating":4}]`))
		case "/places/details":
			w.Write([]byte(`{"id":"1","name":"Cafe","userRating":null,"creatorUsername":"ada"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)

	flags[backendURL] = backend.URL + "/"

	cfg, err := loadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	is.NoErr(err)
	cfg.Cache.SweepInterval = time.Hour

	gw, err := initialize(context.Background(), flags, cfg)
	is.NoErr(err)
	t.Cleanup(gw.shutdown)

	server := httptest.NewServer(gw.router)
	t.Cleanup(server.Close)

	return is, server
}

func TestHealth(t *testing.T) {
	is, server := testSetup(t, defaultFlags())

	resp, _ := testRequest(is, server, http.MethodGet, "/health")
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestPlacesAreFetchedFromBackend(t *testing.T) {
	is, server := testSetup(t, defaultFlags())

	resp, body := testRequest(is, server, http.MethodGet, "/api/v0/places?neLat=2&neLng=2&swLat=1&swLng=1")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `[{"id":"1","name":"Cafe","address":"","lat":0,"lng":0,"averageRating":4}]`)
}

func TestSnapshotsAreWrittenToRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	flags := defaultFlags()
	flags[redisURL] = "redis://" + mr.Addr()

	is, server := testSetup(t, flags)

	resp, _ := testRequest(is, server, http.MethodGet, "/api/v0/places/details?placeId=1")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(mr.Exists(`places:cache:getPlaceDetails("1")`))
}

func testRequest(is *is.I, ts *httptest.Server, method, path string) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}
