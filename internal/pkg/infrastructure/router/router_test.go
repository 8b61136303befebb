package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"
)

func TestCorsPreflight(t *testing.T) {
	is := is.New(t)

	r := New("router-test", "http://localhost:3000")
	r.Put("/x", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	res := httptest.NewRecorder()

	r.ServeHTTP(res, req)

	is.Equal(res.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")
}

func TestPanicsAreRecovered(t *testing.T) {
	is := is.New(t)

	r := New("router-test")
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/panic", nil))

	is.Equal(res.Code, http.StatusInternalServerError)
}
