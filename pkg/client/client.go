package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/internal/pkg/infrastructure/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate moq -rm -out transport_mock.go . Transport

// Transport performs a single request against the places backend and returns
// the raw JSON response body.
type Transport interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   any
}

type httpTransport struct {
	baseURL     string
	httpClient  http.Client
	maxAttempts int
	backoff     time.Duration
}

var tracer = otel.Tracer("places-client")

type Option func(*httpTransport)

// WithRetry lets idempotent requests be attempted up to maxAttempts times
// when they fail with a network error or a transient status code.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(t *httpTransport) {
		if maxAttempts > 0 {
			t.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			t.backoff = backoff
		}
	}
}

func WithHTTPClient(c http.Client) Option {
	return func(t *httpTransport) {
		t.httpClient = c
	}
}

func New(baseURL string, opts ...Option) Transport {
	t := &httpTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxAttempts: 1,
		backoff:     200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *httpTransport) Do(ctx context.Context, r Request) (_ json.RawMessage, err error) {
	ctx, span := tracer.Start(ctx, strings.ToLower(r.Method)+"-"+strings.ReplaceAll(r.Path, "/", "-"))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
	span.SetAttributes(attribute.String("http.method", r.Method), attribute.String("places.path", r.Path))

	log := logging.GetFromContext(ctx)

	var body []byte
	if r.Body != nil {
		body, err = json.Marshal(r.Body)
		if err != nil {
			err = fmt.Errorf("failed to marshal request body: %w", err)
			return nil, err
		}
	}

	attempts := 1
	if isIdempotent(r.Method) {
		attempts = t.maxAttempts
	}

	backoff := t.backoff

	for attempt := 1; ; attempt++ {
		var resp json.RawMessage
		resp, err = t.do(ctx, r, body)
		if err == nil {
			return resp, nil
		}

		if attempt >= attempts || !retryable(err) {
			return nil, err
		}

		log.Debug().Err(err).Msgf("attempt %d of %d failed for %s %s", attempt, attempts, r.Method, r.Path)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = &NetworkError{Method: r.Method, Path: r.Path, Err: ctx.Err()}
			return nil, err
		case <-timer.C:
		}

		backoff *= 2
	}
}

func (t *httpTransport) do(ctx context.Context, r Request, body []byte) (json.RawMessage, error) {
	u := t.baseURL + "/" + strings.TrimPrefix(r.Path, "/")
	if len(r.Params) > 0 {
		u += "?" + r.Params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: r.Method, Path: r.Path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: r.Method, Path: r.Path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	return json.RawMessage(respBody), nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead:
		return true
	}
	return false
}

func retryable(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Transient()
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return !errors.Is(ne.Err, context.Canceled) && !errors.Is(ne.Err, context.DeadlineExceeded)
	}

	return false
}
