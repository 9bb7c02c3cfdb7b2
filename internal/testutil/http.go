package testutil

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
	"github.com/stretchr/testify/assert"
)

func ExtractQuery(t *testing.T, fullURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(fullURL)
	assert.NoError(t, err)
	return parsed.Query()
}

// RawQuery returns the undecoded query string of fullURL.
func RawQuery(t *testing.T, fullURL string) string {
	t.Helper()
	parsed, err := url.Parse(fullURL)
	assert.NoError(t, err)
	return parsed.RawQuery
}

type FakeHTTPClient struct {
	DoFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

	mu    sync.Mutex
	calls []*transport.Request
}

func (f *FakeHTTPClient) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.DoFunc(ctx, req)
}

// Calls returns the requests received so far.
func (f *FakeHTTPClient) Calls() []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*transport.Request(nil), f.calls...)
}

// Respond returns a client that answers every request with status and body.
func Respond(status int, body string) *FakeHTTPClient {
	return &FakeHTTPClient{
		DoFunc: func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return JSONResponse(status, body), nil
		},
	}
}

func JSONResponse(status int, body string) *transport.Response {
	return &transport.Response{
		StatusCode: status,
		Body:       []byte(body),
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
	}
}

// Gated returns a client that blocks each call until release is closed or
// ctx is done. Once released it answers with status and body.
func Gated(release <-chan struct{}, status int, body string) *FakeHTTPClient {
	return &FakeHTTPClient{
		DoFunc: func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			select {
			case <-release:
				return JSONResponse(status, body), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}
