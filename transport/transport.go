package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// HTTPClient is the network collaborator used to dispatch requests.
// Users may inject any custom implementation (e.g., mocks or wrappers).
type HTTPClient interface {
	// Do executes an HTTP request. The implementation must respect the context:
	// cancelling ctx is how an in-flight request is aborted.
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is a fully resolved HTTP request: method, URL, headers and body.
type Request struct {
	Method  string
	FullURL string
	Headers http.Header
	Body    []byte
}

// BodyReader returns a fresh reader over Body, or nil when there is no body.
func (r *Request) BodyReader() io.Reader {
	if len(r.Body) == 0 {
		return nil
	}
	return bytes.NewReader(r.Body)
}

// Response is the fully-buffered result of an HTTP request.
type Response struct {
	Body       []byte
	StatusCode int
	Headers    http.Header
}

// IsSuccess reports whether the status code is in the 2xx class.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type internalHTTPClientAdapter struct {
	client *http.Client
}

// NewHTTPClient wraps a standard *http.Client into an HTTPClient.
// If nil is provided, a default http.Client is used.
func NewHTTPClient(stdClient *http.Client) HTTPClient {
	if stdClient == nil {
		stdClient = &http.Client{}
	}
	return &internalHTTPClientAdapter{client: stdClient}
}

// Do executes the request using the underlying standard http.Client.
func (a *internalHTTPClientAdapter) Do(ctx context.Context, req *Request) (*Response, error) {
	stdReq, err := http.NewRequestWithContext(ctx, req.Method, req.FullURL, req.BodyReader())
	if err != nil {
		return nil, err
	}
	if req.Headers != nil {
		stdReq.Header = req.Headers.Clone()
	}

	stdResp, err := a.client.Do(stdReq)
	if err != nil {
		return nil, Classify(err)
	}
	defer stdResp.Body.Close()

	bodyBytes, err := io.ReadAll(stdResp.Body)
	if err != nil {
		return nil, Classify(err)
	}

	return &Response{
		Body:       bodyBytes,
		StatusCode: stdResp.StatusCode,
		Headers:    stdResp.Header,
	}, nil
}
