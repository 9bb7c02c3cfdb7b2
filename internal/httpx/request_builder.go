package httpx

import (
	"net/http"
	"strings"

	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

// RequestBuilder assembles a transport.Request. The query is kept as an
// already-encoded string so that the caller decides the parameter order.
type RequestBuilder struct {
	BaseURL  string
	Path     string
	Method   string
	RawQuery string
	Headers  http.Header
	Body     []byte
}

func NewRequestBuilder(baseURL string) *RequestBuilder {
	return &RequestBuilder{
		BaseURL: baseURL,
		Headers: make(http.Header),
	}
}

func (b *RequestBuilder) WithPath(path string) *RequestBuilder {
	b.Path = path
	return b
}

func (b *RequestBuilder) WithMethod(method string) *RequestBuilder {
	b.Method = method
	return b
}

func (b *RequestBuilder) WithRawQuery(query string) *RequestBuilder {
	b.RawQuery = query
	return b
}

func (b *RequestBuilder) WithHeaders(headers http.Header) *RequestBuilder {
	b.Headers = headers
	return b
}

func (b *RequestBuilder) WithBody(body []byte) *RequestBuilder {
	b.Body = body
	return b
}

// URL joins BaseURL and Path with exactly one slash and appends the query.
func (b *RequestBuilder) URL() string {
	fullURL := strings.TrimSuffix(b.BaseURL, "/")
	if b.Path != "" {
		fullURL += "/" + strings.TrimPrefix(b.Path, "/")
	}
	if b.RawQuery != "" {
		fullURL += "?" + b.RawQuery
	}
	return fullURL
}

func (b *RequestBuilder) Build() *transport.Request {
	return &transport.Request{
		Method:  b.Method,
		FullURL: b.URL(),
		Headers: b.Headers,
		Body:    b.Body,
	}
}
