package httpx

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type DefaultHTTPClient struct {
	client httpDoer
}

// NewDefaultHTTPClient returns a client on a cloned default transport that
// refuses anything below TLS 1.2. Request deadlines come from the context.
func NewDefaultHTTPClient() *DefaultHTTPClient {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	tr := base.Clone()
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.MinVersion = tls.VersionTLS12

	return &DefaultHTTPClient{
		client: &http.Client{Transport: tr},
	}
}

func (d *DefaultHTTPClient) Do(ctx context.Context, r *transport.Request) (*transport.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.FullURL, r.BodyReader())
	if err != nil {
		return nil, err
	}

	if r.Headers != nil {
		for k, vs := range r.Headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, transport.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transport.Classify(err)
	}

	return &transport.Response{
		Body:       body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}
