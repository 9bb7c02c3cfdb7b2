package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/1/app/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"name":"a"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"users_id":"1"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client())
	resp, err := client.Do(context.Background(), &Request{
		Method:  http.MethodPost,
		FullURL: srv.URL + "/api/1/app/users",
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    []byte(`{"name":"a"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.JSONEq(t, `{"users_id":"1"}`, string(resp.Body))
}

func TestNewHTTPClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(nil).Do(ctx, &Request{Method: http.MethodGet, FullURL: srv.URL})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_BodyReader(t *testing.T) {
	assert.Nil(t, (&Request{}).BodyReader())

	r := &Request{Body: []byte("abc")}
	data, err := io.ReadAll(r.BodyReader())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	// each call yields an independent reader
	data, err = io.ReadAll(r.BodyReader())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example.invalid", IsNotFound: true}, ErrDNS},
		{"tls message", errors.New("tls: handshake failure"), ErrTLS},
		{"timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, ErrConnTimeout},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ErrConnRefused},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, ErrConnReset},
		{"unexpected eof", io.ErrUnexpectedEOF, ErrConnReset},
		{"other", errors.New("something odd"), ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.Equal(t, context.Canceled, Classify(context.Canceled))

	once := Classify(errors.New("tls: bad record"))
	assert.Equal(t, once, Classify(once))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
