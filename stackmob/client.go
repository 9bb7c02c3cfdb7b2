package stackmob

import (
	"context"
	"sync"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/internal/serial"
	isync "github.com/iSamMahoozi/stackmob-sdk-go/internal/sync"
	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// Option is a function type for client options.
type Option func(*Client)

// Client creates requests bound to one session and runs their handlers one
// at a time, in completion order, on a single goroutine.
type Client struct {
	session Session
	http    transport.HTTPClient
	codec   Codec
	logger  Logger
	timeout time.Duration
	secure  bool

	queue    *serial.Queue
	sent     isync.Counter
	inFlight isync.Gauge

	ctx   context.Context
	stop  context.CancelCauseFunc
	mu    sync.Mutex
	wg    sync.WaitGroup
	closed bool
}

// NewClient creates a client for session.
//
// By default:
//   - Requests go through a net/http client that requires TLS 1.2.
//   - Bodies are encoded with JSONCodec.
//   - Each request times out after DefaultTimeout.
//
// Close must be called to stop the handler goroutine.
//
// Panics if session is nil.
func NewClient(session Session, opts ...Option) *Client {
	if session == nil {
		panic("session must not be nil")
	}

	c := &Client{
		session: session,
		codec:   JSONCodec{},
		timeout: DefaultTimeout,
		sent:    isync.NewCounter(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.queue = serial.New(serial.WithPanicHandler(func(v any) {
		if c.logger != nil {
			c.logger.Errorf("stackmob: request handler panicked: %v", v)
		}
	}))
	c.ctx, c.stop = context.WithCancelCause(context.Background())
	return c
}

// WithHTTPClient sets the transport. The default uses net/http.
func WithHTTPClient(h transport.HTTPClient) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithCodec sets the codec for request and response bodies.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout sets the per-request timeout.
// If d is not positive, it defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			d = DefaultTimeout
		}
		c.timeout = d
	}
}

// WithSecure makes new requests use https by default.
func WithSecure(secure bool) Option {
	return func(c *Client) {
		c.secure = secure
	}
}

// Session returns the session requests are bound to.
func (c *Client) Session() Session {
	return c.session
}

// Sent returns the number of requests dispatched so far.
func (c *Client) Sent() uint64 {
	return c.sent.Get()
}

// InFlight returns the number of requests sent but not yet finished.
func (c *Client) InFlight() int64 {
	return c.inFlight.Get()
}

// Close cancels requests still in flight, waits for their handlers to run
// and stops the handler goroutine. Requests sent after Close fail with
// sdkerr.ErrMisuse. Close must not be called from a handler.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stop(errClientClosed)
	c.wg.Wait()
	c.queue.Close()
}

func (c *Client) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	c.sent.Inc()
	c.inFlight.Inc()
	return true
}

func (c *Client) release() {
	c.inFlight.Dec()
	c.wg.Done()
}

func (c *Client) bind(r *Request) *Request {
	r.session = c.session
	r.client = c.http
	r.codec = c.codec
	r.logger = c.logger
	r.timeout = c.timeout
	r.secure = c.secure
	r.owner = c
	return r
}

// Request returns an empty GET request against the object collection.
func (c *Client) Request() *Request {
	return c.bind(NewRequest())
}

// RequestForMethod is RequestForMethod bound to c.
func (c *Client) RequestForMethod(method string) *Request {
	return c.bind(RequestForMethod(method))
}

// RequestForMethodWithVerb is RequestForMethodWithVerb bound to c.
func (c *Client) RequestForMethodWithVerb(method string, verb Verb) *Request {
	return c.bind(RequestForMethodWithVerb(method, verb))
}

// RequestForMethodWithArguments is RequestForMethodWithArguments bound to c.
func (c *Client) RequestForMethodWithArguments(method string, args *Arguments, verb Verb) *Request {
	return c.bind(RequestForMethodWithArguments(method, args, verb))
}

// RequestForMethodWithQuery is RequestForMethodWithQuery bound to c.
func (c *Client) RequestForMethodWithQuery(method string, q *Query, verb Verb) *Request {
	return c.bind(RequestForMethodWithQuery(method, q, verb))
}

// UserRequest returns an empty GET request against the user collection.
func (c *Client) UserRequest() *Request {
	return c.bind(UserRequest())
}

// UserRequestForMethodWithVerb is UserRequestForMethodWithVerb bound to c.
func (c *Client) UserRequestForMethodWithVerb(method string, verb Verb) *Request {
	return c.bind(UserRequestForMethodWithVerb(method, verb))
}

// UserRequestForMethodWithArguments is UserRequestForMethodWithArguments
// bound to c.
func (c *Client) UserRequestForMethodWithArguments(method string, args *Arguments, verb Verb) *Request {
	return c.bind(UserRequestForMethodWithArguments(method, args, verb))
}

// UserRequestForMethodWithQuery is UserRequestForMethodWithQuery bound to c.
func (c *Client) UserRequestForMethodWithQuery(method string, q *Query, verb Verb) *Request {
	return c.bind(UserRequestForMethodWithQuery(method, q, verb))
}

// PushRequestWithArguments returns a push notification request bound to c.
func (c *Client) PushRequestWithArguments(args *Arguments, verb Verb) *Request {
	return c.bind(PushRequestWithArguments(args, verb))
}

// PushRequestForMethod is PushRequestForMethod bound to c.
func (c *Client) PushRequestForMethod(method string, args *Arguments, verb Verb) *Request {
	return c.bind(PushRequestForMethod(method, args, verb))
}
