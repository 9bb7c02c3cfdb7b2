package stackmob

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/internal/httpx"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/oneshot"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/serial"
	isync "github.com/iSamMahoozi/stackmob-sdk-go/internal/sync"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

const subsys = "stackmob"

// DefaultTimeout bounds every request that does not set its own timeout.
const DefaultTimeout = 30 * time.Second

// Callback receives the outcome of a request. On success result is the
// decoded JSON value (nil for an empty body); on failure it is an error.
type Callback func(success bool, result any)

// Delegate is the hook form of Callback.
type Delegate interface {
	RequestCompleted(r *Request)
}

// Logger is an interface for logging.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

const (
	stateBuilt uint32 = iota
	stateSent
	stateClosed
)

type outcome struct {
	value any
	resp  *transport.Response
	err   error
}

var requestSeq = isync.NewCounter()

// Request describes one call against the backend. Build it with one of the
// constructors, adjust it with the setters, then send it once. Setters fail
// with sdkerr.ErrMisuse after the request has been sent.
type Request struct {
	mu      sync.Mutex
	method  string
	verb    Verb
	args    *Arguments
	headers http.Header
	secure  bool
	scope   Scope
	handler func(*Request)

	session Session
	client  transport.HTTPClient
	codec   Codec
	logger  Logger
	timeout time.Duration
	owner   *Client

	seq      uint64
	state    atomic.Uint32
	gate     *oneshot.Gate[outcome]
	cancelFn context.CancelCauseFunc
}

func newRequest(method string, verb Verb, scope Scope) *Request {
	if !verb.isValid() {
		panic("stackmob: unsupported http verb " + string(verb))
	}
	return &Request{
		method: method,
		verb:   verb,
		scope:  scope,
		codec:  JSONCodec{},
		seq:    requestSeq.Inc(),
		gate:   oneshot.New[outcome](),
	}
}

// NewRequest returns an empty GET request against the object collection.
func NewRequest() *Request {
	return newRequest("", VerbGet, ScopeObject)
}

// RequestForMethod returns a GET request for method.
func RequestForMethod(method string) *Request {
	return newRequest(method, VerbGet, ScopeObject)
}

// RequestForMethodWithVerb returns a request for method without arguments.
//
// Panics if verb is not one of GET, POST, PUT or DELETE.
func RequestForMethodWithVerb(method string, verb Verb) *Request {
	return newRequest(method, verb, ScopeObject)
}

// RequestForMethodWithArguments returns a request carrying args in the query
// string for GET and DELETE, or as a JSON body for POST and PUT.
func RequestForMethodWithArguments(method string, args *Arguments, verb Verb) *Request {
	r := newRequest(method, verb, ScopeObject)
	r.args = args.Clone()
	return r
}

// RequestForMethodWithQuery flattens q into arguments and headers.
func RequestForMethodWithQuery(method string, q *Query, verb Verb) *Request {
	return withQuery(newRequest(method, verb, ScopeObject), q)
}

// UserRequest returns an empty GET request against the user collection.
func UserRequest() *Request {
	return newRequest("", VerbGet, ScopeUser)
}

// UserRequestForMethodWithVerb returns a user-collection request for method
// without arguments.
//
// Panics if verb is not one of GET, POST, PUT or DELETE.
func UserRequestForMethodWithVerb(method string, verb Verb) *Request {
	return newRequest(method, verb, ScopeUser)
}

// UserRequestForMethodWithArguments is RequestForMethodWithArguments against
// the user collection.
func UserRequestForMethodWithArguments(method string, args *Arguments, verb Verb) *Request {
	r := newRequest(method, verb, ScopeUser)
	r.args = args.Clone()
	return r
}

// UserRequestForMethodWithQuery is RequestForMethodWithQuery against the
// user collection.
func UserRequestForMethodWithQuery(method string, q *Query, verb Verb) *Request {
	return withQuery(newRequest(method, verb, ScopeUser), q)
}

// PushRequestWithArguments returns a request for the push notification
// endpoint. args usually carries alert, badge and sound keys; they are
// passed through unchecked.
func PushRequestWithArguments(args *Arguments, verb Verb) *Request {
	return PushRequestForMethod("notifications", args, verb)
}

// PushRequestForMethod targets another push endpoint, such as device
// registration.
func PushRequestForMethod(method string, args *Arguments, verb Verb) *Request {
	r := newRequest(method, verb, ScopePush)
	r.args = args.Clone()
	return r
}

func withQuery(r *Request, q *Query) *Request {
	r.args = q.Arguments()
	r.headers = q.Headers()
	return r
}

// WithSession binds the request to s.
func (r *Request) WithSession(s Session) *Request {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
	return r
}

// WithHTTPClient replaces the transport used to send the request.
func (r *Request) WithHTTPClient(c transport.HTTPClient) *Request {
	r.mu.Lock()
	r.client = c
	r.mu.Unlock()
	return r
}

// WithCodec replaces the JSON codec.
func (r *Request) WithCodec(c Codec) *Request {
	r.mu.Lock()
	r.codec = c
	r.mu.Unlock()
	return r
}

// WithLogger sets the logger for dispatch and completion lines. A nil
// logger is silent.
func (r *Request) WithLogger(l Logger) *Request {
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
	return r
}

// WithTimeout bounds the whole exchange. Zero means DefaultTimeout.
func (r *Request) WithTimeout(d time.Duration) *Request {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
	return r
}

func misuse(op, msg string) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp(op).
		WithKind(sdkerr.ErrMisuse).
		WithMessage(msg)
}

// mutate runs f under the lock if the request has not been sent yet.
func (r *Request) mutate(op string, f func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Load() != stateBuilt {
		return misuse(op, "request already sent")
	}
	f()
	return nil
}

// SetMethod replaces the target method name.
func (r *Request) SetMethod(method string) error {
	return r.mutate("SetMethod", func() { r.method = method })
}

// SetArguments replaces the arguments.
func (r *Request) SetArguments(args *Arguments) error {
	return r.mutate("SetArguments", func() { r.args = args.Clone() })
}

// SetHeaders replaces every header previously set on the request.
func (r *Request) SetHeaders(h http.Header) error {
	return r.mutate("SetHeaders", func() { r.headers = h.Clone() })
}

// SetVerb replaces the HTTP verb. An unsupported verb is rejected with
// sdkerr.ErrValidation.
func (r *Request) SetVerb(v Verb) error {
	if !v.isValid() {
		return sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("SetVerb").
			WithKind(sdkerr.ErrValidation).
			WithMessage("unsupported http verb " + string(v))
	}
	return r.mutate("SetVerb", func() { r.verb = v })
}

// SetSecure selects https for this request.
func (r *Request) SetSecure(secure bool) error {
	return r.mutate("SetSecure", func() { r.secure = secure })
}

// SetUserBased switches between the user and the object collection.
func (r *Request) SetUserBased(userBased bool) error {
	return r.mutate("SetUserBased", func() {
		if userBased {
			r.scope = ScopeUser
		} else if r.scope == ScopeUser {
			r.scope = ScopeObject
		}
	})
}

// SetCallback registers the completion handler used by Send. It replaces a
// delegate set earlier.
func (r *Request) SetCallback(cb Callback) error {
	return r.mutate("SetCallback", func() { r.handler = callbackHandler(cb) })
}

// SetDelegate registers d as the completion handler used by Send. It
// replaces a callback set earlier.
func (r *Request) SetDelegate(d Delegate) error {
	return r.mutate("SetDelegate", func() {
		if d == nil {
			r.handler = nil
			return
		}
		r.handler = d.RequestCompleted
	})
}

func callbackHandler(cb Callback) func(*Request) {
	if cb == nil {
		return nil
	}
	return func(r *Request) {
		o, _ := r.gate.Outcome()
		if o.err != nil {
			cb(false, o.err)
			return
		}
		cb(true, o.value)
	}
}

// Method returns the target method name.
func (r *Request) Method() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method
}

// Verb returns the HTTP verb.
func (r *Request) Verb() Verb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verb
}

// Arguments returns a copy of the arguments. A request without arguments
// returns an empty mapping.
func (r *Request) Arguments() *Arguments {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.args == nil {
		return NewArguments()
	}
	return r.args.Clone()
}

// Headers returns a copy of the headers set on the request. Session and
// default headers are not included; see Resolve.
func (r *Request) Headers() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers.Clone()
}

// IsSecure reports whether the request is sent over https.
func (r *Request) IsSecure() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secure
}

// Scope returns the collection the request targets.
func (r *Request) Scope() Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scope
}

// UserBased reports whether the request targets the user collection.
func (r *Request) UserBased() bool {
	return r.Scope() == ScopeUser
}

// Seq is a process-wide sequence number used in log lines.
func (r *Request) Seq() uint64 {
	return r.seq
}

// BaseURL returns the session's API root, or "" without a session.
func (r *Request) BaseURL() string {
	r.mu.Lock()
	s, secure := r.session, r.secure
	r.mu.Unlock()
	if s == nil {
		return ""
	}
	return s.BaseURL(secure)
}

// ResourcePath is the session prefix for the scope followed by the method.
func (r *Request) ResourcePath() string {
	r.mu.Lock()
	s, scope, method := r.session, r.scope, r.method
	r.mu.Unlock()
	if s == nil {
		return method
	}
	return s.ResourcePrefix(scope) + method
}

// URL returns the resolved URL including the query string, or "" when it
// cannot be resolved.
func (r *Request) URL() string {
	u, err := r.resolveURL()
	if err != nil {
		return ""
	}
	return u
}

func (r *Request) resolveURL() (string, error) {
	b, err := r.builder()
	if err != nil {
		return "", err
	}
	return b.URL(), nil
}

// builder resolves the URL part of the request.
func (r *Request) builder() (*httpx.RequestBuilder, error) {
	r.mu.Lock()
	s, verb, args := r.session, r.verb, r.args
	r.mu.Unlock()
	if s == nil {
		return nil, misuse("Resolve", "request has no session")
	}

	b := httpx.NewRequestBuilder(r.BaseURL()).
		WithMethod(verb.String()).
		WithPath(r.ResourcePath())

	if BodyPlacement(verb) == PlacementQuery {
		q, err := args.Encode()
		if err != nil {
			return nil, sdkerr.NewSDKError().
				WithSubsys(subsys).
				WithOp("Resolve").
				WithKind(sdkerr.ErrSerialization).
				WithCause(err)
		}
		b.WithRawQuery(q)
	}
	return b, nil
}

// PostBody returns the encoded body. GET and DELETE requests have none.
func (r *Request) PostBody() ([]byte, error) {
	r.mu.Lock()
	verb, args, codec := r.verb, r.args, r.codec
	r.mu.Unlock()

	if BodyPlacement(verb) != PlacementBody {
		return nil, nil
	}
	body, err := codec.Marshal(args)
	if err != nil {
		if sdkerr.KindOf(err) == nil {
			err = sdkerr.NewSDKError().
				WithSubsys(subsys).
				WithOp("PostBody").
				WithKind(sdkerr.ErrSerialization).
				WithCause(err)
		}
		return nil, err
	}
	return body, nil
}

// Resolve computes the wire request: URL, body and merged headers. Header
// precedence from lowest to highest is session defaults, Content-Type and
// Accept, headers set on the request, then the session's credential headers.
func (r *Request) Resolve() (*transport.Request, error) {
	b, err := r.builder()
	if err != nil {
		return nil, err
	}
	body, err := r.PostBody()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s, explicit := r.session, r.headers
	r.mu.Unlock()

	h := make(http.Header)
	if d, ok := s.(DefaultHeaderer); ok {
		copyHeaders(h, d.DefaultHeaders())
	}
	if len(body) > 0 {
		h.Set("Content-Type", "application/json")
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	copyHeaders(h, explicit)

	sec, err := s.HeadersFor(r)
	if err != nil {
		if sdkerr.KindOf(err) == nil {
			err = sdkerr.NewSDKError().
				WithSubsys(subsys).
				WithOp("HeadersFor").
				WithKind(sdkerr.ErrConfiguration).
				WithCause(err)
		}
		return nil, err
	}
	copyHeaders(h, sec)

	return b.WithHeaders(h).WithBody(body).Build(), nil
}

// copyHeaders overwrites each key of dst present in src.
func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
}

// Finished reports whether the outcome has been decided.
func (r *Request) Finished() bool {
	return r.gate.Delivered()
}

// Cancelled reports whether the request ended by cancellation.
func (r *Request) Cancelled() bool {
	o, ok := r.gate.Outcome()
	return ok && sdkerr.KindOf(o.err) == sdkerr.ErrCancelled
}

// Result returns the decoded response on success.
func (r *Request) Result() any {
	o, _ := r.gate.Outcome()
	return o.value
}

// Err returns the failure, or nil while pending or on success.
func (r *Request) Err() error {
	o, _ := r.gate.Outcome()
	return o.err
}

// HTTPResponse returns the raw response, if one arrived.
func (r *Request) HTTPResponse() *transport.Response {
	o, _ := r.gate.Outcome()
	return o.resp
}

// StatusCode returns the HTTP status, or 0 when no response arrived.
func (r *Request) StatusCode() int {
	if resp := r.HTTPResponse(); resp != nil {
		return resp.StatusCode
	}
	return 0
}

// Wait blocks until the outcome is decided or ctx is done. The handler may
// still be running when Wait returns.
func (r *Request) Wait(ctx context.Context) (any, error) {
	o, err := r.gate.Await(ctx)
	if err != nil {
		return nil, err
	}
	return o.value, o.err
}

// queue is where handlers run; nil runs them on the dispatch goroutine.
func (r *Request) queue() *serial.Queue {
	if r.owner == nil {
		return nil
	}
	return r.owner.queue
}
