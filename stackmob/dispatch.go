package stackmob

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/internal/httpx"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

var (
	errCancelCause   = errors.New("cancelled by caller")
	errClientClosed  = errors.New("client closed")
	defaultTransport = sync.OnceValue(func() transport.HTTPClient {
		return httpx.NewDefaultHTTPClient()
	})
)

// SendWithCallback registers cb and sends the request. It returns r so the
// caller can keep it for Cancel. cb may be nil to keep a handler registered
// earlier.
//
// Errors detected before anything goes on the wire are returned here and
// cb is not called: sending twice, a missing session, or arguments that
// cannot be encoded. Every later outcome reaches cb exactly once.
func (r *Request) SendWithCallback(cb Callback) (*Request, error) {
	if r.state.Load() != stateBuilt {
		return r, misuse("Send", "request already sent")
	}

	wire, err := r.Resolve()
	if err != nil {
		return r, err
	}

	r.mu.Lock()
	if r.state.Load() != stateBuilt {
		r.mu.Unlock()
		return r, misuse("Send", "request already sent")
	}
	if cb != nil {
		r.handler = callbackHandler(cb)
	}

	parent := context.Background()
	if r.owner != nil {
		if !r.owner.acquire() {
			r.mu.Unlock()
			return r, misuse("Send", "client is closed")
		}
		parent = r.owner.ctx
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := r.client
	if client == nil {
		client = defaultTransport()
	}

	base, cancel := context.WithCancelCause(parent)
	r.cancelFn = cancel
	r.state.Store(stateSent)
	r.mu.Unlock()

	r.debugf("stackmob: seq=%d send %s %s", r.seq, wire.Method, wire.FullURL)
	go r.dispatch(base, cancel, timeout, client, wire)
	return r, nil
}

// Send dispatches the request using the callback or delegate registered
// earlier. Without one, the outcome is only observable through Wait and the
// accessors.
func (r *Request) Send() error {
	_, err := r.SendWithCallback(nil)
	return err
}

// Cancel aborts the request. If the outcome is not decided yet the handler
// receives an error of kind sdkerr.ErrCancelled; a response arriving later
// is dropped. Cancelling a request that was never sent closes it, so a
// later Send fails. Cancel after completion does nothing.
func (r *Request) Cancel() {
	r.mu.Lock()
	switch r.state.Load() {
	case stateBuilt:
		r.state.Store(stateClosed)
		r.mu.Unlock()
		r.complete(outcome{err: cancelledError("request cancelled before send")})
	case stateSent:
		cancel := r.cancelFn
		r.mu.Unlock()
		r.complete(outcome{err: cancelledError("request cancelled")})
		cancel(errCancelCause)
	default:
		r.mu.Unlock()
	}
}

func cancelledError(msg string) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp("Cancel").
		WithKind(sdkerr.ErrCancelled).
		WithMessage(msg)
}

type doResult struct {
	resp *transport.Response
	err  error
}

func (r *Request) dispatch(base context.Context, cancel context.CancelCauseFunc, timeout time.Duration, client transport.HTTPClient, wire *transport.Request) {
	defer func() {
		cancel(nil)
		if r.owner != nil {
			r.owner.release()
		}
	}()

	ctx, stop := context.WithTimeout(base, timeout)
	defer stop()

	ch := make(chan doResult, 1)
	go func() {
		resp, err := client.Do(ctx, wire)
		ch <- doResult{resp: resp, err: err}
	}()

	var o outcome
	select {
	case res := <-ch:
		if res.err != nil && ctx.Err() != nil {
			o = contextOutcome(ctx)
		} else {
			o = r.interpret(res.resp, res.err)
		}
	case <-ctx.Done():
		o = contextOutcome(ctx)
	}

	r.complete(o)
}

func contextOutcome(ctx context.Context) outcome {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, errClientClosed):
		return outcome{err: cancelledError(errClientClosed.Error())}
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(cause, errCancelCause):
		return outcome{err: sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("Send").
			WithKind(sdkerr.ErrTimeout).
			WithCause(ctx.Err())}
	default:
		return outcome{err: cancelledError("request cancelled")}
	}
}

// interpret maps a transport result to an outcome.
func (r *Request) interpret(resp *transport.Response, err error) outcome {
	if err != nil {
		return outcome{err: sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("Send").
			WithKind(sdkerr.ErrTransport).
			WithCause(err)}
	}
	if resp == nil {
		return outcome{err: sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("Send").
			WithKind(sdkerr.ErrTransport).
			WithMessage("transport returned no response")}
	}
	if !resp.IsSuccess() {
		return outcome{resp: resp, err: sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("Send").
			WithKind(sdkerr.ErrHTTP).
			WithCause(sdkerr.NewHTTPError(resp.StatusCode, resp.Body))}
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return outcome{resp: resp}
	}

	r.mu.Lock()
	codec := r.codec
	r.mu.Unlock()

	v, err := codec.Unmarshal(resp.Body)
	if err != nil {
		return outcome{resp: resp, err: sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("Send").
			WithKind(sdkerr.ErrResponseParse).
			WithCause(err)}
	}
	return outcome{value: v, resp: resp}
}

// complete records o if no outcome has been recorded yet and hands the
// request to its handler. It reports whether o was recorded.
//
// The outcome is logged between Claim and Publish, so nothing is written
// to the logger once Wait callers have been released.
func (r *Request) complete(o outcome) bool {
	if !r.gate.Claim() {
		return false
	}

	r.mu.Lock()
	r.state.Store(stateClosed)
	h := r.handler
	r.mu.Unlock()

	r.logOutcome(o)
	r.gate.Publish(o)

	if h == nil {
		return true
	}

	run := func() { h(r) }
	if q := r.queue(); q == nil || !q.Submit(run) {
		run()
	}
	return true
}

func (r *Request) logOutcome(o outcome) {
	if o.resp != nil {
		r.debugf("stackmob: seq=%d done status=%d ok=%t", r.seq, o.resp.StatusCode, o.err == nil)
	}
	switch {
	case o.err == nil:
	case errors.Is(o.err, sdkerr.ErrCancelled):
		r.debugf("stackmob: seq=%d cancelled: %v", r.seq, o.err)
	default:
		r.errorf("stackmob: seq=%d failed: %v", r.seq, o.err)
	}
}

func (r *Request) debugf(format string, args ...any) {
	if l := r.log(); l != nil {
		l.Debugf(format, args...)
	}
}

func (r *Request) errorf(format string, args ...any) {
	if l := r.log(); l != nil {
		l.Errorf(format, args...)
	}
}

func (r *Request) log() Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}
