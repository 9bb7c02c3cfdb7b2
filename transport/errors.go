package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrDNS is returned when the backend host cannot be resolved.
	ErrDNS = errors.New("dns lookup failed")
	// ErrTLS is returned when the TLS handshake or certificate check fails.
	ErrTLS = errors.New("tls failure")
	// ErrConnTimeout is returned when the connection or read times out.
	ErrConnTimeout = errors.New("connection timeout")
	// ErrConnReset is returned when the peer resets or closes the connection.
	ErrConnReset = errors.New("connection reset")
	// ErrConnRefused is returned when nothing listens on the backend address.
	ErrConnRefused = errors.New("connection refused")
	// ErrNetwork is returned for any other network failure.
	ErrNetwork = errors.New("network issue")
)

// Classify wraps a raw network error with one of the package sentinels.
// Context errors are returned unchanged so callers can tell cancellation
// apart from a failing network. Already classified errors pass through.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err

	case isClassified(err):
		return err

	case isDNSError(err):
		return fmt.Errorf("%w: %v", ErrDNS, err)

	case isTLSError(err):
		return fmt.Errorf("%w: %v", ErrTLS, err)

	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrConnTimeout, err)

	case isRefused(err):
		return fmt.Errorf("%w: %v", ErrConnRefused, err)

	case isReset(err):
		return fmt.Errorf("%w: %v", ErrConnReset, err)

	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}

func isClassified(err error) bool {
	for _, s := range []error{ErrDNS, ErrTLS, ErrConnTimeout, ErrConnReset, ErrConnRefused, ErrNetwork} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) ||
		strings.Contains(err.Error(), "no such host")
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:")
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ETIMEDOUT)
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "connection refused")
}

func isReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		strings.Contains(err.Error(), "reset by peer")
}
