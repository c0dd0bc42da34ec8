package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type ErrorKind int

const (
	// KindOther is any failure not covered by the transient kinds. It is not
	// worth retrying without changing the request.
	KindOther ErrorKind = iota
	KindUnavailable
	KindRateLimited
	KindTimeout
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	default:
		return "other"
	}
}

// Transient reports whether a failure of this kind may succeed when the same
// request is sent again.
func (k ErrorKind) Transient() bool {
	return k != KindOther
}

// Error is the structured failure returned by every [Client] call.
type Error struct {
	Kind ErrorKind
	// StatusCode is the HTTP status of the response, zero when no response
	// was received.
	StatusCode int
	// Message is the error text reported by the service, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("non-OK HTTP status: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("non-OK HTTP status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

func statusError(statusCode int, message string) *Error {
	kind := KindOther
	switch statusCode {
	case http.StatusServiceUnavailable:
		kind = KindUnavailable
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = KindTimeout
	}

	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

func requestError(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request timeout", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindOther, Message: "request cancelled", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Message: "request timeout", Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: "error sending request", Err: err}
	}
}
