package orchestration

import (
	"context"
	"errors"
	"strings"

	"github.com/koscakluka/ema-lens/core/transport"
)

var (
	ErrEmptyInput          = errors.New("nothing to send")
	ErrRequestInFlight     = errors.New("a chat request is already in flight")
	ErrTranslationDisabled = errors.New("speech requires translation to be enabled")
	ErrNoScreen            = errors.New("no screen configured")
)

const (
	messageUnavailable = "Service temporarily unavailable"
	messageRateLimited = "Rate limited"
	messageTimeout     = "Request timed out"
	messageNetwork     = "Connection failed"
)

// TurnError is a failure reduced to what the user is shown.
type TurnError struct {
	Kind      transport.ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *TurnError) Error() string { return e.Message }
func (e *TurnError) Unwrap() error { return e.Err }

// Classify maps err onto the closed set of failures the user can act on.
// Structured transport errors are classified by kind, anything else by
// inspecting its text.
func Classify(err error) *TurnError {
	if err == nil {
		return nil
	}

	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr
	}

	kind := transport.KindOther
	message := err.Error()

	var transportErr *transport.Error
	switch {
	case errors.As(err, &transportErr):
		kind = transportErr.Kind
		if transportErr.Message != "" && transportErr.StatusCode == 0 && transportErr.Err == nil {
			message = transportErr.Message
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = transport.KindTimeout
	default:
		kind = classifyText(message)
	}

	switch kind {
	case transport.KindUnavailable:
		message = messageUnavailable
	case transport.KindRateLimited:
		message = messageRateLimited
	case transport.KindTimeout:
		message = messageTimeout
	case transport.KindNetwork:
		message = messageNetwork
	}

	return &TurnError{Kind: kind, Message: message, Retryable: kind.Transient(), Err: err}
}

var networkKeywords = []string{
	"network",
	"connection",
	"failed to fetch",
	"no such host",
	"dial tcp",
	"eof",
}

func classifyText(text string) transport.ErrorKind {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "503"):
		return transport.KindUnavailable
	case strings.Contains(text, "429"):
		return transport.KindRateLimited
	case strings.Contains(text, "timeout"), strings.Contains(text, "timed out"):
		return transport.KindTimeout
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(text, keyword) {
			return transport.KindNetwork
		}
	}
	return transport.KindOther
}
