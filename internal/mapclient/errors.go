package mapclient

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport means the request never produced a response.
	KindTransport Kind = iota
	// KindStatus means the API answered with a non-2xx status.
	KindStatus
	// KindApplication means a 2xx response carried success=false.
	KindApplication
	// KindDecode means the response body was not the expected JSON.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_error"
	case KindStatus:
		return "status_error"
	case KindApplication:
		return "application_error"
	case KindDecode:
		return "decode_error"
	default:
		return "unknown_error"
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	Kind     Kind
	Endpoint string
	Status   int
	// Message is the server-supplied error text, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Endpoint, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the server's message for application-level failures
// and fallback for everything else.
func (e *Error) UserMessage(fallback string) string {
	if e.Kind == KindApplication && strings.TrimSpace(e.Message) != "" {
		return strings.TrimSpace(e.Message)
	}
	return fallback
}

// UserMessage extracts a displayable message from any error returned by the
// client.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(fallback)
	}
	return fallback
}
