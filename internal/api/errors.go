package api

import (
	"errors"
	"fmt"
)

// GenericMessage is shown when the service gave no usable explanation.
const GenericMessage = "Something went wrong. Please try again."

// Kind classifies why a remote call failed.
type Kind int

const (
	// TransportFailure means no response was received.
	TransportFailure Kind = iota + 1
	// ApplicationFailure is a non-success status.
	ApplicationFailure
	// MalformedResponse is a success status whose payload lacks required fields.
	MalformedResponse
	// AuthenticationRequired means the credential is missing, expired or rejected.
	AuthenticationRequired
)

func (k Kind) String() string {
	switch k {
	case TransportFailure:
		return "transport failure"
	case ApplicationFailure:
		return "application failure"
	case MalformedResponse:
		return "malformed response"
	case AuthenticationRequired:
		return "authentication required"
	default:
		return "unknown failure"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an api error anywhere in err's chain, or zero.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsAuthRequired reports whether the caller should send the user back to login.
func IsAuthRequired(err error) bool {
	return KindOf(err) == AuthenticationRequired
}

// UserMessage picks the text to display next to the control that failed.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return GenericMessage
	}
	switch {
	case apiErr.Message != "":
		return apiErr.Message
	case apiErr.Kind == AuthenticationRequired:
		return "Your session has expired. Please log in again."
	default:
		return GenericMessage
	}
}
