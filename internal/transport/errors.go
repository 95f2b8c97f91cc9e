package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindTransport covers unreachable backends, non-2xx statuses and undecodable bodies.
	KindTransport Kind = iota
	// KindServer is a 2xx response whose body carries an "error" field.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned by every failed Client call.
type Error struct {
	Endpoint string
	Kind     Kind
	Status   int
	Cause    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Endpoint, e.Kind, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// serverMessage is the cause of a KindServer error; its text is the backend's message.
type serverMessage string

func (m serverMessage) Error() string { return string(m) }

// IsServerError reports whether err is a backend-reported error.
func IsServerError(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindServer
}

// Reason returns the most specific human readable cause of err.
// For backend-reported errors that is the backend's own message.
func Reason(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Cause != nil {
		return te.Cause.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
