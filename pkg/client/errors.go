package client

import (
	"errors"
	"fmt"
)

// ErrInvalidBaseURL is returned when the detector URL is not http(s).
var ErrInvalidBaseURL = errors.New("base URL must start with http:// or https://")

// ApplicationError is reported when the detector answers success:false.
type ApplicationError struct {
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "detector reported failure"
	}
	return e.Message
}

// TransportError covers failed requests, unexpected statuses and
// undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is wrapped in a TransportError for non-2xx answers
// without a usable body.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "request returned " + e.Status
	}
	return fmt.Sprintf("request returned %s: %s", e.Status, e.Body)
}
