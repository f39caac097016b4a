package gateway

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrorKind classifies a failed remote call
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindAuthRejected ErrorKind = "auth_rejected"
	KindServer       ErrorKind = "server"
	KindMalformed    ErrorKind = "malformed_response"
)

// Error is returned by every API call. Message is the text shown to the
// caregiver: the backend's own message when it sent one.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a gateway error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}

// backendMessage pulls "message" or "error" out of an error body
func backendMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return ""
	}
	if m := strings.TrimSpace(envelope.Message); m != "" {
		return m
	}
	return strings.TrimSpace(envelope.Error)
}
