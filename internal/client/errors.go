package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies an APIError
type ErrorKind int

const (
	// KindTransport means no usable response arrived (connection refused,
	// timeout, cancelled context)
	KindTransport ErrorKind = iota
	// KindServer means the server answered with a non-2xx status
	KindServer
	// KindDecode means a 2xx body was not the expected JSON
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is a failed API call
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string // server supplied message, may be empty
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindServer && e.Message != "":
		return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
	case e.Kind == KindServer:
		return fmt.Sprintf("server error (status %d)", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether the server rejected the session
func (e *APIError) IsUnauthorized() bool {
	return e.Kind == KindServer && (e.StatusCode == 401 || e.StatusCode == 403)
}

// MessageOr returns the server's message carried by err, or fallback when
// there is none
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func newServerError(status int, body []byte) *APIError {
	apiErr := &APIError{Kind: KindServer, StatusCode: status}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = envelope.Message
	}
	return apiErr
}
