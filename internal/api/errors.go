package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies where the message of an Error came from.
type Kind string

const (
	// KindServer means the backend sent a structured message.
	KindServer Kind = "server"
	// KindValidation means the message is the first entry of a validation-errors list.
	KindValidation Kind = "validation"
	// KindFallback means the backend sent no usable body and the operation default was used.
	KindFallback Kind = "fallback"
	// KindTransport means the request never produced a response.
	KindTransport Kind = "transport"
)

// Error is the single error value produced at the API boundary.
// Message is always safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Status is the HTTP status code, zero for transport failures.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the backend rejected the bearer token.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NormalizeError turns a failed response into an Error.
// A structured message wins, then the first validation entry, then a bare
// JSON string body, then the fallback message.
func NormalizeError(status int, body []byte, fallback string) *Error {
	e := &Error{
		Kind:    KindFallback,
		Message: fallback,
		Status:  status,
	}

	var structured errorBody
	if err := json.Unmarshal(body, &structured); err == nil {
		if msg := strings.TrimSpace(structured.Message); msg != "" {
			e.Kind = KindServer
			e.Message = msg
			return e
		}
		if len(structured.Errors) > 0 {
			first := structured.Errors[0]
			msg := first.Msg
			if msg == "" {
				msg = first.Message
			}
			if msg = strings.TrimSpace(msg); msg != "" {
				e.Kind = KindValidation
				e.Message = msg
				return e
			}
		}
		return e
	}

	var plain string
	if err := json.Unmarshal(body, &plain); err == nil {
		if plain = strings.TrimSpace(plain); plain != "" {
			e.Kind = KindServer
			e.Message = plain
		}
	}
	return e
}

func transportError(fallback string, err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: fallback,
		Err:     err,
	}
}
