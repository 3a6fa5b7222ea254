package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindInference    Kind = "inference_failure"
	KindExtraction   Kind = "extraction_failure"
	KindSecret       Kind = "secret_failure"
	KindTimeout      Kind = "timeout"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Stable user-facing messages keyed by kind. Internal detail never leaks
// through these.
var userMessages = map[Kind]string{
	KindValidation:   "The request is malformed or missing required fields.",
	KindInference:    "The inference provider could not complete the request.",
	KindExtraction:   "A document could not be read or parsed.",
	KindSecret:       "A required credential is missing or invalid.",
	KindTimeout:      "The operation did not complete in time.",
	KindNotFound:     "The requested resource was not found.",
	KindUnauthorized: "You are not authorized to perform this operation.",
	KindRateLimited:  "Too many requests. Please retry later.",
	KindInternal:     "An internal error occurred.",
}

// Error is the typed error every failure is mapped to before it crosses the
// engine boundary. ErrID is distinct from the request's correlation id: one
// request may carry several errors, each individually traceable.
type Error struct {
	Kind     Kind   `json:"kind"`
	ErrID    string `json:"error_id"`
	Message  string `json:"message"`
	Internal string `json:"-"`
	cause    error
}

func New(kind Kind, internal string) *Error {
	return &Error{
		Kind:     kind,
		ErrID:    uuid.New().String(),
		Message:  userMessages[kind],
		Internal: internal,
	}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Wrap(kind Kind, internal string, cause error) *Error {
	e := New(kind, internal)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Internal, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Internal)
}

func (e *Error) Unwrap() error { return e.cause }

// Classify maps an arbitrary error to a typed one. Already-typed errors pass
// through unchanged; anything unrecognized becomes internal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, "deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(KindTimeout, "operation cancelled", err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429"):
		return Wrap(KindRateLimited, "provider rate limit", err)
	case strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") || strings.Contains(msg, "credential"):
		return Wrap(KindSecret, "credential failure", err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "403"):
		return Wrap(KindUnauthorized, "authorization failure", err)
	case strings.Contains(msg, "gemini") || strings.Contains(msg, "ollama") || strings.Contains(msg, "generate"):
		return Wrap(KindInference, "inference provider failure", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return Wrap(KindTimeout, "operation timed out", err)
	default:
		return Wrap(KindInternal, "unclassified failure", err)
	}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var httpStatus = map[Kind]int{
	KindValidation:   http.StatusBadRequest,
	KindInference:    http.StatusBadGateway,
	KindExtraction:   http.StatusUnprocessableEntity,
	KindSecret:       http.StatusInternalServerError,
	KindTimeout:      http.StatusGatewayTimeout,
	KindNotFound:     http.StatusNotFound,
	KindUnauthorized: http.StatusUnauthorized,
	KindRateLimited:  http.StatusTooManyRequests,
	KindInternal:     http.StatusInternalServerError,
}

// HTTPStatus returns the status code for the error's kind.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Response is the wire shape of an error. Internal and Trace are populated
// only in development mode.
type Response struct {
	Kind          Kind   `json:"kind"`
	ErrorID       string `json:"error_id"`
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
	Internal      string `json:"internal,omitempty"`
	Trace         string `json:"trace,omitempty"`
}

// Render produces the environment-appropriate disclosure of the error.
func (e *Error) Render(development bool, correlationID string) Response {
	resp := Response{
		Kind:          e.Kind,
		ErrorID:       e.ErrID,
		CorrelationID: correlationID,
		Message:       e.Message,
	}
	if development {
		resp.Internal = e.Internal
		if e.cause != nil {
			resp.Trace = e.cause.Error()
		}
	}
	return resp
}
