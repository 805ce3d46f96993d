package api

import (
	"errors"
	"fmt"

	"github.com/lamim/dialprobe/internal/config"
)

// ErrorKind classifies failures of a gateway call
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfiguration: missing or placeholder credential, unusable endpoint settings
	KindConfiguration
	// KindTransport: DNS, connection, timeout, unreadable or malformed body
	KindTransport
	// KindHTTP: any non-200 status
	KindHTTP
	// KindEmptyResponse: 200 without the expected choices
	KindEmptyResponse
	// KindInvalidInput: caller supplied arguments that cannot form a request
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindEmptyResponse:
		return "empty_response"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Sentinels for use with errors.Is; each matches every *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrHTTP          = &Error{Kind: KindHTTP}
	ErrEmptyResponse = &Error{Kind: KindEmptyResponse}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
)

// Error is returned by every Client operation
type Error struct {
	Kind ErrorKind
	// Op names the failing step, e.g. "chat completion" or "list models"
	Op string
	// StatusCode and Body are set for KindHTTP
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	prefix := e.Kind.String() + " error"
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}

	if e.Kind == KindHTTP {
		return fmt.Sprintf("%s: HTTP %d: %s", prefix, e.StatusCode, e.Body)
	}
	if msg == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.StatusCode == 0 && t.Err == nil && t.Message == ""
}

// KindOf classifies any error produced while configuring or calling the gateway
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if config.IsConfigurationError(err) {
		return KindConfiguration
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		return KindInvalidInput
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
