package llm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// ErrorKind partitions failures into the categories the retry
// orchestrator understands. Kinds decide retryability; messages are
// for humans.
type ErrorKind string

const (
	ErrorKindNetwork        ErrorKind = "network"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindRateLimit      ErrorKind = "rate_limit"
	ErrorKindServerError    ErrorKind = "server_error"
	ErrorKindAuth           ErrorKind = "auth"
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
	ErrorKindInvalidOption  ErrorKind = "invalid_option"
	ErrorKindContentFilter  ErrorKind = "content_filter"
	ErrorKindAPIError       ErrorKind = "api_error"
	ErrorKindCancelled      ErrorKind = "cancelled"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind may be retried.
// Unrecognized kinds are permanent.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindNetwork, ErrorKindTimeout, ErrorKindRateLimit, ErrorKindServerError:
		return true
	}
	return false
}

// ErrorInfo describes one failed call.
type ErrorInfo struct {
	Type       ErrorKind `json:"type"`
	Message    string    `json:"message"`
	Retryable  bool      `json:"retryable"`
	StatusCode int       `json:"status_code,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewError builds an ErrorInfo with retryability derived from the
// kind.
func NewError(kind ErrorKind, message string) *ErrorInfo {
	return &ErrorInfo{Type: kind, Message: message, Retryable: kind.Retryable()}
}

// NewStatusError is NewError with the originating HTTP status
// attached.
func NewStatusError(kind ErrorKind, statusCode int, message string) *ErrorInfo {
	info := NewError(kind, message)
	info.StatusCode = statusCode
	return info
}

// ClassifyStatus maps a non-200 HTTP response to an ErrorInfo. The
// message is taken from the body's error payload when one is present.
// Statuses outside the known set fail closed as permanent unknown
// errors.
func ClassifyStatus(statusCode int, body []byte) *ErrorInfo {
	message := errorMessageFromBody(statusCode, body)
	switch statusCode {
	case http.StatusTooManyRequests:
		return NewStatusError(ErrorKindRateLimit, statusCode, message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return NewStatusError(ErrorKindServerError, statusCode, message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewStatusError(ErrorKindAuth, statusCode, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return NewStatusError(ErrorKindInvalidRequest, statusCode, message)
	}
	return NewStatusError(ErrorKindUnknown, statusCode, message)
}

// errorMessageFromBody extracts error.message from a JSON error
// payload, accepting both the object form {"error": {"message": ...}}
// and the bare string form {"error": "..."}.
func errorMessageFromBody(statusCode int, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
	}
	snippet := body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return fmt.Sprintf("Error (HTTP %d): %s", statusCode, snippet)
}

// Classify maps a transport-level error to an ErrorInfo. Cancellation
// and deadline expiry are recognized ahead of the net checks so that
// a cancelled dial is reported as cancelled, not as a network fault.
// Anything unrecognized fails closed as a permanent unknown error.
func Classify(err error) *ErrorInfo {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return NewError(ErrorKindCancelled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorKindTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorKindTimeout, err.Error())
	}
	if isNetworkError(err) {
		return NewError(ErrorKindNetwork, err.Error())
	}
	return NewError(ErrorKindUnknown, err.Error())
}

func isNetworkError(err error) bool {
	var (
		opErr   *net.OpError
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		recErr  tls.RecordHeaderError
		sysErr  syscall.Errno
		urlErr  *url.Error
	)
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.As(err, &certErr),
		errors.As(err, &recErr),
		errors.As(err, &sysErr):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.As(err, &urlErr):
		// The HTTP client wraps dial, TLS and read failures in a
		// *url.Error; whatever reaches this point is connection-level.
		return true
	}
	return false
}
