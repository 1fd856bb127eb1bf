package httputil

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind classifies an API failure
type Kind string

const (
	// KindCanceled means the caller canceled the request
	KindCanceled Kind = "canceled"
	// KindFault is a network or transport failure, including timeouts
	KindFault Kind = "fault"
	// KindServer is a non-2xx response
	KindServer Kind = "server"
	// KindForeign is a 2xx response that is not an API envelope
	KindForeign Kind = "foreign"
)

// MessageForeign is the message of KindForeign errors
const MessageForeign = "not a recognized API response"

// maxBodyMessage caps error messages taken from non-JSON bodies
const maxBodyMessage = 128

// APIError is the single error shape returned for failed API calls
type APIError struct {
	Kind    Kind
	Code    int
	Message string
	// Status is the HTTP status, zero when no response was received
	Status int
	// Path is the request path with query and fragment
	Path  string
	Cause error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, status %d, code %d)", e.Message, e.Kind, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsCanceled reports whether the request was canceled by the caller
func (e *APIError) IsCanceled() bool {
	return e.Kind == KindCanceled
}

// IsSessionExpired reports whether the server rejected the session
func (e *APIError) IsSessionExpired() bool {
	return e.Kind == KindServer && e.Status == http.StatusUnauthorized
}

// ReportMessage renders the three-line user notification
func (e *APIError) ReportMessage() string {
	status := fmt.Sprintf("%d %s", e.Status, StatusText(e.Status))
	return strings.Join([]string{
		html.EscapeString(e.Message),
		fmt.Sprintf("at status (%s)", status),
		fmt.Sprintf("at settle (%s)", html.EscapeString(e.Path)),
	}, "\n")
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsSessionExpired reports whether err carries a 401 from the API
func IsSessionExpired(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsSessionExpired()
}

var statusTexts = map[int]string{
	http.StatusBadRequest:              "Bad request",
	http.StatusUnauthorized:            "Session expired",
	http.StatusForbidden:               "Access denied",
	http.StatusNotFound:                "Request address error",
	http.StatusRequestTimeout:          "Request timeout",
	http.StatusInternalServerError:     "Internal server error",
	http.StatusNotImplemented:          "Service not implemented",
	http.StatusBadGateway:              "Gateway error",
	http.StatusServiceUnavailable:      "Service unavailable",
	http.StatusGatewayTimeout:          "Gateway timeout",
	http.StatusHTTPVersionNotSupported: "HTTP version not supported",
}

// StatusText describes an HTTP status for notifications
func StatusText(code int) string {
	if text, ok := statusTexts[code]; ok {
		return text
	}
	return http.StatusText(code)
}

// Truncate shortens s to at most max runes, ending with indicator when cut
func Truncate(s string, max int, indicator string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(indicator)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + indicator
}
