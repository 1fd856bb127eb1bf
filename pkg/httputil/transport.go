package httputil

import (
	"net/http"
	"time"

	"github.com/ozxin/nx-admin/pkg/contextkeys"
	"github.com/ozxin/nx-admin/pkg/observability"
)

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Middleware decorates a transport
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base with middlewares. The first middleware runs outermost.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// RequestIDTransport adds an X-Request-ID header to each request that has none
func RequestIDTransport(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = NewRequestID()
			r = r.Clone(r.Context())
			r.Header.Set("X-Request-ID", requestID)
		}
		r = r.WithContext(contextkeys.WithRequestID(r.Context(), requestID))
		return next.RoundTrip(r)
	})
}

// LoggingTransport logs each request at debug level
func LoggingTransport(logger *observability.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if !logger.Enabled(observability.DebugLevel) {
				return next.RoundTrip(r)
			}
			start := time.Now()
			resp, err := next.RoundTrip(r)

			entry := observability.WithTraceContext(r.Context(), logger).WithFields(observability.Fields{
				"request_id": r.Header.Get("X-Request-ID"),
				"method":     r.Method,
				"path":       r.URL.Path,
				"duration":   time.Since(start).String(),
			})
			if err != nil {
				entry.WithError(err).Debug("request failed")
				return nil, err
			}
			entry.WithField("status", resp.StatusCode).Debug("request completed")
			return resp, nil
		})
	}
}
