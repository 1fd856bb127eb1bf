package httputil

import (
	"context"
	"sync"

	"github.com/ozxin/nx-admin/pkg/observability"
)

// LogNotifier reports errors through a logger
type LogNotifier struct {
	Logger *observability.Logger
}

// Notify logs the report message at warn level
func (n LogNotifier) Notify(_ context.Context, err *APIError) {
	n.Logger.WithField("status", err.Status).Warn(err.ReportMessage())
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, err *APIError)

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, err *APIError) {
	f(ctx, err)
}

// RecordingNotifier keeps every notified error. It is used by tests and dry runs.
type RecordingNotifier struct {
	mu     sync.Mutex
	errors []*APIError
}

// Notify records err
func (r *RecordingNotifier) Notify(_ context.Context, err *APIError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// Errors returns the recorded errors
func (r *RecordingNotifier) Errors() []*APIError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*APIError(nil), r.errors...)
}
