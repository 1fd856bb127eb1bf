// Package observability provides structured logging and Prometheus metrics for the console.
//
// # Overview
//
// This package centralizes the console's observability: a JSON logger built on log/slog, OTLP
// trace export, and the client-side metrics recorded around API calls, logins and route installation.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("path", "v2/admin/users").Info("request sent")
//
// Context-aware logging:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).WithError(err).Warn("request failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewClientMetrics(registry)
//	metrics.ObserveRequest("GET", observability.OutcomeOK, elapsed)
//
// A console process is short-lived, so metrics are exported by writing a textfile:
//
//	observability.WriteTextfile("/var/lib/node_exporter/nxadmin.prom", registry)
//
// # Tracing
//
// API calls are wrapped with otelhttp when tracing is enabled. Spans are exported to an
// OTLP collector when an endpoint is configured:
//
//	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
//		Enabled:  true,
//		Endpoint: "localhost:4317",
//	}, logger)
//	defer observability.ShutdownTracing(context.Background(), tp, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Records request metrics
package observability
