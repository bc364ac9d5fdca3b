// Package observability provides structured logging and Prometheus metrics
// for the walking API.
//
// Loggers are zap-based and configured from LOG_LEVEL and LOG_FORMAT.
// Metrics are registered against an injected prometheus.Registerer so tests
// can use an isolated registry.
package observability
