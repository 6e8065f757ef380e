// Package observe provides the diagnostics and telemetry used around a Krampus
// authentication: a small structured Logger, OpenTelemetry tracing and metrics,
// and a Middleware that instruments one operation.
//
// Nothing here performs authentication. Telemetry is opt-in; with the zero
// Config every component is a no-op.
package observe
